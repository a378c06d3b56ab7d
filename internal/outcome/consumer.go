package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"beautymatch/internal/common/config"
	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const errorPause = time.Second

// Consumer drains outcome events from a Redis list with BRPOP and applies
// them through the Reporter. Events that lose every rating retry are
// requeued once; a second exhaustion drops the event.
type Consumer struct {
	client       *redis.Client
	reporter     *Reporter
	queue        string
	blockTimeout time.Duration
	logger       logger.Logger
}

func NewConsumer(client *redis.Client, reporter *Reporter, cfg config.OutcomeConfig, log logger.Logger) *Consumer {
	return &Consumer{
		client:       client,
		reporter:     reporter,
		queue:        cfg.Queue,
		blockTimeout: config.GetDuration(cfg.BlockTimeout),
		logger:       log.WithFields(map[string]interface{}{"component": "outcome-consumer"}),
	}
}

// Run blocks until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("outcome consumer started", map[string]interface{}{
		"queue": c.queue,
	})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		vals, err := c.client.BRPop(ctx, c.blockTimeout, c.queue).Result()
		if errors.Is(err, redis.Nil) {
			continue // timeout with no event, poll again
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("outcome queue read failed", map[string]interface{}{
				"error": err.Error(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(errorPause):
			}
			continue
		}

		// BRPOP returns [key, value].
		c.handle(ctx, []byte(vals[1]))
	}
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	ev, err := ParseEvent(payload)
	if err != nil {
		metrics.OutcomeEventsTotal.WithLabelValues("invalid").Inc()
		c.logger.Warn("dropping invalid outcome event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	newRating, err := c.reporter.ReportOutcome(ctx, ev)
	switch {
	case err == nil:
		metrics.OutcomeEventsTotal.WithLabelValues("applied").Inc()
		c.logger.Debug("outcome applied", map[string]interface{}{
			"stylistId": ev.StylistID,
			"rating":    newRating,
		})

	case apperrors.IsCode(err, apperrors.ErrCodeNotFound):
		metrics.OutcomeEventsTotal.WithLabelValues("unknown_stylist").Inc()
		c.logger.Warn("dropping outcome for unknown stylist", map[string]interface{}{
			"stylistId": ev.StylistID,
		})

	case apperrors.IsCode(err, apperrors.ErrCodeConcurrentUpdateConflict):
		c.requeue(ctx, ev)

	default:
		metrics.OutcomeEventsTotal.WithLabelValues("failed").Inc()
		c.logger.Error("outcome application failed", map[string]interface{}{
			"stylistId": ev.StylistID,
			"error":     err.Error(),
		})
	}
}

// requeue pushes a conflicted event back for one more pass. The Requeued
// marker prevents a hot key from cycling forever.
func (c *Consumer) requeue(ctx context.Context, ev Event) {
	if ev.Requeued {
		metrics.OutcomeEventsTotal.WithLabelValues("dropped").Inc()
		c.logger.Error("dropping outcome after repeated rating conflicts", map[string]interface{}{
			"stylistId": ev.StylistID,
		})
		return
	}

	ev.Requeued = true
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.OutcomeEventsTotal.WithLabelValues("failed").Inc()
		return
	}
	if err := c.client.LPush(ctx, c.queue, payload).Err(); err != nil {
		metrics.OutcomeEventsTotal.WithLabelValues("failed").Inc()
		c.logger.Error("outcome requeue failed", map[string]interface{}{
			"stylistId": ev.StylistID,
			"error":     err.Error(),
		})
		return
	}
	metrics.OutcomeEventsTotal.WithLabelValues("requeued").Inc()
}
