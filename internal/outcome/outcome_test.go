package outcome

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"beautymatch/internal/common/config"
	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/engine/rating"
	"beautymatch/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Fixtures
// ==========================

type stubDirectory struct {
	known map[string]bool
}

func (d *stubDirectory) GetByID(_ context.Context, stylistID string) (models.Stylist, error) {
	if d.known[stylistID] {
		return models.Stylist{ID: stylistID}, nil
	}
	return models.Stylist{}, apperrors.NewNotFoundError("stylist", stylistID)
}

func testRatingEngine(store rating.Store) *rating.Engine {
	return rating.NewEngine(store, rating.Config{
		Initial:      1200,
		KFactor:      32,
		Min:          100,
		Max:          3000,
		CacheTTL:     time.Minute,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, logger.NewNoOpLogger())
}

func newReporter(known ...string) *Reporter {
	dir := &stubDirectory{known: make(map[string]bool)}
	for _, id := range known {
		dir.known[id] = true
	}
	return NewReporter(dir, testRatingEngine(rating.NewMemoryStore()), logger.NewNoOpLogger())
}

func setupConsumer(t *testing.T, reporter *Reporter) (*miniredis.Miniredis, *Consumer) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	consumer := NewConsumer(client, reporter, config.OutcomeConfig{
		Queue:        "matching:outcomes",
		BlockTimeout: 50,
	}, logger.NewTestLogger(t))
	return mr, consumer
}

func eventPayload(t *testing.T, ev Event) []byte {
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return payload
}

// ==========================
// Event Parsing
// ==========================

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid favorable event",
			payload: `{"stylistId":"s1","opponentRating":1200,"favorable":true}`,
		},
		{
			name:    "valid requeued event",
			payload: `{"stylistId":"s1","opponentRating":1400,"favorable":false,"requeued":true}`,
		},
		{
			name:    "missing stylist id",
			payload: `{"opponentRating":1200,"favorable":true}`,
			wantErr: true,
		},
		{
			name:    "empty stylist id",
			payload: `{"stylistId":"","opponentRating":1200,"favorable":true}`,
			wantErr: true,
		},
		{
			name:    "non integer opponent rating",
			payload: `{"stylistId":"s1","opponentRating":"strong","favorable":true}`,
			wantErr: true,
		},
		{
			name:    "negative opponent rating",
			payload: `{"stylistId":"s1","opponentRating":-5,"favorable":true}`,
			wantErr: true,
		},
		{
			name:    "unknown field rejected",
			payload: `{"stylistId":"s1","opponentRating":1200,"favorable":true,"bonus":9}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `brpop garbage`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOutcomeInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s1", ev.StylistID)
		})
	}
}

// ==========================
// Reporter
// ==========================

func TestReporter_ReportOutcome(t *testing.T) {
	reporter := newReporter("s1")

	// Evenly matched favorable outcome moves the fresh rating up by K/2.
	newRating, err := reporter.ReportOutcome(context.Background(), Event{
		StylistID:      "s1",
		OpponentRating: 1200,
		Favorable:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1216, newRating)
}

func TestReporter_ReportOutcomeUnknownStylist(t *testing.T) {
	reporter := newReporter()

	_, err := reporter.ReportOutcome(context.Background(), Event{
		StylistID:      "ghost",
		OpponentRating: 1200,
		Favorable:      true,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

// ==========================
// Consumer
// ==========================

func TestConsumer_HandleAppliesEvent(t *testing.T) {
	reporter := newReporter("s1")
	_, consumer := setupConsumer(t, reporter)

	consumer.handle(context.Background(), eventPayload(t, Event{
		StylistID:      "s1",
		OpponentRating: 1200,
		Favorable:      true,
	}))

	r, err := reporter.ratings.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1216, r)
}

func TestConsumer_HandleInvalidPayloadDoesNotRequeue(t *testing.T) {
	reporter := newReporter("s1")
	mr, consumer := setupConsumer(t, reporter)

	consumer.handle(context.Background(), []byte(`{"stylistId":""}`))

	assert.Empty(t, mr.Keys(), "invalid events are dropped, not requeued")
}

func TestConsumer_RequeueOnceOnConflict(t *testing.T) {
	reporter := newReporter("s1")
	mr, consumer := setupConsumer(t, reporter)
	ctx := context.Background()

	fresh := Event{StylistID: "s1", OpponentRating: 1200, Favorable: true}
	consumer.requeue(ctx, fresh)

	queued, err := mr.List("matching:outcomes")
	require.NoError(t, err)
	require.Len(t, queued, 1)

	requeued, err := ParseEvent([]byte(queued[0]))
	require.NoError(t, err)
	assert.True(t, requeued.Requeued)

	// A second conflict on the marked event drops it.
	consumer.requeue(ctx, requeued)
	queued, err = mr.List("matching:outcomes")
	require.NoError(t, err)
	assert.Len(t, queued, 1, "already-requeued events must not cycle")
}

func TestConsumer_RunDrainsQueue(t *testing.T) {
	reporter := newReporter("s1")
	mr, consumer := setupConsumer(t, reporter)

	payload := eventPayload(t, Event{StylistID: "s1", OpponentRating: 1200, Favorable: true})
	_, err := mr.Lpush("matching:outcomes", string(payload))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = consumer.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r, err := reporter.ratings.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1216, r)
}
