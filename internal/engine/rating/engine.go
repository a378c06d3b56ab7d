// Package rating maintains bounded Elo-style skill ratings for stylists and
// updates them from match and interaction outcomes.
package rating

import (
	"context"
	"math"
	"sync"
	"time"

	"beautymatch/internal/common/config"
	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/common/metrics"
	"beautymatch/internal/models"
)

// Outcome values fed into an Elo update.
const (
	OutcomeFavorable   = 1.0
	OutcomeUnfavorable = 0.0
)

// Store is the keyed rating persistence port. Implementations must make
// CompareAndSwap atomic with respect to concurrent writers of the same key.
type Store interface {
	// Load returns the stored record and whether one exists.
	Load(ctx context.Context, stylistID string) (models.RatingRecord, bool, error)

	// Init writes the initial rating if no record exists yet. It returns the
	// record that is current after the call, so racing initializers converge.
	Init(ctx context.Context, stylistID string, rating int) (models.RatingRecord, error)

	// CompareAndSwap writes next only if the stored rating still equals
	// expected. It reports false (without error) when the swap lost a race
	// or the record is missing.
	CompareAndSwap(ctx context.Context, stylistID string, expected, next int) (bool, error)
}

// Config holds the Elo parameters.
type Config struct {
	Initial      int
	KFactor      int
	Min          int
	Max          int
	CacheTTL     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// FromAppConfig converts the application config section.
func FromAppConfig(cfg config.RatingConfig) Config {
	return Config{
		Initial:      cfg.Initial,
		KFactor:      cfg.KFactor,
		Min:          cfg.Min,
		Max:          cfg.Max,
		CacheTTL:     config.GetDuration(cfg.CacheTTL),
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: config.GetDuration(cfg.RetryBackoff),
	}
}

// Engine applies Elo updates against a Store.
type Engine struct {
	store  Store
	config Config
	logger logger.Logger

	cache *readCache
}

func NewEngine(store Store, cfg Config, log logger.Logger) *Engine {
	return &Engine{
		store:  store,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "rating-engine"}),
		cache:  newReadCache(cfg.CacheTTL),
	}
}

// Get returns the stored rating for the stylist, lazily initializing the
// record to the default initial rating when none exists.
func (e *Engine) Get(ctx context.Context, stylistID string) (int, error) {
	rec, found, err := e.store.Load(ctx, stylistID)
	if err != nil {
		return 0, err
	}
	if found {
		return rec.Rating, nil
	}

	rec, err = e.store.Init(ctx, stylistID, e.config.Initial)
	if err != nil {
		return 0, err
	}
	e.logger.Debug("rating lazily initialized", map[string]interface{}{
		"stylistId": stylistID,
		"rating":    rec.Rating,
	})
	return rec.Rating, nil
}

// GetForScoring returns the rating through a short-TTL cache. Scoring treats
// the rating as a soft heuristic, so bounded staleness is acceptable here.
func (e *Engine) GetForScoring(ctx context.Context, stylistID string) (int, error) {
	if r, ok := e.cache.get(stylistID); ok {
		return r, nil
	}
	r, err := e.Get(ctx, stylistID)
	if err != nil {
		return 0, err
	}
	e.cache.put(stylistID, r)
	return r, nil
}

// Update applies one Elo step for the stylist against the opponent baseline
// rating. outcome is 1.0 for a favorable resolution and 0.0 otherwise. The
// new rating is clamped to [Min, Max] before persisting. Concurrent updates
// to the same stylist serialize through compare-and-swap with bounded
// backoff; a missing record fails NOT_FOUND, exhausted retries fail
// CONCURRENT_UPDATE_CONFLICT.
func (e *Engine) Update(ctx context.Context, stylistID string, opponentRating int, outcome float64) (int, error) {
	delay := e.config.RetryBackoff

	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		rec, found, err := e.store.Load(ctx, stylistID)
		if err != nil {
			metrics.RatingUpdatesTotal.WithLabelValues("failed").Inc()
			return 0, err
		}
		if !found {
			metrics.RatingUpdatesTotal.WithLabelValues("failed").Inc()
			return 0, apperrors.NewNotFoundError("rating record", stylistID)
		}

		next := e.nextRating(rec.Rating, opponentRating, outcome)

		swapped, err := e.store.CompareAndSwap(ctx, stylistID, rec.Rating, next)
		if err != nil {
			metrics.RatingUpdatesTotal.WithLabelValues("failed").Inc()
			return 0, err
		}
		if swapped {
			metrics.RatingUpdatesTotal.WithLabelValues("applied").Inc()
			e.cache.invalidate(stylistID)
			e.logger.Debug("rating updated", map[string]interface{}{
				"stylistId": stylistID,
				"old":       rec.Rating,
				"new":       next,
				"outcome":   outcome,
			})
			return next, nil
		}

		metrics.RatingUpdateRetries.Inc()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.RatingUpdatesTotal.WithLabelValues("conflict").Inc()
	e.logger.Warn("rating update retries exhausted", map[string]interface{}{
		"stylistId": stylistID,
		"attempts":  e.config.MaxRetries,
	})
	return 0, apperrors.NewConcurrentUpdateConflictError(stylistID, e.config.MaxRetries)
}

// nextRating applies the Elo formula and clamps to the configured bounds:
//
//	expected = 1 / (1 + 10^((opponent - rating) / 400))
//	next     = round(rating + K * (outcome - expected))
func (e *Engine) nextRating(current, opponent int, outcome float64) int {
	expected := 1 / (1 + math.Pow(10, float64(opponent-current)/400))
	next := int(math.Round(float64(current) + float64(e.config.KFactor)*(outcome-expected)))

	if next < e.config.Min {
		next = e.config.Min
	}
	if next > e.config.Max {
		next = e.config.Max
	}
	return next
}

// readCache is a TTL cache for scoring-path rating reads. It is an explicit
// injected store rather than package-level state so two engines never share
// entries.
type readCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rating  int
	expires time.Time
}

func newReadCache(ttl time.Duration) *readCache {
	return &readCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *readCache) get(key string) (int, bool) {
	if c.ttl <= 0 {
		return 0, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return 0, false
	}
	return e.rating, true
}

func (c *readCache) put(key string, rating int) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{rating: rating, expires: time.Now().Add(c.ttl)}
}

func (c *readCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
