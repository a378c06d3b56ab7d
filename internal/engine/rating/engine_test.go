package rating

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Initial:      1200,
		KFactor:      32,
		Min:          100,
		Max:          3000,
		CacheTTL:     30 * time.Second,
		MaxRetries:   5,
		RetryBackoff: time.Millisecond,
	}
}

func newTestEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	return NewEngine(store, testConfig(), logger.NewTestLogger(t))
}

func TestEngine_Get_LazyInit(t *testing.T) {
	store := NewMemoryStore()
	engine := newTestEngine(t, store)
	ctx := context.Background()

	r, err := engine.Get(ctx, "stylist-1")
	require.NoError(t, err)
	assert.Equal(t, 1200, r)

	// The lazy init must have persisted a record.
	rec, found, err := store.Load(ctx, "stylist-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1200, rec.Rating)
}

func TestEngine_Update_EloFormula(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		opponent int
		outcome  float64
		expected int
	}{
		{
			name:     "equal ratings favorable outcome",
			current:  1200,
			opponent: 1200,
			outcome:  OutcomeFavorable,
			expected: 1216, // expected=0.5, delta=+16
		},
		{
			name:     "equal ratings unfavorable outcome",
			current:  1200,
			opponent: 1200,
			outcome:  OutcomeUnfavorable,
			expected: 1184,
		},
		{
			name:     "underdog wins gains more",
			current:  1200,
			opponent: 1400,
			outcome:  OutcomeFavorable,
			expected: 1224, // expected≈0.24, delta≈+24
		},
		{
			name:     "favorite wins gains little",
			current:  1400,
			opponent: 1200,
			outcome:  OutcomeFavorable,
			expected: 1408,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			engine := newTestEngine(t, store)
			ctx := context.Background()

			_, err := store.Init(ctx, "s1", tt.current)
			require.NoError(t, err)

			got, err := engine.Update(ctx, "s1", tt.opponent, tt.outcome)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEngine_Update_MissingRecordIsNotFound(t *testing.T) {
	engine := newTestEngine(t, NewMemoryStore())

	_, err := engine.Update(context.Background(), "ghost", 1200, OutcomeFavorable)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestEngine_Update_StaysWithinBounds(t *testing.T) {
	store := NewMemoryStore()
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 2995)
	require.NoError(t, err)

	// Repeated favorable outcomes against a weak opponent must clamp at Max.
	var last int
	for i := 0; i < 50; i++ {
		r, err := engine.Update(ctx, "s1", 100, OutcomeFavorable)
		require.NoError(t, err)
		assert.LessOrEqual(t, r, 3000)
		assert.GreaterOrEqual(t, r, 100)
		last = r
	}
	assert.Equal(t, 3000, last)

	// And repeated losses against a strong opponent must clamp at Min.
	_, err = store.Init(ctx, "s2", 105)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		r, err := engine.Update(ctx, "s2", 3000, OutcomeUnfavorable)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r, 100)
	}
}

func TestEngine_Update_ConcurrentReportsAllApply(t *testing.T) {
	store := NewMemoryStore()
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	const reports = 20
	var wg sync.WaitGroup
	errs := make(chan error, reports)

	for i := 0; i < reports; i++ {
		wg.Add(1)
		outcome := OutcomeFavorable
		if i%2 == 1 {
			outcome = OutcomeUnfavorable
		}
		go func(outcome float64) {
			defer wg.Done()
			_, err := engine.Update(ctx, "s1", 1200, outcome)
			errs <- err
		}(outcome)
	}
	wg.Wait()
	close(errs)

	// With CAS retries every report either applies or surfaces a structured
	// conflict; silent loss is the one unacceptable result, and the final
	// rating must stay within bounds either way.
	for err := range errs {
		if err != nil {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConcurrentUpdateConflict))
		}
	}
	rec, found, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.GreaterOrEqual(t, rec.Rating, 100)
	assert.LessOrEqual(t, rec.Rating, 3000)
}

// contentiousStore always loses the CAS race.
type contentiousStore struct {
	inner *MemoryStore
}

func (s *contentiousStore) Load(ctx context.Context, id string) (models.RatingRecord, bool, error) {
	return s.inner.Load(ctx, id)
}

func (s *contentiousStore) Init(ctx context.Context, id string, rating int) (models.RatingRecord, error) {
	return s.inner.Init(ctx, id, rating)
}

func (s *contentiousStore) CompareAndSwap(context.Context, string, int, int) (bool, error) {
	return false, nil
}

func TestEngine_Update_RetriesExhaustedSurfaceConflict(t *testing.T) {
	store := &contentiousStore{inner: NewMemoryStore()}
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1200)
	require.NoError(t, err)

	_, err = engine.Update(ctx, "s1", 1200, OutcomeFavorable)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConcurrentUpdateConflict))
}

func TestEngine_GetForScoring_CachesWithinTTL(t *testing.T) {
	store := NewMemoryStore()
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := store.Init(ctx, "s1", 1400)
	require.NoError(t, err)

	r, err := engine.GetForScoring(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1400, r)

	// A write that bypasses the engine is not observed until the TTL lapses;
	// the scoring path tolerates that staleness.
	ok, err := store.CompareAndSwap(ctx, "s1", 1400, 1500)
	require.NoError(t, err)
	require.True(t, ok)

	r, err = engine.GetForScoring(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1400, r)

	// An engine-applied update invalidates the cached entry.
	_, err = engine.Update(ctx, "s1", 1200, OutcomeFavorable)
	require.NoError(t, err)

	r, err = engine.GetForScoring(ctx, "s1")
	require.NoError(t, err)
	assert.NotEqual(t, 1400, r)
}
