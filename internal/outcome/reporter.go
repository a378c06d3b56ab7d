package outcome

import (
	"context"

	"beautymatch/internal/common/logger"
	"beautymatch/internal/engine/rating"
	"beautymatch/internal/models"
)

// StylistLookup resolves stylist existence before an outcome is applied.
type StylistLookup interface {
	GetByID(ctx context.Context, stylistID string) (models.Stylist, error)
}

// Reporter applies outcomes for in-process collaborators. The queue consumer
// goes through the same path so both entry points share semantics.
type Reporter struct {
	directory StylistLookup
	ratings   *rating.Engine
	logger    logger.Logger
}

func NewReporter(directory StylistLookup, ratings *rating.Engine, log logger.Logger) *Reporter {
	return &Reporter{
		directory: directory,
		ratings:   ratings,
		logger:    log.WithFields(map[string]interface{}{"component": "outcome-reporter"}),
	}
}

// ReportOutcome applies one outcome and returns the stylist's new rating.
// Unknown stylists fail NOT_FOUND before any rating state is touched.
func (r *Reporter) ReportOutcome(ctx context.Context, ev Event) (int, error) {
	if _, err := r.directory.GetByID(ctx, ev.StylistID); err != nil {
		return 0, err
	}

	// First outcome for a stylist lazily creates the rating record.
	if _, err := r.ratings.Get(ctx, ev.StylistID); err != nil {
		return 0, err
	}

	value := rating.OutcomeUnfavorable
	if ev.Favorable {
		value = rating.OutcomeFavorable
	}
	return r.ratings.Update(ctx, ev.StylistID, ev.OpponentRating, value)
}
