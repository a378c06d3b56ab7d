// internal/engine/matching/strategy.go
package matching

import (
	"fmt"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/models"
)

// proposal is one customer's offer to a stylist during deferred acceptance.
type proposal struct {
	customer *models.CustomerPreference
	arrival  int     // position in the run's input order
	score    float64 // engine score for this (customer, stylist) pair
	reason   string
}

// StylistPreference ranks competing proposals from the stylist's side.
// Implementations must be deterministic for identical inputs.
type StylistPreference interface {
	Name() string
	// Prefers reports whether the stylist prefers proposal a over b.
	Prefers(stylist *models.Stylist, a, b *proposal) bool
}

// NewStrategy resolves a configured strategy name.
func NewStrategy(name string) (StylistPreference, error) {
	switch name {
	case "tier":
		return TierStrategy{}, nil
	case "score":
		return ScoreStrategy{}, nil
	default:
		return nil, apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("unknown matching strategy %q", name))
	}
}

// TierStrategy is the reference stylist-side rule: paying customers first by
// subscription tier, everyone else indistinguishable and kept in arrival
// order. Deliberately coarse; kept as shipped.
type TierStrategy struct{}

func (TierStrategy) Name() string { return "tier" }

func (TierStrategy) Prefers(_ *models.Stylist, a, b *proposal) bool {
	if a.customer.SubscriptionTier != b.customer.SubscriptionTier {
		return a.customer.SubscriptionTier > b.customer.SubscriptionTier
	}
	return a.arrival < b.arrival
}

// ScoreStrategy ranks proposals by the full per-customer match score for the
// stylist, ties broken by customer ID for determinism.
type ScoreStrategy struct{}

func (ScoreStrategy) Name() string { return "score" }

func (ScoreStrategy) Prefers(_ *models.Stylist, a, b *proposal) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.customer.CustomerID < b.customer.CustomerID
}
