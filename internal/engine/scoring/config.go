// internal/engine/scoring/config.go
package scoring

import (
	"fmt"
	"math"

	"beautymatch/internal/common/config"
	apperrors "beautymatch/internal/common/errors"
)

// Weights are the relative importance of each sub-score. They must sum to
// approximately 1.0.
type Weights struct {
	Location  float64
	Specialty float64
	Price     float64
	Rating    float64
	Elo       float64
}

func (w Weights) Sum() float64 {
	return w.Location + w.Specialty + w.Price + w.Rating + w.Elo
}

// Named weight presets. Both shipped variants are preserved; "balanced" is
// the default, "proximity" is the second reference set with no Elo term.
const (
	PresetBalanced  = "balanced"
	PresetProximity = "proximity"
)

var presets = map[string]Weights{
	PresetBalanced:  {Location: 0.30, Specialty: 0.25, Price: 0.20, Rating: 0.15, Elo: 0.10},
	PresetProximity: {Location: 0.40, Specialty: 0.30, Price: 0.20, Rating: 0.10, Elo: 0},
}

// Config holds the scoring parameters.
type Config struct {
	Preset            string
	Weights           Weights
	NeutralPriceScore float64
	BaselineElo       int // customer-side baseline for the Elo adjustment
}

const weightSumTolerance = 0.01

// FromAppConfig resolves the preset or custom weights from the application
// config and validates them.
func FromAppConfig(cfg config.ScoringConfig, baselineElo int) (Config, error) {
	weights, ok := presets[cfg.Preset]
	if !ok {
		return Config{}, apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("unknown scoring preset %q", cfg.Preset))
	}

	if !cfg.Weights.IsZero() {
		weights = Weights{
			Location:  cfg.Weights.Location,
			Specialty: cfg.Weights.Specialty,
			Price:     cfg.Weights.Price,
			Rating:    cfg.Weights.Rating,
			Elo:       cfg.Weights.Elo,
		}
	}
	if sum := weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return Config{}, apperrors.NewInvalidConfigurationError(
			fmt.Sprintf("scoring weights must sum to ~1.0, got %.4f", sum))
	}

	neutral := cfg.NeutralPriceScore
	if neutral == 0 {
		neutral = 50
	}

	return Config{
		Preset:            cfg.Preset,
		Weights:           weights,
		NeutralPriceScore: neutral,
		BaselineElo:       baselineElo,
	}, nil
}
