// Package scoring combines location proximity, specialty overlap, price fit,
// reputation and an Elo-derived adjustment into a single weighted match score
// per (customer, stylist) pair.
package scoring

import (
	"fmt"
	"strings"

	"beautymatch/internal/common/logger"
	"beautymatch/internal/engine/geo"
	"beautymatch/internal/models"
)

const (
	neutralScore = 50

	// Location decay: 100 at zero distance, linear down to 50 at the
	// customer's maximum distance, never below the out-of-range floor.
	locationInRangeDecay    = 50
	locationOutOfRangeFloor = 10

	// defaultMaxDistanceKm applies when the customer gave no distance limit.
	defaultMaxDistanceKm = 50

	experienceThresholdYears = 3
)

// Breakdown carries the sub-scores behind a final match score. Each value is
// in [0, 100].
type Breakdown struct {
	Location   float64 `json:"location"`
	Specialty  float64 `json:"specialty"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
	Elo        float64 `json:"elo"`
	DistanceKm float64 `json:"distanceKm"`
}

// Scorer computes deterministic match scores. Score has no side effects
// beyond diagnostic logging, so it is safe to call concurrently.
type Scorer struct {
	config Config
	logger logger.Logger
}

func NewScorer(cfg Config, log logger.Logger) *Scorer {
	return &Scorer{
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "scoring-engine"}),
	}
}

// Preset returns the active weight preset name.
func (s *Scorer) Preset() string {
	return s.config.Preset
}

// Score returns the weighted match score in [0, 100] for the pair, along
// with its sub-score breakdown. stylistElo is the stylist's current skill
// rating as read by the caller (possibly cache-stale). Malformed candidate
// fields degrade the affected sub-score to a neutral default rather than
// failing the pair.
func (s *Scorer) Score(pref *models.CustomerPreference, stylist *models.Stylist, stylistElo int) (float64, Breakdown) {
	var b Breakdown

	b.Location, b.DistanceKm = s.locationScore(pref, stylist)
	b.Specialty = specialtyScore(pref.Specialties, stylist)
	b.Price = s.priceScore(pref, stylist)
	b.Rating = s.ratingScore(pref, stylist)
	b.Elo = s.eloScore(stylistElo)

	w := s.config.Weights
	total := b.Location*w.Location +
		b.Specialty*w.Specialty +
		b.Price*w.Price +
		b.Rating*w.Rating +
		b.Elo*w.Elo

	return clamp(total, 0, 100), b
}

// Reason renders a human-readable explanation from the dominant factors.
func Reason(b Breakdown) string {
	reasons := make([]string, 0, 4)
	if b.Specialty >= 80 {
		reasons = append(reasons, "offers the requested specialties")
	}
	if b.Location >= 80 {
		reasons = append(reasons, fmt.Sprintf("nearby (%.1f km)", b.DistanceKm))
	}
	if b.Price >= 100 {
		reasons = append(reasons, "within budget")
	}
	if b.Rating >= 80 {
		reasons = append(reasons, "highly rated")
	}
	if len(reasons) == 0 {
		return "best available fit"
	}
	return strings.Join(reasons, ", ")
}

func (s *Scorer) locationScore(pref *models.CustomerPreference, stylist *models.Stylist) (float64, float64) {
	if !geo.ValidCoordinate(pref.Location) || !geo.ValidCoordinate(stylist.Location) {
		s.logger.Warn("invalid coordinates, degrading location score", map[string]interface{}{
			"customerId": pref.CustomerID,
			"stylistId":  stylist.ID,
		})
		return neutralScore, 0
	}

	maxKm := pref.MaxDistanceKm
	if maxKm <= 0 {
		maxKm = defaultMaxDistanceKm
	}

	dist := geo.HaversineKm(pref.Location, stylist.Location)

	// Linear decay; beyond the maximum distance the stylist is penalized
	// but not zeroed, so best-effort matches remain possible when nobody
	// is in range.
	score := 100 - (dist/maxKm)*locationInRangeDecay
	return clamp(score, locationOutOfRangeFloor, 100), dist
}

func specialtyScore(requested []string, stylist *models.Stylist) float64 {
	if len(requested) == 0 {
		// No requested tags means no preference.
		return 100
	}

	matched := 0
	for _, tag := range requested {
		if stylist.HasSpecialty(tag) {
			matched++
		}
	}
	return float64(matched) / float64(len(requested)) * 100
}

func (s *Scorer) priceScore(pref *models.CustomerPreference, stylist *models.Stylist) float64 {
	if !pref.HasPriceRange() || stylist.Price.IsZero() {
		return s.config.NeutralPriceScore
	}
	if stylist.Price.Min < 0 || stylist.Price.Max < stylist.Price.Min {
		s.logger.Warn("malformed stylist price, degrading price score", map[string]interface{}{
			"stylistId": stylist.ID,
		})
		return s.config.NeutralPriceScore
	}

	price := (stylist.Price.Min + stylist.Price.Max) / 2
	switch {
	case price >= pref.PriceMin && price <= pref.PriceMax:
		return 100
	case price < pref.PriceMin:
		// Cheaper than asked for works in the customer's favor.
		return 75
	default:
		return 0
	}
}

func (s *Scorer) ratingScore(pref *models.CustomerPreference, stylist *models.Stylist) float64 {
	if stylist.AverageRating <= 0 && stylist.ExperienceYears == 0 && !stylist.IsVerified {
		return neutralScore
	}
	if stylist.AverageRating < 0 || stylist.AverageRating > 5 {
		s.logger.Warn("average rating out of range, degrading rating score", map[string]interface{}{
			"stylistId": stylist.ID,
			"rating":    stylist.AverageRating,
		})
		return neutralScore
	}

	base := 35.0
	if stylist.AverageRating > 0 {
		base = stylist.AverageRating / 5 * 70
	}

	expBonus := 0.0
	switch {
	case stylist.ExperienceYears >= experienceThresholdYears:
		expBonus = 15
	case stylist.ExperienceYears >= 1:
		expBonus = 8
	}
	if !pref.PreferExperience {
		expBonus /= 2
	}

	verBonus := 0.0
	if stylist.IsVerified {
		verBonus = 15
		if !pref.PreferVerified {
			verBonus = 8
		}
	}

	return clamp(base+expBonus+verBonus, 0, 100)
}

// eloScore maps the stylist's skill rating relative to the customer-side
// baseline onto [0, 100], centered at 50. The band is narrow so the Elo
// term stays a small adjustment rather than a dominant factor.
func (s *Scorer) eloScore(stylistElo int) float64 {
	baseline := s.config.BaselineElo
	if baseline == 0 {
		baseline = 1200
	}
	if stylistElo == 0 {
		stylistElo = baseline
	}
	adj := float64(stylistElo-baseline) / 16
	return clamp(50+adj, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
