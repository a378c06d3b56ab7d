// internal/engine/matching/preferences.go
package matching

import (
	"context"
	"sort"

	"beautymatch/internal/models"

	"golang.org/x/sync/errgroup"
)

// rankedStylist is one entry of a customer's preference list.
type rankedStylist struct {
	stylist    *models.Stylist
	score      float64
	reason     string
	distanceKm float64
}

// customerList is a customer's ranked preference list plus the proposal
// cursor used by deferred acceptance.
type customerList struct {
	pref    *models.CustomerPreference
	arrival int
	ranked  []rankedStylist
	next    int // index of the next stylist to propose to
}

// buildPreferenceLists ranks the candidate stylists for every customer in
// parallel. Scoring is pure, so one worker per customer shares nothing
// mutable; results land in a pre-sized slice indexed by customer position.
func (e *Engine) buildPreferenceLists(ctx context.Context, customers []models.CustomerPreference, stylists []*models.Stylist) ([]*customerList, error) {
	lists := make([]*customerList, len(customers))

	g, gctx := errgroup.WithContext(ctx)
	for i := range customers {
		i := i
		g.Go(func() error {
			list, err := e.rankForCustomer(gctx, &customers[i], i, stylists)
			if err != nil {
				return err
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

func (e *Engine) rankForCustomer(ctx context.Context, pref *models.CustomerPreference, arrival int, stylists []*models.Stylist) (*customerList, error) {
	ranked := make([]rankedStylist, 0, len(stylists))

	for _, st := range stylists {
		// Minimum acceptable star rating is a hard constraint. Unrated
		// stylists pass; missing data is handled softly by scoring.
		if pref.MinRating > 0 && st.AverageRating > 0 && st.AverageRating < pref.MinRating {
			continue
		}

		elo, err := e.ratings.GetForScoring(ctx, st.ID)
		if err != nil {
			// A rating store hiccup for one candidate must not block the
			// run; score with the neutral baseline instead.
			e.logger.Warn("rating read failed, scoring with baseline", map[string]interface{}{
				"stylistId": st.ID,
				"error":     err.Error(),
			})
			elo = 0
		}

		score, breakdown := e.scorer.Score(pref, st, elo)
		ranked = append(ranked, rankedStylist{
			stylist:    st,
			score:      score,
			reason:     reasonFor(breakdown),
			distanceKm: breakdown.DistanceKm,
		})
	}

	// Descending score, ties broken by stylist ID for determinism.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].stylist.ID < ranked[j].stylist.ID
	})

	return &customerList{pref: pref, arrival: arrival, ranked: ranked}, nil
}
