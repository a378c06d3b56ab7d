// Package matching builds ranked preference lists from match scores and runs
// deferred acceptance (Gale-Shapley) to produce a stable assignment of
// customers to stylists.
package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"beautymatch/internal/common/config"
	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/common/metrics"
	"beautymatch/internal/engine/scoring"
	"beautymatch/internal/models"

	"github.com/google/uuid"
)

// Directory is the provider-directory port. Implementations pre-filter by
// hard constraints; the engine treats the returned slice as an immutable
// snapshot for the whole run.
type Directory interface {
	ListAvailable(ctx context.Context, filter DirectoryFilter) ([]models.Stylist, error)
}

// DirectoryFilter narrows the candidate stylist set before scoring.
type DirectoryFilter struct {
	VerifiedOnly bool
	Specialties  []string
	NearTo       *models.Coordinate
	WithinKm     float64
}

// Sink is the match-persistence port.
type Sink interface {
	SaveAll(ctx context.Context, matches []models.Match) error
}

// RatingReader provides (possibly cache-stale) skill ratings for scoring.
type RatingReader interface {
	GetForScoring(ctx context.Context, stylistID string) (int, error)
}

// Request is one matching run over a batch of customers.
type Request struct {
	RunID     string // generated when empty
	Customers []models.CustomerPreference
}

// Result is the outcome of a matching run. When the iteration cap was hit,
// Converged is false and Diagnostic carries the NON_CONVERGENCE warning; the
// partial assignment in Matches is still valid and persisted.
type Result struct {
	RunID      string
	Matches    []models.Match
	Unmatched  []string
	Iterations int
	Converged  bool
	Diagnostic *apperrors.StandardError
}

// Config holds the deferred-acceptance settings.
type Config struct {
	MaxIterations int
	Strategy      string
}

// FromAppConfig converts the application config section.
func FromAppConfig(cfg config.MatchingConfig) Config {
	return Config{
		MaxIterations: cfg.MaxIterations,
		Strategy:      cfg.Strategy,
	}
}

// Engine orchestrates matching runs. Preference construction runs one worker
// per customer; the proposal loop itself is strictly sequential, since the
// stylists' held-proposal state is shared across rounds.
type Engine struct {
	directory Directory
	sink      Sink
	ratings   RatingReader
	scorer    *scoring.Scorer
	strategy  StylistPreference
	config    Config
	logger    logger.Logger

	now   func() time.Time
	idGen func() string
}

func NewEngine(directory Directory, sink Sink, ratings RatingReader, scorer *scoring.Scorer, cfg Config, log logger.Logger) (*Engine, error) {
	if cfg.MaxIterations <= 0 {
		return nil, apperrors.NewInvalidConfigurationError("matching max iterations must be positive")
	}
	strategy, err := NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	return &Engine{
		directory: directory,
		sink:      sink,
		ratings:   ratings,
		scorer:    scorer,
		strategy:  strategy,
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "matching-engine"}),
		now:       time.Now,
		idGen:     func() string { return uuid.NewString() },
	}, nil
}

// Algorithm returns the variant tag stamped onto produced matches.
func (e *Engine) Algorithm() string {
	return fmt.Sprintf("gale-shapley/%s/%s", e.strategy.Name(), e.scorer.Preset())
}

// Run executes one full matching run: snapshot candidates, build ranked
// preference lists, run deferred acceptance, persist the produced pairs.
// An empty candidate set yields an empty result, not an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	runID := req.RunID
	if runID == "" {
		runID = e.idGen()
	}
	log := e.logger.WithFields(map[string]interface{}{"runId": runID})
	started := e.now()

	stylists, err := e.directory.ListAvailable(ctx, DirectoryFilter{VerifiedOnly: true})
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, Converged: true}
	if len(stylists) == 0 || len(req.Customers) == 0 {
		log.Info("nothing to match", map[string]interface{}{
			"customers": len(req.Customers),
			"stylists":  len(stylists),
		})
		metrics.MatchingRunsTotal.WithLabelValues("empty").Inc()
		return result, nil
	}

	snapshot := make([]*models.Stylist, 0, len(stylists))
	for i := range stylists {
		if stylists[i].Available && stylists[i].IsVerified {
			snapshot = append(snapshot, &stylists[i])
		}
	}

	lists, err := e.buildPreferenceLists(ctx, req.Customers, snapshot)
	if err != nil {
		return nil, err
	}

	assignment, iterations, converged := e.deferredAcceptance(lists)
	result.Iterations = iterations
	result.Converged = converged

	result.Matches = e.materialize(runID, assignment)
	result.Unmatched = unmatchedCustomers(lists, assignment)

	if !converged {
		result.Diagnostic = apperrors.NewNonConvergenceError(iterations, len(result.Unmatched))
		log.Warn("deferred acceptance hit iteration cap", map[string]interface{}{
			"iterations": iterations,
			"matches":    len(result.Matches),
			"unmatched":  len(result.Unmatched),
		})
	}

	if len(result.Matches) > 0 {
		if err := e.sink.SaveAll(ctx, result.Matches); err != nil {
			return nil, apperrors.NewMatchPersistFailedError(err)
		}
	}

	status := "converged"
	if !converged {
		status = "capped"
	}
	metrics.MatchingRunsTotal.WithLabelValues(status).Inc()
	metrics.MatchingRunDuration.WithLabelValues(e.strategy.Name()).Observe(e.now().Sub(started).Seconds())
	metrics.MatchingIterations.Observe(float64(iterations))
	for i := range result.Matches {
		metrics.MatchScores.Observe(result.Matches[i].Score)
	}
	metrics.MatchesProduced.WithLabelValues(e.Algorithm()).Add(float64(len(result.Matches)))
	metrics.CustomersUnmatched.Add(float64(len(result.Unmatched)))

	log.Info("matching run complete", map[string]interface{}{
		"customers":  len(req.Customers),
		"stylists":   len(snapshot),
		"matches":    len(result.Matches),
		"unmatched":  len(result.Unmatched),
		"iterations": iterations,
		"converged":  converged,
	})

	return result, nil
}

// deferredAcceptance runs the proposal loop. Each unmatched customer
// proposes down its ranked list; a stylist holds the best proposal seen so
// far per the stylist-side strategy and rejects the rest. One iteration is a
// full round of proposals from the currently free customers. The iteration
// cap is a safety valve against degenerate preference lists.
func (e *Engine) deferredAcceptance(lists []*customerList) (map[string]*heldProposal, int, bool) {
	held := make(map[string]*heldProposal)
	engaged := make([]bool, len(lists))

	iterations := 0
	for iterations < e.config.MaxIterations {
		proposed := false

		for i, list := range lists {
			if engaged[i] || list.next >= len(list.ranked) {
				continue
			}
			proposed = true

			candidate := list.ranked[list.next]
			list.next++

			offer := &proposal{
				customer: list.pref,
				arrival:  list.arrival,
				score:    candidate.score,
				reason:   candidate.reason,
			}

			current, taken := held[candidate.stylist.ID]
			if !taken {
				held[candidate.stylist.ID] = &heldProposal{proposal: offer, listIndex: i}
				engaged[i] = true
				continue
			}

			if e.strategy.Prefers(candidate.stylist, offer, current.proposal) {
				// The previous holder becomes free again and resumes
				// proposing further down its list.
				engaged[current.listIndex] = false
				held[candidate.stylist.ID] = &heldProposal{proposal: offer, listIndex: i}
				engaged[i] = true
			}
		}

		if !proposed {
			return held, iterations, true
		}
		iterations++
	}

	// Cap hit: report the partial assignment rather than discarding it.
	return held, iterations, noFreeProposers(lists, engaged)
}

type heldProposal struct {
	proposal  *proposal
	listIndex int
}

func noFreeProposers(lists []*customerList, engaged []bool) bool {
	for i, list := range lists {
		if !engaged[i] && list.next < len(list.ranked) {
			return false
		}
	}
	return true
}

// materialize converts held proposals into proposed-status matches, in
// stylist-ID order for deterministic output.
func (e *Engine) materialize(runID string, held map[string]*heldProposal) []models.Match {
	stylistIDs := make([]string, 0, len(held))
	for id := range held {
		stylistIDs = append(stylistIDs, id)
	}
	sort.Strings(stylistIDs)

	now := e.now().UTC()
	matches := make([]models.Match, 0, len(held))
	for _, id := range stylistIDs {
		h := held[id]
		matches = append(matches, models.Match{
			ID:         e.idGen(),
			RunID:      runID,
			CustomerID: h.proposal.customer.CustomerID,
			StylistID:  id,
			Score:      h.proposal.score,
			Status:     models.MatchStatusProposed,
			Algorithm:  e.Algorithm(),
			Reason:     h.proposal.reason,
			CreatedAt:  now,
		})
	}
	return matches
}

// unmatchedCustomers lists customers left without an assignment, including
// those whose preference lists were empty from the start.
func unmatchedCustomers(lists []*customerList, held map[string]*heldProposal) []string {
	assigned := make(map[string]bool, len(held))
	for _, h := range held {
		assigned[h.proposal.customer.CustomerID] = true
	}

	unmatched := make([]string, 0)
	for _, list := range lists {
		if !assigned[list.pref.CustomerID] {
			unmatched = append(unmatched, list.pref.CustomerID)
		}
	}
	return unmatched
}

func reasonFor(b scoring.Breakdown) string {
	return scoring.Reason(b)
}
