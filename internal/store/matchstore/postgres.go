// Package matchstore persists produced matches and their status
// transitions in PostgreSQL.
package matchstore

import (
	"context"
	"database/sql"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/models"
)

// PostgresStore writes matches to the matches table. Re-running a batch is
// idempotent: rows are keyed by (run_id, customer_id, stylist_id) and
// terminal rows are never overwritten.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "match-store"}),
	}
}

const upsertMatch = `
	INSERT INTO matches (id, run_id, customer_id, stylist_id, score, status, algorithm, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id, customer_id, stylist_id) DO UPDATE
	SET score = EXCLUDED.score,
	    status = EXCLUDED.status,
	    algorithm = EXCLUDED.algorithm,
	    reason = EXCLUDED.reason
	WHERE matches.status NOT IN ('accepted', 'rejected', 'expired')`

// Save writes one match.
func (s *PostgresStore) Save(ctx context.Context, m models.Match) error {
	return s.SaveAll(ctx, []models.Match{m})
}

// SaveAll writes a batch of matches in one transaction, so a run's output is
// persisted all-or-nothing.
func (s *PostgresStore) SaveAll(ctx context.Context, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertMatch)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("prepare match upsert", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err := stmt.ExecContext(ctx,
			m.ID, m.RunID, m.CustomerID, m.StylistID,
			m.Score, m.Status, m.Algorithm, m.Reason, m.CreatedAt,
		)
		if err != nil {
			return apperrors.NewQueryExecutionFailedError("match upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewQueryExecutionFailedError("commit match batch", err)
	}

	s.logger.Debug("match batch persisted", map[string]interface{}{
		"runId": matches[0].RunID,
		"count": len(matches),
	})
	return nil
}

const updateStatus = `
	UPDATE matches SET status = $2
	WHERE id = $1 AND status NOT IN ('accepted', 'rejected', 'expired')`

// UpdateStatus moves a match to a new status. Terminal matches are
// immutable; transitions on them report CONCURRENT_UPDATE_CONFLICT so the
// caller can distinguish a settled match from a missing one.
func (s *PostgresStore) UpdateStatus(ctx context.Context, matchID string, status models.MatchStatus) error {
	res, err := s.db.ExecContext(ctx, updateStatus, matchID, status)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("match status update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("match status update", err)
	}
	if affected > 0 {
		return nil
	}

	var current models.MatchStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM matches WHERE id = $1`, matchID).Scan(&current)
	if err == sql.ErrNoRows {
		return apperrors.NewNotFoundError("match", matchID)
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("match status lookup", err)
	}
	return apperrors.NewConcurrentUpdateConflictError(matchID, 1)
}

const selectByRun = `
	SELECT id, run_id, customer_id, stylist_id, score, status, algorithm, reason, created_at
	FROM matches WHERE run_id = $1
	ORDER BY stylist_id`

// GetByRun returns every match a run produced, in stylist-ID order.
func (s *PostgresStore) GetByRun(ctx context.Context, runID string) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, selectByRun, runID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("match query", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(&m.ID, &m.RunID, &m.CustomerID, &m.StylistID,
			&m.Score, &m.Status, &m.Algorithm, &m.Reason, &m.CreatedAt)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("match scan", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("match query", err)
	}
	return matches, nil
}
