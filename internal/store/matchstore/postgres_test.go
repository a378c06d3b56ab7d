package matchstore

import (
	"context"
	"testing"
	"time"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logger.NewNoOpLogger()), mock
}

func sampleMatch(id string) models.Match {
	return models.Match{
		ID:         id,
		RunID:      "run-1",
		CustomerID: "c1",
		StylistID:  "s1",
		Score:      87.5,
		Status:     models.MatchStatusProposed,
		Algorithm:  "gale-shapley/tier/balanced",
		Reason:     "offers the requested specialties",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresStore_SaveAll(t *testing.T) {
	store, mock := setupMockDB(t)
	m := sampleMatch("m1")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO matches")
	prep.ExpectExec().
		WithArgs(m.ID, m.RunID, m.CustomerID, m.StylistID,
			m.Score, m.Status, m.Algorithm, m.Reason, m.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveAll(context.Background(), []models.Match{m})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAllEmptyBatchIsNoOp(t *testing.T) {
	store, mock := setupMockDB(t)

	err := store.SaveAll(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAllRollsBackOnFailure(t *testing.T) {
	store, mock := setupMockDB(t)
	m := sampleMatch("m1")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO matches")
	prep.ExpectExec().WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.SaveAll(context.Background(), []models.Match{m})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeQueryExecutionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("m1", models.MatchStatusAccepted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateStatus(context.Background(), "m1", models.MatchStatusAccepted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatusMissingMatch(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("ghost", models.MatchStatusAccepted).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM matches").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	err := store.UpdateStatus(context.Background(), "ghost", models.MatchStatusAccepted)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestPostgresStore_UpdateStatusTerminalMatchImmutable(t *testing.T) {
	store, mock := setupMockDB(t)

	// Zero rows touched but the row exists: it is already terminal.
	mock.ExpectExec("UPDATE matches SET status").
		WithArgs("m1", models.MatchStatusExpired).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM matches").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("accepted"))

	err := store.UpdateStatus(context.Background(), "m1", models.MatchStatusExpired)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConcurrentUpdateConflict))
}

func TestPostgresStore_GetByRun(t *testing.T) {
	store, mock := setupMockDB(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "run_id", "customer_id", "stylist_id", "score", "status", "algorithm", "reason", "created_at",
	}).
		AddRow("m1", "run-1", "c1", "s1", 87.5, "proposed", "gale-shapley/tier/balanced", "nearby (1.2 km)", created).
		AddRow("m2", "run-1", "c2", "s2", 64.0, "accepted", "gale-shapley/tier/balanced", "within budget", created)

	mock.ExpectQuery("SELECT (.+) FROM matches WHERE run_id").
		WithArgs("run-1").
		WillReturnRows(rows)

	matches, err := store.GetByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "s1", matches[0].StylistID)
	assert.Equal(t, models.MatchStatusAccepted, matches[1].Status)
}
