// Package providerdir implements the provider-directory port over the
// stylist catalog. Both backends apply the hard predicates (availability,
// verification, optional geo and specialty narrowing) so the scoring layer
// only sees plausible candidates.
package providerdir

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "beautymatch/internal/common/errors"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/engine/geo"
	"beautymatch/internal/engine/matching"
	"beautymatch/internal/models"

	"github.com/lib/pq"
)

// PostgresDirectory reads stylists from the stylists table.
type PostgresDirectory struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresDirectory(db *sql.DB, log logger.Logger) *PostgresDirectory {
	return &PostgresDirectory{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "provider-directory"}),
	}
}

const selectStylists = `
	SELECT id, name, latitude, longitude, specialties, price_min, price_max,
	       experience_years, is_verified, average_rating, available, created_at
	FROM stylists
	WHERE available = TRUE`

// ListAvailable returns the candidate snapshot for one matching run. Geo
// narrowing uses a bounding box in SQL; the precise great-circle cut is
// applied on the rows, since the box overshoots at the corners.
func (d *PostgresDirectory) ListAvailable(ctx context.Context, filter matching.DirectoryFilter) ([]models.Stylist, error) {
	var sb strings.Builder
	sb.WriteString(selectStylists)
	args := make([]interface{}, 0, 6)

	if filter.VerifiedOnly {
		sb.WriteString(" AND is_verified = TRUE")
	}
	if len(filter.Specialties) > 0 {
		args = append(args, pq.Array(filter.Specialties))
		fmt.Fprintf(&sb, " AND specialties && $%d", len(args))
	}
	if filter.NearTo != nil && filter.WithinKm > 0 {
		box := geo.BoundingBox(*filter.NearTo, filter.WithinKm)
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
		fmt.Fprintf(&sb, " AND latitude BETWEEN $%d AND $%d AND longitude BETWEEN $%d AND $%d",
			len(args)-3, len(args)-2, len(args)-1, len(args))
	}
	sb.WriteString(" ORDER BY id")

	rows, err := d.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("stylist query", err)
	}
	defer rows.Close()

	var stylists []models.Stylist
	for rows.Next() {
		var st models.Stylist
		var specialties pq.StringArray
		err := rows.Scan(&st.ID, &st.Name, &st.Location.Latitude, &st.Location.Longitude,
			&specialties, &st.Price.Min, &st.Price.Max,
			&st.ExperienceYears, &st.IsVerified, &st.AverageRating, &st.Available, &st.CreatedAt)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("stylist scan", err)
		}
		st.Specialties = specialties

		if filter.NearTo != nil && filter.WithinKm > 0 &&
			geo.HaversineKm(*filter.NearTo, st.Location) > filter.WithinKm {
			continue
		}
		stylists = append(stylists, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("stylist query", err)
	}

	d.logger.Debug("stylist snapshot loaded", map[string]interface{}{
		"count": len(stylists),
	})
	return stylists, nil
}

// GetByID loads one stylist, available or not. Outcome reporting uses it to
// reject events for unknown stylists.
func (d *PostgresDirectory) GetByID(ctx context.Context, stylistID string) (models.Stylist, error) {
	const query = `
		SELECT id, name, latitude, longitude, specialties, price_min, price_max,
		       experience_years, is_verified, average_rating, available, created_at
		FROM stylists WHERE id = $1`

	var st models.Stylist
	var specialties pq.StringArray
	err := d.db.QueryRowContext(ctx, query, stylistID).Scan(
		&st.ID, &st.Name, &st.Location.Latitude, &st.Location.Longitude,
		&specialties, &st.Price.Min, &st.Price.Max,
		&st.ExperienceYears, &st.IsVerified, &st.AverageRating, &st.Available, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Stylist{}, apperrors.NewNotFoundError("stylist", stylistID)
	}
	if err != nil {
		return models.Stylist{}, apperrors.NewQueryExecutionFailedError("stylist lookup", err)
	}
	st.Specialties = specialties
	return st, nil
}
