package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// WeatherArchiveRepository provides data access for the
// weather_archives table: one compressed normalized series per fetch
// date, kept for replay and debugging. fetch_date is unique; refetching
// the same day (a re-run cycle) replaces that day's blob.
type WeatherArchiveRepository struct {
	db DBTX
}

// NewWeatherArchiveRepository creates a new WeatherArchiveRepository
// backed by the given database connection (pool or transaction).
func NewWeatherArchiveRepository(db DBTX) *WeatherArchiveRepository {
	return &WeatherArchiveRepository{db: db}
}

// Save upserts the archive blob for its fetch date. size_bytes is
// derived from the payload here so the stored figure can never drift
// from the blob itself.
func (r *WeatherArchiveRepository) Save(ctx context.Context, a *types.WeatherArchive) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO weather_archives
		 (id, fetch_date, lat, lon, payload, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		 ON CONFLICT (fetch_date) DO UPDATE SET
		   id = EXCLUDED.id,
		   lat = EXCLUDED.lat,
		   lon = EXCLUDED.lon,
		   payload = EXCLUDED.payload,
		   size_bytes = EXCLUDED.size_bytes,
		   created_at = EXCLUDED.created_at`,
		a.ID,
		a.FetchDate,
		a.Lat,
		a.Lon,
		a.Payload,
		len(a.Payload),
		nilIfZeroTime(a.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save weather archive", err)
	}
	return nil
}

// GetByDate retrieves the archived series for a fetch date. Returns
// ErrCodeNotFoundArchive when no cycle archived weather that day.
func (r *WeatherArchiveRepository) GetByDate(ctx context.Context, fetchDate time.Time) (*types.WeatherArchive, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, fetch_date, lat, lon, payload, size_bytes, created_at
		 FROM weather_archives
		 WHERE fetch_date = $1`,
		fetchDate,
	)

	var a types.WeatherArchive
	err := row.Scan(&a.ID, &a.FetchDate, &a.Lat, &a.Lon, &a.Payload, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundArchive, "no weather archive for that date", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve weather archive", err)
	}
	return &a, nil
}
