package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// gardenID is the fixed primary key of the garden_profile row. The
// service manages exactly one garden; the constant key turns every
// write into an upsert of that single row.
const gardenID = 1

// GardenRepository provides data access for the garden_profile table,
// a singleton row holding the garden's location, soil, tracked plants,
// lawn preferences, and report email.
type GardenRepository struct {
	db DBTX
}

// NewGardenRepository creates a new GardenRepository backed by the
// given database connection (pool or transaction).
func NewGardenRepository(db DBTX) *GardenRepository {
	return &GardenRepository{db: db}
}

// Get retrieves the garden profile. Returns ErrCodeNotFoundGarden when
// the profile has never been saved, which callers surface as "garden
// not configured yet".
func (r *GardenRepository) Get(ctx context.Context) (*types.GardenProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT town, lat, lon, altitude_m, timezone, soil_type, mulched,
		        plants, lawn, report_email, updated_at
		 FROM garden_profile
		 WHERE id = $1`,
		gardenID,
	)

	var (
		g     types.GardenProfile
		town  *string
		email *string
	)
	err := row.Scan(
		&town,
		&g.Location.Lat,
		&g.Location.Lon,
		&g.AltitudeM,
		&g.Timezone,
		&g.Soil,
		&g.Mulched,
		&g.Plants,
		&g.Lawn,
		&email,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundGarden, "garden profile not configured", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve garden profile", err)
	}

	if town != nil {
		g.Location.Name = *town
	}
	if email != nil {
		g.Email = *email
	}
	return &g, nil
}

// Save upserts the profile as a whole. There is no partial update: the
// handler validates the full profile and this writes every column, so
// the row never mixes fields from two versions.
func (r *GardenRepository) Save(ctx context.Context, g *types.GardenProfile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO garden_profile
		 (id, town, lat, lon, altitude_m, timezone, soil_type, mulched,
		  plants, lawn, report_email, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   town = EXCLUDED.town,
		   lat = EXCLUDED.lat,
		   lon = EXCLUDED.lon,
		   altitude_m = EXCLUDED.altitude_m,
		   timezone = EXCLUDED.timezone,
		   soil_type = EXCLUDED.soil_type,
		   mulched = EXCLUDED.mulched,
		   plants = EXCLUDED.plants,
		   lawn = EXCLUDED.lawn,
		   report_email = EXCLUDED.report_email,
		   updated_at = EXCLUDED.updated_at`,
		gardenID,
		nilIfEmpty(g.Location.Name),
		g.Location.Lat,
		g.Location.Lon,
		g.AltitudeM,
		g.Timezone,
		g.Soil,
		g.Mulched,
		g.Plants,
		g.Lawn,
		nilIfEmpty(g.Email),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save garden profile", err)
	}
	return nil
}
