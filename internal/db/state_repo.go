package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// stateID is the fixed primary key of the garden_state row, matching
// the singleton garden profile.
const stateID = 1

// StateRepository provides data access for the garden_state table: the
// engine checkpoint written at the end of each advisory cycle. The
// complete per-unit deficit set lives in one JSONB column on one row,
// so a save replaces the whole checkpoint atomically -- there is no way
// to observe a partially updated set.
type StateRepository struct {
	db DBTX
}

// NewStateRepository creates a new StateRepository backed by the given
// database connection (pool or transaction).
func NewStateRepository(db DBTX) *StateRepository {
	return &StateRepository{db: db}
}

// Load returns the latest checkpoint, or nil when no cycle has run
// yet. First runs are normal, so the absence of state is not an error.
func (r *StateRepository) Load(ctx context.Context) (*types.DeficitState, error) {
	row := r.db.QueryRow(ctx,
		`SELECT run_date, deficits, lawn_height_cm, updated_at
		 FROM garden_state
		 WHERE id = $1`,
		stateID,
	)

	var s types.DeficitState
	err := row.Scan(&s.RunDate, &s.Deficits, &s.LawnHeightCM, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load deficit state", err)
	}
	return &s, nil
}

// Save overwrites the checkpoint with the given state. Units dropped
// from the garden profile disappear with the overwrite; stale entries
// cannot survive a save.
func (r *StateRepository) Save(ctx context.Context, s *types.DeficitState) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO garden_state (id, run_date, deficits, lawn_height_cm, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   run_date = EXCLUDED.run_date,
		   deficits = EXCLUDED.deficits,
		   lawn_height_cm = EXCLUDED.lawn_height_cm,
		   updated_at = EXCLUDED.updated_at`,
		stateID,
		s.RunDate,
		s.Deficits,
		s.LawnHeightCM,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save deficit state", err)
	}
	return nil
}
