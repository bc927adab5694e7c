package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// adviceColumns is the standard column set for advice snapshot
// queries. The scan order in scanSnapshot must match.
const adviceColumns = `id, cycle_id, run_date, trigger_kind, units, lawn,
	alerts, next_watering, warnings, created_at`

// AdviceRepository provides data access for the advice_snapshots
// table: one persisted advisory per run date. run_date is unique, so
// re-running a cycle for the same day (a manual run after the
// scheduled one) replaces that day's snapshot instead of stacking
// duplicates.
type AdviceRepository struct {
	db DBTX
}

// NewAdviceRepository creates a new AdviceRepository backed by the
// given database connection (pool or transaction).
func NewAdviceRepository(db DBTX) *AdviceRepository {
	return &AdviceRepository{db: db}
}

func scanSnapshot(row pgx.Row) (*types.AdviceSnapshot, error) {
	var s types.AdviceSnapshot
	err := row.Scan(
		&s.ID,
		&s.CycleID,
		&s.RunDate,
		&s.Trigger,
		&s.Units,
		&s.Lawn,
		&s.Alerts,
		&s.NextWatering,
		&s.Warnings,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the snapshot for its run date.
func (r *AdviceRepository) Save(ctx context.Context, s *types.AdviceSnapshot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO advice_snapshots
		 (id, cycle_id, run_date, trigger_kind, units, lawn,
		  alerts, next_watering, warnings, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		 ON CONFLICT (run_date) DO UPDATE SET
		   id = EXCLUDED.id,
		   cycle_id = EXCLUDED.cycle_id,
		   trigger_kind = EXCLUDED.trigger_kind,
		   units = EXCLUDED.units,
		   lawn = EXCLUDED.lawn,
		   alerts = EXCLUDED.alerts,
		   next_watering = EXCLUDED.next_watering,
		   warnings = EXCLUDED.warnings,
		   created_at = EXCLUDED.created_at`,
		s.ID,
		s.CycleID,
		s.RunDate,
		s.Trigger,
		s.Units,
		s.Lawn,
		s.Alerts,
		s.NextWatering,
		s.Warnings,
		nilIfZeroTime(s.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to save advice snapshot", err)
	}
	return nil
}

// GetByDate retrieves the snapshot for a run date. Returns
// ErrCodeNotFoundAdvice when no cycle ran that day.
func (r *AdviceRepository) GetByDate(ctx context.Context, runDate time.Time) (*types.AdviceSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adviceColumns+`
		 FROM advice_snapshots
		 WHERE run_date = $1`,
		runDate,
	)

	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAdvice, "no advice snapshot for that date", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve advice snapshot", err)
	}
	return s, nil
}

// Latest retrieves the most recent snapshot. Returns
// ErrCodeNotFoundAdvice when no cycle has ever run.
func (r *AdviceRepository) Latest(ctx context.Context) (*types.AdviceSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adviceColumns+`
		 FROM advice_snapshots
		 ORDER BY run_date DESC
		 LIMIT 1`,
	)

	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAdvice, "no advice snapshot yet", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest advice snapshot", err)
	}
	return s, nil
}

// GetByCycleID retrieves the snapshot written by a specific cycle. The
// report worker resolves queued report messages through this, so a
// replaced same-day snapshot makes the stale message fail loudly
// instead of mailing outdated advice.
func (r *AdviceRepository) GetByCycleID(ctx context.Context, cycleID string) (*types.AdviceSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adviceColumns+`
		 FROM advice_snapshots
		 WHERE cycle_id = $1`,
		cycleID,
	)

	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAdvice, "no advice snapshot for that cycle", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve advice snapshot", err)
	}
	return s, nil
}
