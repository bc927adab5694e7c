package db

import (
	"context"
	"time"

	"potager/internal/types"
)

// JobLockRepository provides advisory locking via the job_locks table.
// The scheduled advisor and a manually triggered run can land on the
// same day; the lock guarantees only one of them executes the cycle.
// Locks expire by TTL rather than explicit release, so a crashed run
// cannot wedge the next day's cycle.
type JobLockRepository struct {
	db DBTX
}

// NewJobLockRepository creates a new JobLockRepository backed by the
// given database connection (pool or transaction).
func NewJobLockRepository(db DBTX) *JobLockRepository {
	return &JobLockRepository{db: db}
}

// Acquire attempts to take the named lock for ttl. It returns true when
// this worker now holds the lock and false when another holder's lock
// is still live. Lock IDs name the job and its period, e.g.
// "advisor_cycle:2026-06-15".
//
// The expiry is computed as a concrete timestamp in Go rather than with
// interval arithmetic in SQL, since Go duration strings ("15m0s") are
// not valid PostgreSQL intervals.
//
// A single INSERT ... ON CONFLICT DO UPDATE makes the acquisition
// atomic: the insert wins a free lock, the conditional update reclaims
// an expired one, and a live lock matches neither, leaving zero rows
// affected.
func (r *JobLockRepository) Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	tag, err := r.db.Exec(ctx,
		`INSERT INTO job_locks (id, worker_id, locked_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		   SET worker_id = EXCLUDED.worker_id,
		       locked_at = EXCLUDED.locked_at,
		       expires_at = EXCLUDED.expires_at
		   WHERE job_locks.expires_at < $3`,
		lockID,
		workerID,
		now,
		expiresAt,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to acquire job lock", err)
	}

	return tag.RowsAffected() > 0, nil
}
