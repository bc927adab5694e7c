package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CycleStore persists the complete output of one advisor cycle in a
// single transaction: the deficit checkpoint, the advice snapshot, and
// the compressed weather archive all land together or not at all. A
// cycle that fails halfway must not leave a checkpoint pointing at a
// snapshot that does not exist.
//
// It reuses the row-level repositories over the transaction, which is
// exactly what the DBTX interface exists for.
type CycleStore struct {
	pool TxBeginner
}

// NewCycleStore creates a CycleStore over the given connection pool.
func NewCycleStore(pool TxBeginner) *CycleStore {
	return &CycleStore{pool: pool}
}

// PersistCycle atomically writes the cycle outcome. A nil archive is
// skipped: replayed cycles read their weather from an archive row that
// is already on disk and do not rewrite it.
func (s *CycleStore) PersistCycle(ctx context.Context, state *types.DeficitState, snap *types.AdviceSnapshot, archive *types.WeatherArchive) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin cycle transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := NewStateRepository(tx).Save(ctx, state); err != nil {
		return err
	}
	if err := NewAdviceRepository(tx).Save(ctx, snap); err != nil {
		return err
	}
	if archive != nil {
		if err := NewWeatherArchiveRepository(tx).Save(ctx, archive); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit cycle transaction", err)
	}
	return nil
}
