package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"potager/internal/types"
)

// JournalRepository provides data access for the watering_events and
// mowing_events tables. The journal is append-only: events record what
// the gardener actually did, and every advisory cycle recomputes from
// them rather than mutating them.
type JournalRepository struct {
	db DBTX
}

// NewJournalRepository creates a new JournalRepository backed by the
// given database connection (pool or transaction).
func NewJournalRepository(db DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// AddWatering appends a watering event. The caller must set the ID
// (prefixed UUID, e.g. "wat_...") and an already normalized event:
// civil-day date, cleaned plant names, empty Plants meaning the whole
// garden. An empty plant list is stored as NULL.
func (r *JournalRepository) AddWatering(ctx context.Context, e *types.WateringEvent) error {
	var plants []string
	if len(e.Plants) > 0 {
		plants = e.Plants
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO watering_events (id, event_date, plants, note, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		e.ID,
		e.Date,
		plants,
		nilIfEmpty(e.Note),
		nilIfZeroTime(e.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to add watering event", err)
	}
	return nil
}

// AddMowing appends a mowing event. CutHeightCM may be nil when the
// gardener did not record the height; readers then assume the target
// height.
func (r *JournalRepository) AddMowing(ctx context.Context, e *types.MowingEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO mowing_events (id, event_date, cut_height_cm, note, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		e.ID,
		e.Date,
		e.CutHeightCM,
		nilIfEmpty(e.Note),
		nilIfZeroTime(e.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to add mowing event", err)
	}
	return nil
}

// ListWaterings returns watering events with event_date in [from, to],
// oldest first. Same-day events keep insertion order.
func (r *JournalRepository) ListWaterings(ctx context.Context, from, to time.Time) ([]types.WateringEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_date, plants, note, created_at
		 FROM watering_events
		 WHERE event_date >= $1 AND event_date <= $2
		 ORDER BY event_date ASC, created_at ASC`,
		from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query watering events", err)
	}
	defer rows.Close()

	var events []types.WateringEvent
	for rows.Next() {
		var (
			e    types.WateringEvent
			note *string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Plants, &note, &e.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan watering event", err)
		}
		if note != nil {
			e.Note = *note
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating watering events", err)
	}
	return events, nil
}

// ListMowings returns mowing events with event_date in [from, to],
// oldest first.
func (r *JournalRepository) ListMowings(ctx context.Context, from, to time.Time) ([]types.MowingEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_date, cut_height_cm, note, created_at
		 FROM mowing_events
		 WHERE event_date >= $1 AND event_date <= $2
		 ORDER BY event_date ASC, created_at ASC`,
		from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query mowing events", err)
	}
	defer rows.Close()

	var events []types.MowingEvent
	for rows.Next() {
		var (
			e    types.MowingEvent
			note *string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.CutHeightCM, &note, &e.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan mowing event", err)
		}
		if note != nil {
			e.Note = *note
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating mowing events", err)
	}
	return events, nil
}

// LatestMowing returns the most recent mowing event, or nil when the
// lawn has never been mowed. A missing mow is a normal state, not an
// error: the growth estimate falls back to a fixed window.
func (r *JournalRepository) LatestMowing(ctx context.Context) (*types.MowingEvent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, event_date, cut_height_cm, note, created_at
		 FROM mowing_events
		 ORDER BY event_date DESC, created_at DESC
		 LIMIT 1`,
	)

	var (
		e    types.MowingEvent
		note *string
	)
	err := row.Scan(&e.ID, &e.Date, &e.CutHeightCM, &note, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest mowing", err)
	}
	if note != nil {
		e.Note = *note
	}
	return &e, nil
}

// nilIfEmpty returns nil if the string is empty, otherwise returns a
// pointer to the string. Used for nullable text columns.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfZeroTime returns nil if the time is zero, otherwise returns a
// pointer to the time. Used to let the DB default (NOW()) apply when no
// time is set.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
