package report

import (
	"context"
	"log/slog"
	"time"

	"potager/internal/catalog"
	"potager/internal/journal"
	"potager/internal/types"
	"potager/internal/weather"
)

// statsWindowDays bounds the journal window feeding the report's
// statistics block.
const statsWindowDays = 30

// ArchiveStore restores the weather a snapshot was computed from, so
// the report's outlook matches what the cycle saw.
type ArchiveStore interface {
	GetByDate(ctx context.Context, fetchDate time.Time) (*types.WeatherArchive, error)
}

// GardenStore names the garden and its tracked plants on the report.
type GardenStore interface {
	Get(ctx context.Context) (*types.GardenProfile, error)
}

// JournalStore supplies the journal window behind the report's
// statistics block.
type JournalStore interface {
	ListWaterings(ctx context.Context, from, to time.Time) ([]types.WateringEvent, error)
	ListMowings(ctx context.Context, from, to time.Time) ([]types.MowingEvent, error)
}

// TipSource provides the month's gardening tips. Implemented by
// catalog.Catalog.
type TipSource interface {
	TipsFor(month int) (types.MonthlyTip, bool)
}

// Hydrator fills a report Input's optional sections from storage. The
// API download and the report worker run the same hydration, so the
// downloaded report and the mailed one cannot drift. Every store is
// soft: a nil or failing one drops its section instead of failing the
// report.
type Hydrator struct {
	Archives ArchiveStore
	Garden   GardenStore
	Journal  JournalStore
	Tips     TipSource
	Codec    *weather.Codec
	Logger   *slog.Logger
}

// Hydrate fills in's optional sections for in.Snapshot, which must be
// set. Failures are logged and downgrade the report.
func (h *Hydrator) Hydrate(ctx context.Context, in *Input) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	snap := in.Snapshot

	if h.Archives != nil && h.Codec != nil {
		arc, err := h.Archives.GetByDate(ctx, snap.RunDate)
		if err != nil {
			logger.WarnContext(ctx, "weather archive unavailable, rendering report without outlook",
				"run_date", types.FormatDay(snap.RunDate),
				"error", err,
			)
		} else if series, err := h.Codec.Decompress(arc.Payload); err != nil {
			logger.WarnContext(ctx, "weather archive unreadable, rendering report without outlook",
				"archive_id", arc.ID,
				"error", err,
			)
		} else {
			in.Series = series
		}
	}

	var profile *types.GardenProfile
	if h.Garden != nil {
		p, err := h.Garden.Get(ctx)
		if err != nil {
			logger.WarnContext(ctx, "garden profile unavailable for report, continuing",
				"error", err,
			)
		} else {
			profile = p
			in.Location = p.Location.Name
		}
	}

	if h.Journal != nil {
		from := types.AddDays(snap.RunDate, -(statsWindowDays - 1))
		waterings, werr := h.Journal.ListWaterings(ctx, from, snap.RunDate)
		mowings, merr := h.Journal.ListMowings(ctx, from, snap.RunDate)
		if werr != nil || merr != nil {
			logger.WarnContext(ctx, "journal unavailable, rendering report without statistics",
				"waterings_error", werr,
				"mowings_error", merr,
			)
		} else {
			var tracked []string
			if profile != nil {
				tracked = make([]string, 0, len(profile.Plants))
				for _, p := range profile.Plants {
					tracked = append(tracked, catalog.NormalizeName(p.Name))
				}
			}
			stats := journal.Compute(journal.StatsInput{
				Waterings: waterings,
				Mowings:   mowings,
				Tracked:   tracked,
				From:      from,
				To:        snap.RunDate,
			})
			in.Stats = &stats
		}
	}

	if h.Tips != nil {
		if tip, ok := h.Tips.TipsFor(int(snap.RunDate.Month())); ok {
			in.Tip = &tip
		}
	}
}
