// Package advisor implements the daily advisory cycle for the garden.
//
// The cycle is the heart of the service: it recomputes every tracked
// unit's water deficit from the journal and fresh weather, classifies
// each unit, estimates lawn growth, derives weather alerts, persists
// the outcome atomically, and hands the result to the report queue.
//
// Key behaviors:
//   - A per-date advisory lock guarantees at most one cycle runs for a
//     given day at a time; a concurrent invocation skips cleanly.
//   - Weather, journal, and checkpoint loads run concurrently.
//   - A weather fetch failure aborts the cycle; stale data is never
//     reused silently. Per-unit problems never abort the cycle.
//   - Replay runs read weather from the archive of the requested date
//     instead of calling the provider, so a past cycle can be
//     recomputed deterministically after a journal correction.
//   - Preview shares the assessment math with the cycle but takes no
//     lock and writes nothing, so the API can show current advice on
//     demand.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"potager/internal/engine"
	"potager/internal/types"
	"potager/internal/weather"
)

// defaultLockTTL bounds how long a crashed run can block the next
// attempt for the same date.
const defaultLockTTL = 10 * time.Minute

// reasonCycleCompleted is the reason attribute attached to report
// messages enqueued at the end of a successful cycle.
const reasonCycleCompleted = "cycle_completed"

// RunInput selects how and for which day a cycle runs. It doubles as
// the manual Lambda invocation payload.
//
// A zero Date means "today" on the advisor's clock. Date is meant for
// replay runs; a non-replay run with a backdated Date still fetches
// live weather, and days outside the fetched window degrade to zero
// demand with a warning.
type RunInput struct {
	Trigger types.CycleTrigger `json:"trigger"`
	Date    string             `json:"date,omitempty"` // YYYY-MM-DD
}

// GardenStore abstracts the profile read and the coordinate write-back
// after geocoding.
type GardenStore interface {
	Get(ctx context.Context) (*types.GardenProfile, error)
	Save(ctx context.Context, p *types.GardenProfile) error
}

// JournalStore abstracts the journal reads the cycle needs.
type JournalStore interface {
	// ListWaterings returns the watering events with dates in [from, to].
	ListWaterings(ctx context.Context, from, to time.Time) ([]types.WateringEvent, error)
	// LatestMowing returns the most recent mowing, or nil when the
	// journal records none.
	LatestMowing(ctx context.Context) (*types.MowingEvent, error)
}

// StateStore abstracts the previous checkpoint load.
type StateStore interface {
	Load(ctx context.Context) (*types.DeficitState, error)
}

// LockStore abstracts the per-date advisory lock.
type LockStore interface {
	Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error)
}

// ArchiveStore abstracts the weather archive read used by replay runs.
type ArchiveStore interface {
	GetByDate(ctx context.Context, fetchDate time.Time) (*types.WeatherArchive, error)
}

// CyclePersister atomically persists a cycle's full outcome.
type CyclePersister interface {
	PersistCycle(ctx context.Context, state *types.DeficitState, snap *types.AdviceSnapshot, archive *types.WeatherArchive) error
}

// ReportEnqueuer hands a finished cycle to the report delivery queue.
type ReportEnqueuer interface {
	TriggerReport(ctx context.Context, snap *types.AdviceSnapshot, email string, reason string) error
}

// Advisor runs the daily advisory cycle. It is the core service behind
// the scheduled advisor Lambda.
type Advisor struct {
	garden    GardenStore
	journal   JournalStore
	state     StateStore
	locks     LockStore
	archives  ArchiveStore
	persister CyclePersister
	reports   ReportEnqueuer

	source   types.WeatherSource
	geocoder types.Geocoder
	ref      types.ReferenceData
	codec    *weather.Codec

	metrics CycleMetrics
	clock   types.Clock
	logger  *slog.Logger

	workerID     string
	lockTTL      time.Duration
	lookbackDays int
}

// Config holds the dependencies for creating an Advisor.
type Config struct {
	Garden    GardenStore
	Journal   JournalStore
	State     StateStore
	Locks     LockStore
	Archives  ArchiveStore
	Persister CyclePersister
	Reports   ReportEnqueuer // nil disables report delivery

	Weather  types.WeatherSource
	Geocoder types.Geocoder
	Ref      types.ReferenceData
	Codec    *weather.Codec

	Metrics CycleMetrics // nil discards metrics
	Clock   types.Clock  // nil uses the system clock
	Logger  *slog.Logger

	WorkerID     string
	LockTTL      time.Duration
	LookbackDays int
}

// New creates an Advisor with the given configuration.
func New(cfg Config) *Advisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NoopCycleMetrics{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "advisor"
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = engine.DefaultLookbackDays
	}
	return &Advisor{
		garden:       cfg.Garden,
		journal:      cfg.Journal,
		state:        cfg.State,
		locks:        cfg.Locks,
		archives:     cfg.Archives,
		persister:    cfg.Persister,
		reports:      cfg.Reports,
		source:       cfg.Weather,
		geocoder:     cfg.Geocoder,
		ref:          cfg.Ref,
		codec:        cfg.Codec,
		metrics:      metrics,
		clock:        clock,
		logger:       logger,
		workerID:     workerID,
		lockTTL:      lockTTL,
		lookbackDays: lookback,
	}
}

// Run executes one advisory cycle and returns the persisted snapshot.
//
// When another invocation already holds the lock for the run date, Run
// returns an AppError with ErrCodeConflictCycleRunning and does nothing
// else; the scheduled caller treats that as a clean skip.
func (a *Advisor) Run(ctx context.Context, in RunInput) (*types.AdviceSnapshot, error) {
	started := a.clock.Now()

	trigger := in.Trigger
	if trigger == "" {
		trigger = types.TriggerScheduled
	}

	runDate := types.Day(started)
	if in.Date != "" {
		d, err := types.ParseDay(in.Date)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidDate,
				fmt.Sprintf("invalid cycle date %q", in.Date), err)
		}
		runDate = d
	}

	cycleID := "cyc_" + uuid.New().String()
	logger := a.logger.With(
		"cycle_id", cycleID,
		"run_date", types.FormatDay(runDate),
		"trigger", string(trigger),
	)

	lockID := "advisor_cycle:" + types.FormatDay(runDate)
	held, err := a.locks.Acquire(ctx, lockID, a.workerID, a.lockTTL)
	if err != nil {
		a.metrics.CycleFailed(ctx, trigger, a.clock.Now().Sub(started))
		return nil, err
	}
	if !held {
		logger.InfoContext(ctx, "cycle lock held elsewhere, skipping run",
			"lock_id", lockID,
		)
		return nil, types.NewAppError(types.ErrCodeConflictCycleRunning,
			"an advisor cycle for this date is already running", nil)
	}

	logger.InfoContext(ctx, "advisor cycle starting",
		"lock_id", lockID,
	)

	snap, err := a.runCycle(ctx, logger, trigger, runDate, cycleID)
	elapsed := a.clock.Now().Sub(started)
	if err != nil {
		a.metrics.CycleFailed(ctx, trigger, elapsed)
		logger.ErrorContext(ctx, "advisor cycle failed",
			"error", err,
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil, err
	}

	a.metrics.CycleSucceeded(ctx, trigger, elapsed)
	logger.InfoContext(ctx, "advisor cycle complete",
		"units_assessed", len(snap.Units),
		"units_needing_water", snap.Units.ActionCount(),
		"alerts", len(snap.Alerts),
		"warnings", len(snap.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)
	return snap, nil
}

// Preview computes today's advice from live weather and the current
// journal without taking the cycle lock or writing anything: no
// snapshot, no checkpoint, no archive, no report. It backs the
// on-demand status endpoint and leaves the scheduled history intact.
//
// Resolved coordinates are not written back either; the next persisted
// cycle will do that.
func (a *Advisor) Preview(ctx context.Context) (*types.AdviceSnapshot, error) {
	runDate := types.Day(a.clock.Now())

	profile, err := a.garden.Get(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.resolveCoordinates(ctx, a.logger, profile); err != nil {
		return nil, err
	}

	soil, ok := a.ref.Soil(profile.Soil)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSoil,
			fmt.Sprintf("unknown soil type %q", profile.Soil), nil)
	}

	var (
		series    *types.WeatherSeries
		waterings []types.WateringEvent
		lastMow   *types.MowingEvent
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := a.source.FetchDaily(gCtx, profile.Location, profile.AltitudeM)
		if err != nil {
			return err
		}
		series = s
		return nil
	})

	g.Go(func() error {
		from := types.AddDays(runDate, -(a.lookbackDays - 1))
		events, err := a.journal.ListWaterings(gCtx, from, runDate)
		if err != nil {
			return fmt.Errorf("loading watering events: %w", err)
		}
		waterings = events

		mow, err := a.journal.LatestMowing(gCtx)
		if err != nil {
			return fmt.Errorf("loading latest mowing: %w", err)
		}
		lastMow = mow
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Previews are not cycles: no cycle ID, and the manual trigger
	// marks them apart from the scheduled history.
	snap, _ := a.assess(cycleInputs{
		profile:   profile,
		soil:      soil,
		series:    series,
		waterings: waterings,
		lastMow:   lastMow,
		trigger:   types.TriggerManual,
		runDate:   runDate,
	})
	return snap, nil
}

// runCycle performs the cycle body once the lock is held.
func (a *Advisor) runCycle(ctx context.Context, logger *slog.Logger, trigger types.CycleTrigger, runDate time.Time, cycleID string) (*types.AdviceSnapshot, error) {
	profile, err := a.garden.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.ensureCoordinates(ctx, logger, profile); err != nil {
		return nil, err
	}

	soil, ok := a.ref.Soil(profile.Soil)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSoil,
			fmt.Sprintf("unknown soil type %q", profile.Soil), nil)
	}

	var (
		series    *types.WeatherSeries
		archive   *types.WeatherArchive
		waterings []types.WateringEvent
		lastMow   *types.MowingEvent
		prev      *types.DeficitState
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if trigger == types.TriggerReplay {
			s, err := a.archivedSeries(gCtx, runDate)
			if err != nil {
				return err
			}
			series = s
			return nil
		}
		s, arc, err := a.fetchSeries(gCtx, profile, runDate)
		if err != nil {
			a.metrics.WeatherFetchFailed(gCtx)
			return err
		}
		series, archive = s, arc
		return nil
	})

	g.Go(func() error {
		from := types.AddDays(runDate, -(a.lookbackDays - 1))
		events, err := a.journal.ListWaterings(gCtx, from, runDate)
		if err != nil {
			return fmt.Errorf("loading watering events: %w", err)
		}
		waterings = events

		mow, err := a.journal.LatestMowing(gCtx)
		if err != nil {
			return fmt.Errorf("loading latest mowing: %w", err)
		}
		lastMow = mow
		return nil
	})

	g.Go(func() error {
		s, err := a.state.Load(gCtx)
		if err != nil {
			// The checkpoint is telemetry, not an input; the cycle
			// recomputes everything from the journal and weather.
			logger.WarnContext(gCtx, "previous checkpoint unavailable, continuing",
				"error", err,
			)
			return nil
		}
		prev = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap, state := a.assess(cycleInputs{
		profile:   profile,
		soil:      soil,
		series:    series,
		waterings: waterings,
		lastMow:   lastMow,
		trigger:   trigger,
		runDate:   runDate,
		cycleID:   cycleID,
	})

	if prev != nil {
		logger.InfoContext(ctx, "previous checkpoint loaded",
			"prev_run_date", types.FormatDay(prev.RunDate),
			"lawn_delta_cm", state.LawnHeightCM-prev.LawnHeightCM,
		)
	}

	if err := a.persister.PersistCycle(ctx, state, snap, archive); err != nil {
		return nil, err
	}

	a.metrics.RecordAssessments(ctx, len(snap.Units), snap.Units.ActionCount())

	if a.reports != nil && profile.Email != "" {
		if err := a.reports.TriggerReport(ctx, snap, profile.Email, reasonCycleCompleted); err != nil {
			// The snapshot is already persisted; a replay can re-send.
			// Failing the cycle here would discard correct advice.
			logger.ErrorContext(ctx, "failed to enqueue report",
				"error", err,
			)
		} else {
			a.metrics.ReportQueued(ctx)
		}
	}

	return snap, nil
}

// cycleInputs carries everything the assessment math needs once the
// stores and the weather provider have been consulted.
type cycleInputs struct {
	profile   *types.GardenProfile
	soil      types.SoilProfile
	series    *types.WeatherSeries
	waterings []types.WateringEvent
	lastMow   *types.MowingEvent
	trigger   types.CycleTrigger
	runDate   time.Time
	cycleID   string
}

// assess turns loaded inputs into the day's snapshot and checkpoint.
// Apart from ID generation it is pure and touches no store, which is
// what lets the persisted cycle and the read-only preview share it.
func (a *Advisor) assess(in cycleInputs) (*types.AdviceSnapshot, *types.DeficitState) {
	eng := engine.New(a.ref, engine.Options{
		LookbackDays:       a.lookbackDays,
		DefaultCutHeightCM: in.profile.Lawn.TargetHeightCM,
	})

	units := in.profile.Units()
	bal := eng.ComputeDeficits(engine.BalanceInput{
		Weather: in.series,
		Events:  in.waterings,
		Units:   units,
		Soil:    in.soil,
		Mulched: in.profile.Mulched,
		AsOf:    in.runDate,
	})

	rain24 := in.series.RainWindow(in.runDate, 1)
	rain48 := in.series.RainWindow(in.runDate, 2)

	warnings := append([]string{}, in.series.Warnings...)
	warnings = append(warnings, bal.Warnings...)

	assessments := make(types.AssessmentList, 0, len(units))
	for _, u := range units {
		deficit, ok := bal.Deficits[u]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("plant %q not in catalog; unit %s skipped", u.Plant, u))
			continue
		}
		assessments = append(assessments, types.UnitAssessment{
			Plant:     u.Plant,
			Mode:      u.Mode,
			DeficitMM: deficit,
			Advice:    engine.Classify(deficit, in.soil.ThresholdMM, rain24, rain48),
			Rain24hMM: rain24,
			Rain48hMM: rain48,
		})
	}

	height := eng.EstimateHeight(engine.GrowthInput{
		Weather: in.series,
		LastMow: in.lastMow,
		AsOf:    in.runDate,
	})
	lawn := types.LawnAssessment{
		HeightCM: height,
		TargetCM: in.profile.Lawn.TargetHeightCM,
		MowNow:   height >= in.profile.Lawn.TargetHeightCM*engine.MowOvergrowthRatio,
	}
	if lawn.MowNow {
		d := in.runDate
		lawn.NextMowDate = &d
	} else {
		lawn.NextMowDate = eng.NextMowDate(in.series, height, in.profile.Lawn.TargetHeightCM, in.runDate)
	}
	if in.lastMow != nil {
		d := in.lastMow.Date
		lawn.LastMowedAt = &d
	}

	nextWatering := eng.NextWateringDate(engine.ForwardInput{
		Weather: in.series,
		Units:   units,
		Soil:    in.soil,
		Mulched: in.profile.Mulched,
		AsOf:    in.runDate,
	})

	snap := &types.AdviceSnapshot{
		ID:           "adv_" + uuid.New().String(),
		CycleID:      in.cycleID,
		RunDate:      in.runDate,
		Trigger:      in.trigger,
		Units:        assessments,
		Lawn:         lawn,
		Alerts:       deriveAlerts(in.series, in.runDate),
		NextWatering: nextWatering,
		Warnings:     warnings,
	}

	state := &types.DeficitState{
		RunDate:      in.runDate,
		Deficits:     types.UnitDeficitsFromMap(bal.Deficits),
		LawnHeightCM: height,
	}
	return snap, state
}

// resolveCoordinates fills in the profile's coordinates from its town
// name when none are set. It mutates the profile only; whether the
// result is persisted is the caller's business. The returned bool
// reports whether a lookup happened.
func (a *Advisor) resolveCoordinates(ctx context.Context, logger *slog.Logger, profile *types.GardenProfile) (bool, error) {
	if profile.Location.Lat != 0 || profile.Location.Lon != 0 {
		return false, nil
	}
	if profile.Location.Name == "" {
		return false, types.NewAppError(types.ErrCodeValidationMissingField,
			"garden profile has neither coordinates nor a town name", nil)
	}

	results, err := a.geocoder.Search(ctx, profile.Location.Name, 1)
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		return false, types.NewAppError(types.ErrCodeNotFoundPlace,
			fmt.Sprintf("no place found for %q", profile.Location.Name), nil)
	}

	r := results[0]
	profile.Location.Lat = r.Lat
	profile.Location.Lon = r.Lon
	if profile.AltitudeM == 0 && r.ElevationM != 0 {
		profile.AltitudeM = r.ElevationM
	}
	if profile.Timezone == "" && r.Timezone != "" {
		profile.Timezone = r.Timezone
	}

	logger.InfoContext(ctx, "resolved garden coordinates",
		"town", profile.Location.Name,
		"lat", r.Lat,
		"lon", r.Lon,
	)
	return true, nil
}

// ensureCoordinates resolves the profile's town name into coordinates
// when none are set, writing the result back so later cycles skip the
// lookup. A failed write-back only logs: the resolved coordinates are
// still good for this run.
func (a *Advisor) ensureCoordinates(ctx context.Context, logger *slog.Logger, profile *types.GardenProfile) error {
	resolved, err := a.resolveCoordinates(ctx, logger, profile)
	if err != nil || !resolved {
		return err
	}
	if err := a.garden.Save(ctx, profile); err != nil {
		logger.WarnContext(ctx, "failed to persist resolved coordinates",
			"error", err,
		)
	}
	return nil
}

// fetchSeries pulls live weather and prepares the compressed archive
// row that will be persisted with the cycle.
func (a *Advisor) fetchSeries(ctx context.Context, profile *types.GardenProfile, runDate time.Time) (*types.WeatherSeries, *types.WeatherArchive, error) {
	series, err := a.source.FetchDaily(ctx, profile.Location, profile.AltitudeM)
	if err != nil {
		return nil, nil, err
	}

	blob, err := a.codec.Compress(series)
	if err != nil {
		return nil, nil, err
	}

	archive := &types.WeatherArchive{
		ID:        "arc_" + uuid.New().String(),
		FetchDate: runDate,
		Lat:       profile.Location.Lat,
		Lon:       profile.Location.Lon,
		Payload:   blob,
	}
	return series, archive, nil
}

// archivedSeries restores the weather a past cycle ran with. No new
// archive row is produced; the stored one stays authoritative.
func (a *Advisor) archivedSeries(ctx context.Context, runDate time.Time) (*types.WeatherSeries, error) {
	arc, err := a.archives.GetByDate(ctx, runDate)
	if err != nil {
		return nil, err
	}
	return a.codec.Decompress(arc.Payload)
}
