package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"potager/internal/types"
	"potager/internal/weather"
)

// --- Test Doubles ---

// stubRef is a minimal ReferenceData with fixed crop coefficients and
// a single soil profile.
type stubRef struct {
	kc   map[string]float64
	soil map[types.SoilType]types.SoilProfile
}

func newStubRef() *stubRef {
	return &stubRef{
		kc: map[string]float64{"salade": 1.0, "tomate": 2.0},
		soil: map[types.SoilType]types.SoilProfile{
			types.SoilLoamy: {Type: types.SoilLoamy, Retention: 1.0, ThresholdMM: 20},
		},
	}
}

func (r *stubRef) FamilyOf(plant string) (types.PlantFamily, bool) {
	return types.PlantFamily{}, false
}

func (r *stubRef) Kc(plant string) (float64, bool) {
	kc, ok := r.kc[plant]
	return kc, ok
}

func (r *stubRef) Detail(plant string) (types.PlantDetail, bool) {
	return types.PlantDetail{}, false
}

func (r *stubRef) Families() []types.PlantFamily { return nil }

func (r *stubRef) Soil(t types.SoilType) (types.SoilProfile, bool) {
	s, ok := r.soil[t]
	return s, ok
}

func (r *stubRef) MulchFactor() float64 { return 0.7 }

func (r *stubRef) ContainerFactor() float64 { return 1.1 }

func (r *stubRef) TipsFor(month int) (types.MonthlyTip, bool) {
	return types.MonthlyTip{}, false
}

var _ types.ReferenceData = (*stubRef)(nil)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeGarden struct {
	profile *types.GardenProfile
	getErr  error
	saved   *types.GardenProfile
	saveErr error
}

func (g *fakeGarden) Get(ctx context.Context) (*types.GardenProfile, error) {
	return g.profile, g.getErr
}

func (g *fakeGarden) Save(ctx context.Context, p *types.GardenProfile) error {
	if g.saveErr != nil {
		return g.saveErr
	}
	g.saved = p
	return nil
}

type fakeJournal struct {
	waterings []types.WateringEvent
	listErr   error
	lastMow   *types.MowingEvent
	mowErr    error
	gotFrom   time.Time
	gotTo     time.Time
}

func (j *fakeJournal) ListWaterings(ctx context.Context, from, to time.Time) ([]types.WateringEvent, error) {
	j.gotFrom, j.gotTo = from, to
	return j.waterings, j.listErr
}

func (j *fakeJournal) LatestMowing(ctx context.Context) (*types.MowingEvent, error) {
	return j.lastMow, j.mowErr
}

type fakeState struct {
	state *types.DeficitState
	err   error
}

func (s *fakeState) Load(ctx context.Context) (*types.DeficitState, error) {
	return s.state, s.err
}

type fakeLocks struct {
	held     bool
	err      error
	gotLock  string
	gotOwner string
	gotTTL   time.Duration
	acquires int
}

func (l *fakeLocks) Acquire(ctx context.Context, lockID, workerID string, ttl time.Duration) (bool, error) {
	l.acquires++
	l.gotLock, l.gotOwner, l.gotTTL = lockID, workerID, ttl
	return l.held, l.err
}

type fakeArchives struct {
	archive *types.WeatherArchive
	err     error
	gotDate time.Time
	calls   int
}

func (a *fakeArchives) GetByDate(ctx context.Context, fetchDate time.Time) (*types.WeatherArchive, error) {
	a.calls++
	a.gotDate = fetchDate
	return a.archive, a.err
}

type fakePersister struct {
	state   *types.DeficitState
	snap    *types.AdviceSnapshot
	archive *types.WeatherArchive
	err     error
	calls   int
}

func (p *fakePersister) PersistCycle(ctx context.Context, state *types.DeficitState, snap *types.AdviceSnapshot, archive *types.WeatherArchive) error {
	p.calls++
	p.state, p.snap, p.archive = state, snap, archive
	return p.err
}

type fakeReports struct {
	snap   *types.AdviceSnapshot
	email  string
	reason string
	err    error
	calls  int
}

func (r *fakeReports) TriggerReport(ctx context.Context, snap *types.AdviceSnapshot, email, reason string) error {
	r.calls++
	r.snap, r.email, r.reason = snap, email, reason
	return r.err
}

type fakeWeather struct {
	series   *types.WeatherSeries
	err      error
	gotPoint types.GeoPoint
	gotAlt   float64
	calls    int
}

func (w *fakeWeather) FetchDaily(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error) {
	w.calls++
	w.gotPoint, w.gotAlt = point, altitudeM
	return w.series, w.err
}

type fakeGeocoder struct {
	results []types.GeocodeResult
	err     error
	query   string
	calls   int
}

func (g *fakeGeocoder) Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	g.calls++
	g.query = query
	return g.results, g.err
}

type recordingMetrics struct {
	succeeded    int
	failed       int
	lastTrigger  types.CycleTrigger
	assessed     int
	needingWater int
	weatherFails int
	queued       int
}

func (m *recordingMetrics) CycleSucceeded(_ context.Context, tr types.CycleTrigger, _ time.Duration) {
	m.succeeded++
	m.lastTrigger = tr
}

func (m *recordingMetrics) CycleFailed(_ context.Context, tr types.CycleTrigger, _ time.Duration) {
	m.failed++
	m.lastTrigger = tr
}

func (m *recordingMetrics) RecordAssessments(_ context.Context, assessed, needingWater int) {
	m.assessed, m.needingWater = assessed, needingWater
}

func (m *recordingMetrics) WeatherFetchFailed(context.Context) { m.weatherFails++ }

func (m *recordingMetrics) ReportQueued(context.Context) { m.queued++ }

// --- Fixture ---

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// flatSeries builds n consecutive days of identical weather starting at start.
func flatSeries(start time.Time, n int, tempC, rainMM, et0MM float64) *types.WeatherSeries {
	s := &types.WeatherSeries{}
	for i := 0; i < n; i++ {
		s.Days = append(s.Days, types.WeatherDay{
			Date:     types.AddDays(start, i),
			TempMaxC: tempC,
			RainMM:   rainMM,
			ET0MM:    et0MM,
		})
	}
	return s
}

type fixture struct {
	garden   *fakeGarden
	journal  *fakeJournal
	state    *fakeState
	locks    *fakeLocks
	archives *fakeArchives
	persist  *fakePersister
	reports  *fakeReports
	source   *fakeWeather
	geocoder *fakeGeocoder
	metrics  *recordingMetrics
}

// newFixture wires a full happy-path setup: the clock reads
// 2026-06-15, the profile has coordinates, and the series covers the
// lookback window plus two weeks of forecast.
func newFixture() *fixture {
	runDate := day(2026, 6, 15)
	return &fixture{
		garden: &fakeGarden{profile: &types.GardenProfile{
			Location:  types.GeoPoint{Lat: 45.76, Lon: 4.84, Name: "Lyon"},
			AltitudeM: 173,
			Timezone:  "Europe/Paris",
			Soil:      types.SoilLoamy,
			Plants: types.TrackedPlantList{
				{Name: "tomate", Modes: []types.CultivationMode{types.ModeOpenGround}},
				{Name: "salade", Modes: []types.CultivationMode{types.ModeOpenGround}},
			},
			Lawn:  types.LawnConfig{TargetHeightCM: 5},
			Email: "gardener@example.com",
		}},
		journal:  &fakeJournal{},
		state:    &fakeState{},
		locks:    &fakeLocks{held: true},
		archives: &fakeArchives{},
		persist:  &fakePersister{},
		reports:  &fakeReports{},
		source:   &fakeWeather{series: flatSeries(types.AddDays(runDate, -6), 21, 22, 0.5, 2)},
		geocoder: &fakeGeocoder{},
		metrics:  &recordingMetrics{},
	}
}

func (f *fixture) advisor() *Advisor {
	return New(Config{
		Garden:       f.garden,
		Journal:      f.journal,
		State:        f.state,
		Locks:        f.locks,
		Archives:     f.archives,
		Persister:    f.persist,
		Reports:      f.reports,
		Weather:      f.source,
		Geocoder:     f.geocoder,
		Ref:          newStubRef(),
		Codec:        weather.NewCodec(),
		Metrics:      f.metrics,
		Clock:        fixedClock{now: time.Date(2026, 6, 15, 6, 0, 0, 0, time.UTC)},
		Logger:       slog.Default(),
		WorkerID:     "test-worker",
		LockTTL:      10 * time.Minute,
		LookbackDays: 7,
	})
}

func appCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

// --- Run Tests ---

func TestRun_HappyPath(t *testing.T) {
	f := newFixture()
	snap, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.HasPrefix(snap.ID, "adv_") {
		t.Errorf("snapshot ID = %q, want adv_ prefix", snap.ID)
	}
	if !strings.HasPrefix(snap.CycleID, "cyc_") {
		t.Errorf("cycle ID = %q, want cyc_ prefix", snap.CycleID)
	}
	if snap.Trigger != types.TriggerScheduled {
		t.Errorf("trigger = %q, want scheduled default", snap.Trigger)
	}
	if !snap.RunDate.Equal(day(2026, 6, 15)) {
		t.Errorf("run date = %v, want 2026-06-15", snap.RunDate)
	}

	if len(snap.Units) != 2 {
		t.Fatalf("assessed %d units, want 2", len(snap.Units))
	}
	if snap.Units[0].Plant != "salade" || snap.Units[1].Plant != "tomate" {
		t.Errorf("unit order = [%s %s], want [salade tomate]", snap.Units[0].Plant, snap.Units[1].Plant)
	}
	// 2 mm ET0 x kc 2.0 minus 0.5 mm rain over 7 days puts the tomato
	// past the 20 mm threshold.
	if !snap.Units[1].Advice.ActionRequired() {
		t.Errorf("tomate advice = %q, want action required", snap.Units[1].Advice)
	}
	if snap.NextWatering == nil {
		t.Error("next watering date is nil, want a forecast crossing")
	}
	if snap.Lawn.MowNow {
		t.Error("lawn flagged for mowing from target height with mild growth")
	}

	if f.persist.calls != 1 {
		t.Fatalf("PersistCycle called %d times, want 1", f.persist.calls)
	}
	if !f.persist.state.RunDate.Equal(snap.RunDate) {
		t.Errorf("state run date = %v, want %v", f.persist.state.RunDate, snap.RunDate)
	}
	if len(f.persist.state.Deficits) != 2 {
		t.Errorf("state has %d deficits, want 2", len(f.persist.state.Deficits))
	}
	if f.persist.state.LawnHeightCM != snap.Lawn.HeightCM {
		t.Errorf("state lawn height = %v, snapshot has %v", f.persist.state.LawnHeightCM, snap.Lawn.HeightCM)
	}
	if f.persist.archive == nil {
		t.Fatal("no weather archive persisted")
	}
	if !f.persist.archive.FetchDate.Equal(snap.RunDate) {
		t.Errorf("archive fetch date = %v, want %v", f.persist.archive.FetchDate, snap.RunDate)
	}
	if len(f.persist.archive.Payload) == 0 {
		t.Error("archive payload is empty")
	}
	if f.persist.archive.Lat != 45.76 || f.persist.archive.Lon != 4.84 {
		t.Errorf("archive location = (%v, %v), want (45.76, 4.84)", f.persist.archive.Lat, f.persist.archive.Lon)
	}

	if f.source.gotAlt != 173 {
		t.Errorf("weather fetch altitude = %v, want 173", f.source.gotAlt)
	}
	if f.geocoder.calls != 0 {
		t.Error("geocoder called although coordinates are set")
	}

	if f.reports.calls != 1 {
		t.Fatalf("TriggerReport called %d times, want 1", f.reports.calls)
	}
	if f.reports.email != "gardener@example.com" {
		t.Errorf("report email = %q", f.reports.email)
	}
	if f.reports.reason != "cycle_completed" {
		t.Errorf("report reason = %q, want cycle_completed", f.reports.reason)
	}
	if f.reports.snap != snap {
		t.Error("report enqueued with a different snapshot")
	}

	if f.metrics.succeeded != 1 || f.metrics.failed != 0 {
		t.Errorf("metrics succeeded=%d failed=%d, want 1/0", f.metrics.succeeded, f.metrics.failed)
	}
	if f.metrics.assessed != 2 || f.metrics.needingWater != 1 {
		t.Errorf("metrics assessed=%d needingWater=%d, want 2/1", f.metrics.assessed, f.metrics.needingWater)
	}
	if f.metrics.queued != 1 {
		t.Errorf("metrics queued=%d, want 1", f.metrics.queued)
	}

	if f.locks.gotLock != "advisor_cycle:2026-06-15" {
		t.Errorf("lock ID = %q", f.locks.gotLock)
	}
	if f.locks.gotOwner != "test-worker" || f.locks.gotTTL != 10*time.Minute {
		t.Errorf("lock owner/ttl = %q/%v", f.locks.gotOwner, f.locks.gotTTL)
	}
}

func TestRun_JournalWindowCoversLookback(t *testing.T) {
	f := newFixture()
	if _, err := f.advisor().Run(context.Background(), RunInput{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !f.journal.gotFrom.Equal(day(2026, 6, 9)) {
		t.Errorf("journal from = %v, want 2026-06-09", f.journal.gotFrom)
	}
	if !f.journal.gotTo.Equal(day(2026, 6, 15)) {
		t.Errorf("journal to = %v, want 2026-06-15", f.journal.gotTo)
	}
}

func TestRun_LockConflictSkips(t *testing.T) {
	f := newFixture()
	f.locks.held = false

	_, err := f.advisor().Run(context.Background(), RunInput{Trigger: types.TriggerManual})
	if code := appCode(t, err); code != types.ErrCodeConflictCycleRunning {
		t.Errorf("error code = %q, want conflict_cycle_already_running", code)
	}

	if f.source.calls != 0 {
		t.Error("weather fetched despite lock conflict")
	}
	if f.persist.calls != 0 {
		t.Error("cycle persisted despite lock conflict")
	}
	// A skip is not a failure.
	if f.metrics.failed != 0 || f.metrics.succeeded != 0 {
		t.Errorf("metrics succeeded=%d failed=%d, want 0/0", f.metrics.succeeded, f.metrics.failed)
	}
}

func TestRun_LockErrorFailsCycle(t *testing.T) {
	f := newFixture()
	f.locks.err = types.NewAppError(types.ErrCodeInternalDB, "failed to acquire job lock", errors.New("down"))

	_, err := f.advisor().Run(context.Background(), RunInput{})
	if code := appCode(t, err); code != types.ErrCodeInternalDB {
		t.Errorf("error code = %q, want internal_database_error", code)
	}
	if f.metrics.failed != 1 {
		t.Errorf("failure metric = %d, want 1", f.metrics.failed)
	}
}

func TestRun_WeatherFailureAbortsCycle(t *testing.T) {
	f := newFixture()
	f.source.series = nil
	f.source.err = types.NewAppError(types.ErrCodeUpstreamWeather, "provider unreachable", nil)

	_, err := f.advisor().Run(context.Background(), RunInput{})
	if code := appCode(t, err); code != types.ErrCodeUpstreamWeather {
		t.Errorf("error code = %q, want upstream_weather_unavailable", code)
	}

	if f.persist.calls != 0 {
		t.Error("cycle persisted despite weather failure")
	}
	if f.metrics.weatherFails != 1 {
		t.Errorf("weather failure metric = %d, want 1", f.metrics.weatherFails)
	}
	if f.metrics.failed != 1 {
		t.Errorf("failure metric = %d, want 1", f.metrics.failed)
	}
}

func TestRun_PersistFailureFailsCycle(t *testing.T) {
	f := newFixture()
	f.persist.err = types.NewAppError(types.ErrCodeInternalDB, "failed to commit cycle transaction", nil)

	_, err := f.advisor().Run(context.Background(), RunInput{})
	if code := appCode(t, err); code != types.ErrCodeInternalDB {
		t.Errorf("error code = %q, want internal_database_error", code)
	}
	if f.reports.calls != 0 {
		t.Error("report enqueued although persistence failed")
	}
	if f.metrics.failed != 1 {
		t.Errorf("failure metric = %d, want 1", f.metrics.failed)
	}
}

func TestRun_GeocodesWhenCoordinatesUnset(t *testing.T) {
	f := newFixture()
	f.garden.profile.Location = types.GeoPoint{Name: "Lyon"}
	f.garden.profile.AltitudeM = 0
	f.garden.profile.Timezone = ""
	f.geocoder.results = []types.GeocodeResult{
		{Name: "Lyon", Lat: 45.76, Lon: 4.84, ElevationM: 173, Timezone: "Europe/Paris"},
	}

	if _, err := f.advisor().Run(context.Background(), RunInput{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if f.geocoder.query != "Lyon" {
		t.Errorf("geocode query = %q, want Lyon", f.geocoder.query)
	}
	if f.source.gotPoint.Lat != 45.76 || f.source.gotPoint.Lon != 4.84 {
		t.Errorf("weather fetched at (%v, %v), want resolved coordinates", f.source.gotPoint.Lat, f.source.gotPoint.Lon)
	}
	if f.source.gotAlt != 173 {
		t.Errorf("weather fetch altitude = %v, want resolved 173", f.source.gotAlt)
	}

	if f.garden.saved == nil {
		t.Fatal("resolved coordinates not written back")
	}
	if f.garden.saved.Location.Lat != 45.76 || f.garden.saved.Timezone != "Europe/Paris" {
		t.Errorf("written-back profile = %+v", f.garden.saved.Location)
	}
}

func TestRun_GeocodeWriteBackFailureContinues(t *testing.T) {
	f := newFixture()
	f.garden.profile.Location = types.GeoPoint{Name: "Lyon"}
	f.garden.saveErr = types.NewAppError(types.ErrCodeInternalDB, "failed to save garden profile", nil)
	f.geocoder.results = []types.GeocodeResult{{Name: "Lyon", Lat: 45.76, Lon: 4.84}}

	snap, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap == nil {
		t.Fatal("no snapshot returned")
	}
}

func TestRun_GeocodeNoMatch(t *testing.T) {
	f := newFixture()
	f.garden.profile.Location = types.GeoPoint{Name: "Atlantide"}
	f.geocoder.results = nil

	_, err := f.advisor().Run(context.Background(), RunInput{})
	if code := appCode(t, err); code != types.ErrCodeNotFoundPlace {
		t.Errorf("error code = %q, want not_found_place", code)
	}
}

func TestRun_NoCoordinatesNoTown(t *testing.T) {
	f := newFixture()
	f.garden.profile.Location = types.GeoPoint{}

	_, err := f.advisor().Run(context.Background(), RunInput{})
	if code := appCode(t, err); code != types.ErrCodeValidationMissingField {
		t.Errorf("error code = %q, want validation_missing_required_field", code)
	}
}

func TestRun_UnknownPlantSkippedWithWarning(t *testing.T) {
	f := newFixture()
	f.garden.profile.Plants = types.TrackedPlantList{
		{Name: "rhubarbe", Modes: []types.CultivationMode{types.ModeOpenGround}},
		{Name: "tomate", Modes: []types.CultivationMode{types.ModeOpenGround}},
	}

	snap, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(snap.Units) != 1 || snap.Units[0].Plant != "tomate" {
		t.Fatalf("assessed units = %+v, want only tomate", snap.Units)
	}
	found := false
	for _, w := range snap.Warnings {
		if strings.Contains(w, "rhubarbe") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want one naming rhubarbe", snap.Warnings)
	}
}

func TestRun_StateLoadFailureContinues(t *testing.T) {
	f := newFixture()
	f.state.err = types.NewAppError(types.ErrCodeInternalDB, "failed to load deficit state", nil)

	if _, err := f.advisor().Run(context.Background(), RunInput{}); err != nil {
		t.Fatalf("Run() error = %v, checkpoint load must not abort the cycle", err)
	}
	if f.persist.calls != 1 {
		t.Errorf("PersistCycle called %d times, want 1", f.persist.calls)
	}
}

func TestRun_ReportEnqueueFailureDoesNotFailCycle(t *testing.T) {
	f := newFixture()
	f.reports.err = errors.New("queue: failed to send ReportMessage")

	snap, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v, enqueue failure must not discard persisted advice", err)
	}
	if snap == nil {
		t.Fatal("no snapshot returned")
	}
	if f.metrics.queued != 0 {
		t.Errorf("queued metric = %d, want 0 after enqueue failure", f.metrics.queued)
	}
	if f.metrics.succeeded != 1 {
		t.Errorf("success metric = %d, want 1", f.metrics.succeeded)
	}
}

func TestRun_NoEmailSkipsReport(t *testing.T) {
	f := newFixture()
	f.garden.profile.Email = ""

	if _, err := f.advisor().Run(context.Background(), RunInput{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if f.reports.calls != 0 {
		t.Error("report enqueued although no email is configured")
	}
	if f.metrics.queued != 0 {
		t.Errorf("queued metric = %d, want 0", f.metrics.queued)
	}
}

func TestRun_MowDueSetsNextMowToRunDate(t *testing.T) {
	f := newFixture()
	cut := 8.0
	f.journal.lastMow = &types.MowingEvent{
		ID:          "mow_1",
		Date:        day(2026, 6, 10),
		CutHeightCM: &cut,
	}

	snap, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Cut at 8 cm against a 5 cm target: already past the 7.5 cm
	// mowing threshold before any growth.
	if !snap.Lawn.MowNow {
		t.Fatalf("lawn height %.2f not flagged for mowing", snap.Lawn.HeightCM)
	}
	if snap.Lawn.NextMowDate == nil || !snap.Lawn.NextMowDate.Equal(snap.RunDate) {
		t.Errorf("next mow date = %v, want run date", snap.Lawn.NextMowDate)
	}
	if snap.Lawn.LastMowedAt == nil || !snap.Lawn.LastMowedAt.Equal(day(2026, 6, 10)) {
		t.Errorf("last mowed = %v, want 2026-06-10", snap.Lawn.LastMowedAt)
	}
}

func TestRun_InvalidDate(t *testing.T) {
	f := newFixture()
	_, err := f.advisor().Run(context.Background(), RunInput{Date: "15/06/2026"})
	if code := appCode(t, err); code != types.ErrCodeValidationInvalidDate {
		t.Errorf("error code = %q, want validation_invalid_date", code)
	}
	if f.locks.acquires != 0 {
		t.Error("lock acquired for an invalid date")
	}
}

func TestRun_ReplayUsesArchivedWeather(t *testing.T) {
	f := newFixture()
	codec := weather.NewCodec()
	archived := flatSeries(day(2026, 6, 4), 21, 22, 0.5, 2)
	blob, err := codec.Compress(archived)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	f.archives.archive = &types.WeatherArchive{
		ID:        "arc_old",
		FetchDate: day(2026, 6, 10),
		Lat:       45.76,
		Lon:       4.84,
		Payload:   blob,
	}

	snap, err := f.advisor().Run(context.Background(), RunInput{
		Trigger: types.TriggerReplay,
		Date:    "2026-06-10",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if f.source.calls != 0 {
		t.Error("live weather fetched during replay")
	}
	if f.archives.calls != 1 || !f.archives.gotDate.Equal(day(2026, 6, 10)) {
		t.Errorf("archive lookup calls=%d date=%v, want 1 lookup for 2026-06-10", f.archives.calls, f.archives.gotDate)
	}
	if !snap.RunDate.Equal(day(2026, 6, 10)) {
		t.Errorf("run date = %v, want 2026-06-10", snap.RunDate)
	}
	if snap.Trigger != types.TriggerReplay {
		t.Errorf("trigger = %q, want replay", snap.Trigger)
	}
	// The replayed cycle must not rewrite the archive row.
	if f.persist.archive != nil {
		t.Error("replay persisted a new archive row")
	}
	if f.locks.gotLock != "advisor_cycle:2026-06-10" {
		t.Errorf("lock ID = %q, want the replayed date", f.locks.gotLock)
	}
}

func TestRun_ReplayMissingArchive(t *testing.T) {
	f := newFixture()
	f.archives.err = types.NewAppError(types.ErrCodeNotFoundArchive, "no weather archive for date", nil)

	_, err := f.advisor().Run(context.Background(), RunInput{
		Trigger: types.TriggerReplay,
		Date:    "2026-06-10",
	})
	if code := appCode(t, err); code != types.ErrCodeNotFoundArchive {
		t.Errorf("error code = %q, want not_found_weather_archive", code)
	}
	if f.persist.calls != 0 {
		t.Error("cycle persisted without weather")
	}
}

func TestRun_ManualTriggerRecorded(t *testing.T) {
	f := newFixture()
	snap, err := f.advisor().Run(context.Background(), RunInput{Trigger: types.TriggerManual})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if snap.Trigger != types.TriggerManual {
		t.Errorf("trigger = %q, want manual", snap.Trigger)
	}
	if f.metrics.lastTrigger != types.TriggerManual {
		t.Errorf("metric trigger = %q, want manual", f.metrics.lastTrigger)
	}
}

// --- Preview Tests ---

func TestPreview_ComputesWithoutWriting(t *testing.T) {
	f := newFixture()
	snap, err := f.advisor().Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if !snap.RunDate.Equal(day(2026, 6, 15)) {
		t.Errorf("run date = %v, want today on the advisor clock", snap.RunDate)
	}
	if snap.Trigger != types.TriggerManual {
		t.Errorf("trigger = %q, want manual", snap.Trigger)
	}
	if snap.CycleID != "" {
		t.Errorf("cycle ID = %q, want empty for a preview", snap.CycleID)
	}
	if len(snap.Units) != 2 {
		t.Fatalf("assessed %d units, want 2", len(snap.Units))
	}
	if !snap.Units[1].Advice.ActionRequired() {
		t.Errorf("tomate advice = %q, want action required", snap.Units[1].Advice)
	}

	if f.locks.acquires != 0 {
		t.Error("preview acquired the cycle lock")
	}
	if f.persist.calls != 0 {
		t.Error("preview persisted a cycle")
	}
	if f.reports.calls != 0 {
		t.Error("preview enqueued a report")
	}
	if f.metrics.succeeded != 0 || f.metrics.failed != 0 {
		t.Error("preview recorded cycle metrics")
	}
}

func TestPreview_MatchesCycleAssessment(t *testing.T) {
	f := newFixture()
	preview, err := f.advisor().Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	cycle, err := f.advisor().Run(context.Background(), RunInput{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(preview.Units) != len(cycle.Units) {
		t.Fatalf("preview assessed %d units, cycle %d", len(preview.Units), len(cycle.Units))
	}
	for i := range cycle.Units {
		if preview.Units[i] != cycle.Units[i] {
			t.Errorf("unit %d: preview %+v, cycle %+v", i, preview.Units[i], cycle.Units[i])
		}
	}
	if preview.Lawn.HeightCM != cycle.Lawn.HeightCM {
		t.Errorf("lawn height: preview %v, cycle %v", preview.Lawn.HeightCM, cycle.Lawn.HeightCM)
	}
}

func TestPreview_GeocodesWithoutWriteBack(t *testing.T) {
	f := newFixture()
	f.garden.profile.Location = types.GeoPoint{Name: "Lyon"}
	f.geocoder.results = []types.GeocodeResult{
		{Name: "Lyon", Lat: 45.76, Lon: 4.84, ElevationM: 173, Timezone: "Europe/Paris"},
	}

	if _, err := f.advisor().Preview(context.Background()); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if f.geocoder.calls != 1 {
		t.Fatalf("geocoder called %d times, want 1", f.geocoder.calls)
	}
	if f.source.gotPoint.Lat != 45.76 || f.source.gotPoint.Lon != 4.84 {
		t.Errorf("weather fetched at (%v, %v), want resolved coordinates", f.source.gotPoint.Lat, f.source.gotPoint.Lon)
	}
	if f.garden.saved != nil {
		t.Error("preview wrote resolved coordinates back to the profile")
	}
}

func TestPreview_WeatherFailure(t *testing.T) {
	f := newFixture()
	f.source.err = types.NewAppError(types.ErrCodeUpstreamWeather, "open-meteo returned 503", nil)

	_, err := f.advisor().Preview(context.Background())
	if code := appCode(t, err); code != types.ErrCodeUpstreamWeather {
		t.Errorf("error code = %q, want upstream_weather_unavailable", code)
	}
}
