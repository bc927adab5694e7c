// Package main implements the journal-import CLI tool for loading the
// historical JSON files of the garden into Postgres.
//
// The legacy app kept three files next to the script: user preferences
// (parametres_utilisateur.json), the watering and mowing journal
// (journal_jardin.json) and the accumulated deficit state
// (etat_jardin.json). This tool decodes their mixed legacy shapes,
// normalizes them to the current model and writes them through the
// regular repositories. Malformed or unknown entries are skipped with a
// warning; the rest import.
//
// Usage:
//
//	go run ./cmd/tools/journal-import --prefs=parametres_utilisateur.json --email=gardener@example.com
//	go run ./cmd/tools/journal-import --journal=journal_jardin.json
//	go run ./cmd/tools/journal-import --prefs=prefs.json --journal=journal.json --state=etat_jardin.json
//	go run ./cmd/tools/journal-import --dry-run --prefs=prefs.json --journal=journal.json
//
// The tool reads DATABASE_URL from environment variables (or a .env
// file via godotenv). The preferences file only names the town, so the
// profile import resolves coordinates through the public geocoding
// endpoint; --town overrides the stored name. In --dry-run mode the
// files are parsed and the import is summarized without touching the
// database or the network.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"potager/internal/catalog"
	"potager/internal/db"
	"potager/internal/journal"
	"potager/internal/types"
	"potager/internal/weather"
)

// defaultLawnTargetCM matches the legacy app's mowing default; the old
// files carry no lawn configuration at all.
const defaultLawnTargetCM = 5

// legacyPrefs mirrors parametres_utilisateur.json.
type legacyPrefs struct {
	Plants  map[string]legacyPlantConfig `json:"plantes_config"`
	Mulched bool                         `json:"paillage"`
	Soil    string                       `json:"type_sol"`
	Town    string                       `json:"ville"`
}

type legacyPlantConfig struct {
	Modes []string `json:"mode"`
}

// legacyState mirrors etat_jardin.json. Deficits are keyed by plant
// family, not by unit; the import fans each family value out to the
// tracked units of that family.
type legacyState struct {
	UpdatedAt string             `json:"date_derniere_maj"`
	Deficits  map[string]float64 `json:"deficits_accumules"`
}

// legacyModes maps the cultivation mode tags of the old preferences
// file to the current enum.
var legacyModes = map[string]types.CultivationMode{
	"pleine_terre": types.ModeOpenGround,
	"bac":          types.ModeContainer,
	"bac_couvert":  types.ModeCoveredContainer,
}

// legacySoils maps the capitalized French soil labels of the old
// preferences file.
var legacySoils = map[string]types.SoilType{
	"sableux":  types.SoilSandy,
	"limoneux": types.SoilLoamy,
	"argileux": types.SoilClay,
}

type options struct {
	prefsPath   string
	journalPath string
	statePath   string
	town        string
	email       string
	lawnHeight  float64
	catalogPath string
	dryRun      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.prefsPath, "prefs", "", "Path to parametres_utilisateur.json (imports the garden profile)")
	flag.StringVar(&opts.journalPath, "journal", "", "Path to journal_jardin.json (imports watering and mowing events)")
	flag.StringVar(&opts.statePath, "state", "", "Path to etat_jardin.json (imports the deficit state; requires --prefs)")
	flag.StringVar(&opts.town, "town", "", "Override the town name stored in the preferences file")
	flag.StringVar(&opts.email, "email", "", "Report recipient for the imported profile")
	flag.Float64Var(&opts.lawnHeight, "lawn-height", defaultLawnTargetCM, "Lawn target height in cm for the imported profile")
	flag.StringVar(&opts.catalogPath, "catalog", "", "Optional reference data override file")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Parse the files and summarize without writing to the database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: journal-import [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Import the legacy garden JSON files into Postgres.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if opts.prefsPath == "" && opts.journalPath == "" && opts.statePath == "" {
		fmt.Fprintf(os.Stderr, "error: nothing to import, pass at least one of --prefs, --journal, --state\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if opts.statePath != "" && opts.prefsPath == "" {
		fmt.Fprintf(os.Stderr, "error: --state needs --prefs, the deficit state is expanded over the tracked plants\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load .env for local development (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded (this is fine in production)", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runImport(ctx, opts, logger); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}

// parsedInput holds everything decoded from the legacy files before any
// database work starts, so a broken file aborts the import up front.
type parsedInput struct {
	prefs    *legacyPrefs
	soil     types.SoilType
	plants   types.TrackedPlantList
	journal  *journal.LegacyJournal
	state    *legacyState
	warnings []string
}

func runImport(ctx context.Context, opts options, logger *slog.Logger) error {
	cat, err := catalog.New(opts.catalogPath)
	if err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}

	in, err := parseFiles(opts, cat)
	if err != nil {
		return err
	}
	for _, w := range in.warnings {
		logger.Warn("skipped legacy entry", "detail", w)
	}

	if opts.dryRun {
		summarize(in, opts, logger)
		return nil
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	logger.Info("database connection established")

	var profile *types.GardenProfile
	if in.prefs != nil {
		profile, err = buildProfile(ctx, in, opts, logger)
		if err != nil {
			return err
		}
		if err := db.NewGardenRepository(pool).Save(ctx, profile); err != nil {
			return fmt.Errorf("saving garden profile: %w", err)
		}
		logger.Info("garden profile imported",
			"town", profile.Location.Name,
			"soil", string(profile.Soil),
			"mulched", profile.Mulched,
			"plants", len(profile.Plants),
			"units", len(profile.Units()),
		)
	}

	if in.journal != nil {
		waterings, mowings, err := importJournal(ctx, db.NewJournalRepository(pool), in.journal)
		if err != nil {
			return err
		}
		logger.Info("journal imported", "waterings", waterings, "mowings", mowings)
	}

	if in.state != nil {
		state, warnings, err := buildState(in, profile, cat, opts)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			logger.Warn("deficit state gap", "detail", w)
		}
		if err := db.NewStateRepository(pool).Save(ctx, state); err != nil {
			return fmt.Errorf("saving deficit state: %w", err)
		}
		logger.Info("deficit state imported",
			"run_date", types.FormatDay(state.RunDate),
			"units", len(state.Deficits),
			"lawn_height_cm", state.LawnHeightCM,
		)
	}

	logger.Info("import complete", "warnings", len(in.warnings))
	return nil
}

// parseFiles decodes every requested legacy file. Entry-level problems
// become warnings; a file that cannot be read or decoded at all is an
// error.
func parseFiles(opts options, cat *catalog.Catalog) (*parsedInput, error) {
	in := &parsedInput{}

	if opts.prefsPath != "" {
		raw, err := os.ReadFile(opts.prefsPath)
		if err != nil {
			return nil, fmt.Errorf("reading preferences file: %w", err)
		}
		var prefs legacyPrefs
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return nil, fmt.Errorf("decoding preferences file: %w", err)
		}
		in.prefs = &prefs

		soil, ok := legacySoils[strings.ToLower(strings.TrimSpace(prefs.Soil))]
		if !ok {
			in.warnings = append(in.warnings, fmt.Sprintf(
				"unknown soil type %q, defaulting to %s", prefs.Soil, types.SoilLoamy))
			soil = types.SoilLoamy
		}
		in.soil = soil

		plants, warnings := convertPlants(prefs.Plants, cat)
		in.plants = plants
		in.warnings = append(in.warnings, warnings...)
		if len(plants) == 0 {
			return nil, fmt.Errorf("preferences file tracks no importable plant")
		}
	}

	if opts.journalPath != "" {
		raw, err := os.ReadFile(opts.journalPath)
		if err != nil {
			return nil, fmt.Errorf("reading journal file: %w", err)
		}
		parsed, err := journal.ParseLegacyJournal(raw)
		if err != nil {
			return nil, err
		}
		in.journal = parsed
		in.warnings = append(in.warnings, parsed.Warnings...)
	}

	if opts.statePath != "" {
		raw, err := os.ReadFile(opts.statePath)
		if err != nil {
			return nil, fmt.Errorf("reading state file: %w", err)
		}
		var state legacyState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("decoding state file: %w", err)
		}
		in.state = &state
	}

	return in, nil
}

// convertPlants turns the legacy plant map into the tracked plant list,
// dropping unknown plants and unknown cultivation modes with warnings.
func convertPlants(legacy map[string]legacyPlantConfig, cat *catalog.Catalog) (types.TrackedPlantList, []string) {
	var plants types.TrackedPlantList
	var warnings []string

	for name, cfg := range legacy {
		normalized := catalog.NormalizeName(name)
		if _, ok := cat.FamilyOf(normalized); !ok {
			warnings = append(warnings, fmt.Sprintf("unknown plant %q, skipping it", name))
			continue
		}

		var modes []types.CultivationMode
		for _, m := range cfg.Modes {
			mode, ok := legacyModes[m]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("unknown cultivation mode %q on plant %q, skipping it", m, name))
				continue
			}
			modes = append(modes, mode)
		}
		if len(modes) == 0 {
			warnings = append(warnings, fmt.Sprintf("plant %q has no usable cultivation mode, skipping it", name))
			continue
		}

		plants = append(plants, types.TrackedPlant{Name: normalized, Modes: modes})
	}

	sort.Slice(plants, func(i, j int) bool { return plants[i].Name < plants[j].Name })
	return plants, warnings
}

// buildProfile assembles the garden profile, resolving the town to
// coordinates through the public geocoding endpoint.
func buildProfile(ctx context.Context, in *parsedInput, opts options, logger *slog.Logger) (*types.GardenProfile, error) {
	town := opts.town
	if town == "" {
		town = in.prefs.Town
	}
	if town == "" {
		return nil, fmt.Errorf("preferences file names no town, pass --town")
	}

	geocoder := weather.NewGeocodingClient(nil, "", logger)
	results, err := geocoder.Search(ctx, town, 1)
	if err != nil {
		return nil, fmt.Errorf("resolving town %q: %w", town, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("town %q not found by the geocoding provider", town)
	}
	place := results[0]

	timezone := place.Timezone
	if timezone == "" {
		timezone = "Europe/Paris"
	}

	if opts.email == "" {
		logger.Warn("no --email given, cycle reports will have no recipient until the profile is updated")
	}

	return &types.GardenProfile{
		Location:  types.GeoPoint{Lat: place.Lat, Lon: place.Lon, Name: place.Name},
		AltitudeM: place.ElevationM,
		Timezone:  timezone,
		Soil:      in.soil,
		Mulched:   in.prefs.Mulched,
		Plants:    in.plants,
		Lawn:      types.LawnConfig{TargetHeightCM: opts.lawnHeight},
		Email:     opts.email,
	}, nil
}

// importJournal writes the parsed events through the journal
// repository, minting IDs the way the API handlers do.
func importJournal(ctx context.Context, repo *db.JournalRepository, parsed *journal.LegacyJournal) (int, int, error) {
	for i := range parsed.Waterings {
		e := parsed.Waterings[i]
		e.ID = "wat_" + uuid.New().String()
		if err := repo.AddWatering(ctx, &e); err != nil {
			return 0, 0, fmt.Errorf("importing watering on %s: %w", types.FormatDay(e.Date), err)
		}
	}
	for i := range parsed.Mowings {
		e := parsed.Mowings[i]
		e.ID = "mow_" + uuid.New().String()
		if err := repo.AddMowing(ctx, &e); err != nil {
			return 0, 0, fmt.Errorf("importing mowing on %s: %w", types.FormatDay(e.Date), err)
		}
	}
	return len(parsed.Waterings), len(parsed.Mowings), nil
}

// buildState fans the per-family legacy deficits out to the tracked
// units. A family absent from the old file starts at zero with a
// warning; the lawn height starts at the last recorded cut, falling
// back to the target height.
func buildState(in *parsedInput, profile *types.GardenProfile, cat *catalog.Catalog, opts options) (*types.DeficitState, []string, error) {
	runDate, err := types.ParseDay(in.state.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("state file has invalid date_derniere_maj %q: %w", in.state.UpdatedAt, err)
	}

	var warnings []string
	var deficits types.UnitDeficitList
	for _, unit := range profile.Units() {
		fam, ok := cat.FamilyOf(unit.Plant)
		if !ok {
			// convertPlants already dropped unknown plants.
			continue
		}
		value, found := in.state.Deficits[fam.Name]
		if !found {
			warnings = append(warnings, fmt.Sprintf(
				"no legacy deficit for family %q (plant %q), starting at zero", fam.Name, unit.Plant))
		}
		deficits = append(deficits, types.UnitDeficit{
			Plant:     unit.Plant,
			Mode:      unit.Mode,
			DeficitMM: value,
		})
	}

	return &types.DeficitState{
		RunDate:      runDate,
		Deficits:     deficits,
		LawnHeightCM: lastCutHeight(in.journal, opts.lawnHeight),
		UpdatedAt:    time.Now().UTC(),
	}, warnings, nil
}

// lastCutHeight returns the height of the most recent mowing that
// recorded one, or the fallback.
func lastCutHeight(parsed *journal.LegacyJournal, fallback float64) float64 {
	height := fallback
	var latest time.Time
	if parsed == nil {
		return height
	}
	for _, m := range parsed.Mowings {
		if m.CutHeightCM == nil {
			continue
		}
		if latest.IsZero() || m.Date.After(latest) {
			latest = m.Date
			height = *m.CutHeightCM
		}
	}
	return height
}

// summarize reports what a real run would import.
func summarize(in *parsedInput, opts options, logger *slog.Logger) {
	attrs := []any{"warnings", len(in.warnings)}
	if in.prefs != nil {
		units := 0
		for _, p := range in.plants {
			units += len(p.Modes)
		}
		town := opts.town
		if town == "" {
			town = in.prefs.Town
		}
		attrs = append(attrs,
			"town", town,
			"soil", string(in.soil),
			"mulched", in.prefs.Mulched,
			"plants", len(in.plants),
			"units", units,
		)
	}
	if in.journal != nil {
		attrs = append(attrs,
			"waterings", len(in.journal.Waterings),
			"mowings", len(in.journal.Mowings),
		)
	}
	if in.state != nil {
		attrs = append(attrs,
			"state_date", in.state.UpdatedAt,
			"state_families", len(in.state.Deficits),
		)
	}
	logger.Info("dry run, nothing written", attrs...)
}
