// Package report renders advice snapshots into the plain-text daily
// report mailed to the gardener and served by the API. Rendering is
// deterministic: everything in the body comes from the snapshot, the
// weather series and the journal statistics passed in, so replaying a
// cycle reproduces the report byte for byte.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"potager/internal/engine"
	"potager/internal/types"
)

//go:embed templates/report.txt
var templateFS embed.FS

// forecastDetailDays caps the day-by-day table at one week even when
// the provider returned a longer horizon.
const forecastDetailDays = 7

const (
	unitNameWidth    = 24
	unitDeficitWidth = 10
	unitTableWidth   = 60
)

// Input carries everything one report needs. Snapshot is required.
// Series, Stats and Tip are optional: their sections are omitted when
// absent (a replayed cycle may have no archived weather, a fresh garden
// has no journal history).
type Input struct {
	Snapshot *types.AdviceSnapshot
	Series   *types.WeatherSeries
	Stats    *types.JournalStats
	Tip      *types.MonthlyTip
	// Location is the display name of the garden, e.g. "Lyon".
	Location string
	// LookbackDays labels the past-analysis section and bounds its
	// totals. Zero means the engine default.
	LookbackDays int
}

// RenderedReport is a subject line plus a plain-text body. Reports are
// text-only; the email sender leaves the HTML part empty.
type RenderedReport struct {
	Subject  string
	BodyText string
}

// Renderer renders reports from the embedded text template.
type Renderer struct {
	tmpl *texttemplate.Template
}

// NewRenderer parses the embedded template and returns a Renderer.
func NewRenderer() (*Renderer, error) {
	raw, err := templateFS.ReadFile("templates/report.txt")
	if err != nil {
		return nil, fmt.Errorf("report: failed to read report.txt: %w", err)
	}
	tmpl, err := texttemplate.New("report").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("report: failed to parse report.txt: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Subject returns the mail subject for a run date.
func Subject(runDate time.Time) string {
	return "Rapport potager du " + types.FormatDay(runDate)
}

// Render builds the report for one advice snapshot.
func (r *Renderer) Render(in Input) (*RenderedReport, error) {
	if in.Snapshot == nil {
		return nil, fmt.Errorf("report: snapshot is nil")
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildTemplateData(in)); err != nil {
		return nil, fmt.Errorf("report: failed to render report for cycle %s: %w", in.Snapshot.CycleID, err)
	}

	return &RenderedReport{
		Subject:  Subject(in.Snapshot.RunDate),
		BodyText: buf.String(),
	}, nil
}

// templateData is the flattened, pre-formatted view the template
// consumes. All number and date formatting happens here so the
// template stays layout-only.
type templateData struct {
	Date     string
	Location string

	HasWeather    bool
	LookbackDays  int
	RainPast      string
	ET0Past       string
	RainNext48    string
	HotThreshold  string
	HotDaysNext48 int
	ForecastLines []string

	Alerts []string

	UnitLines    []string
	NextWatering string

	Lawn lawnData

	Stats *statsData
	Tip   *tipData

	Warnings []string
}

type lawnData struct {
	Height    string
	Target    string
	Threshold string
	MowNow    bool
	NextMow   string
	LastMowed string
}

type statsData struct {
	From             string
	To               string
	WateringCount    int
	WateringInterval string
	MowingCount      int
	MowingInterval   string
}

type tipData struct {
	Title string
	Tips  []string
}

func buildTemplateData(in Input) templateData {
	snap := in.Snapshot
	lookback := in.LookbackDays
	if lookback <= 0 {
		lookback = engine.DefaultLookbackDays
	}

	data := templateData{
		Date:      types.FormatDay(snap.RunDate),
		Location:  in.Location,
		UnitLines: unitTable(snap.Units),
		Lawn:      buildLawnData(snap.Lawn),
		Warnings:  append([]string(nil), snap.Warnings...),
	}

	for _, a := range snap.Alerts {
		data.Alerts = append(data.Alerts, a.Message)
	}
	if snap.NextWatering != nil {
		data.NextWatering = types.FormatDay(*snap.NextWatering)
	}

	if in.Series != nil {
		rainPast, et0Past := pastTotals(in.Series, snap.RunDate, lookback)
		data.HasWeather = true
		data.LookbackDays = lookback
		data.RainPast = fmt.Sprintf("%.1f", rainPast)
		data.ET0Past = fmt.Sprintf("%.1f", et0Past)
		data.RainNext48 = fmt.Sprintf("%.1f", in.Series.RainWindow(snap.RunDate, 2))
		data.HotThreshold = fmt.Sprintf("%.0f", types.HeatAlertTempC)
		data.HotDaysNext48 = in.Series.HotDays(snap.RunDate, 2, types.HeatAlertTempC)
		data.ForecastLines = forecastTable(in.Series, snap.RunDate)
	}

	if in.Stats != nil {
		data.Stats = buildStatsData(in.Stats)
	}
	if in.Tip != nil && len(in.Tip.Tips) > 0 {
		data.Tip = &tipData{Title: in.Tip.Title, Tips: in.Tip.Tips}
	}

	return data
}

// pastTotals sums rain and reference evapotranspiration over the
// lookback window ending on the run date, inclusive. Days the provider
// did not return contribute nothing.
func pastTotals(series *types.WeatherSeries, runDate time.Time, lookback int) (rain, et0 float64) {
	for i := 0; i < lookback; i++ {
		day, ok := series.At(types.AddDays(runDate, -i))
		if !ok {
			continue
		}
		rain += day.RainMM
		et0 += day.ET0MM
	}
	return rain, et0
}

// forecastTable lays out the day-by-day outlook for the week after the
// run date. Returns nil when no forecast day is available.
func forecastTable(series *types.WeatherSeries, runDate time.Time) []string {
	lines := []string{
		fmt.Sprintf("%-10s | %5s | %5s | %5s | %5s", "Date", "Tmax", "Pluie", "ET0", "Rad"),
		strings.Repeat("-", 42),
	}
	found := false
	for i := 1; i <= forecastDetailDays; i++ {
		d := types.AddDays(runDate, i)
		day, ok := series.At(d)
		if !ok {
			continue
		}
		found = true
		lines = append(lines, fmt.Sprintf("%-10s | %5.1f | %5.1f | %5.1f | %5.1f",
			types.FormatDay(d), day.TempMaxC, day.RainMM, day.ET0MM, day.RadiationMJ))
	}
	if !found {
		return nil
	}
	return lines
}

// unitTable lays out one line per tracked unit. Plant names and labels
// carry accents, so padding is rune-aware rather than fmt's byte-count
// widths.
func unitTable(units types.AssessmentList) []string {
	if len(units) == 0 {
		return nil
	}
	lines := []string{
		padRight("Culture", unitNameWidth) + " | " + padLeft("Déficit", unitDeficitWidth) + " | Conseil",
		strings.Repeat("-", unitTableWidth),
	}
	for _, u := range units {
		name := fmt.Sprintf("%s (%s)", u.Plant, modeLabel(u.Mode))
		deficit := fmt.Sprintf("%.1f mm", u.DeficitMM)
		lines = append(lines, padRight(name, unitNameWidth)+" | "+padLeft(deficit, unitDeficitWidth)+" | "+adviceLabel(u.Advice))
	}
	return lines
}

func buildLawnData(lawn types.LawnAssessment) lawnData {
	d := lawnData{
		Height:    fmt.Sprintf("%.1f", lawn.HeightCM),
		Target:    fmt.Sprintf("%.1f", lawn.TargetCM),
		Threshold: fmt.Sprintf("%.1f", lawn.TargetCM*engine.MowOvergrowthRatio),
		MowNow:    lawn.MowNow,
	}
	if !lawn.MowNow && lawn.NextMowDate != nil {
		d.NextMow = types.FormatDay(*lawn.NextMowDate)
	}
	if lawn.LastMowedAt != nil {
		d.LastMowed = types.FormatDay(*lawn.LastMowedAt)
	}
	return d
}

func buildStatsData(stats *types.JournalStats) *statsData {
	d := &statsData{
		From:          types.FormatDay(stats.From),
		To:            types.FormatDay(stats.To),
		WateringCount: stats.Watering.Count,
		MowingCount:   stats.Mowing.Count,
	}
	if stats.Watering.MeanIntervalDays > 0 {
		d.WateringInterval = fmt.Sprintf("%.1f", stats.Watering.MeanIntervalDays)
	}
	if stats.Mowing.MeanIntervalDays > 0 {
		d.MowingInterval = fmt.Sprintf("%.1f", stats.Mowing.MeanIntervalDays)
	}
	return d
}

// adviceLabel maps a classification to the gardener-facing wording.
func adviceLabel(a types.WateringAdvice) string {
	switch a {
	case types.AdviceSurplus:
		return "Surplus d'eau, ne pas arroser"
	case types.AdviceNegligible:
		return "Déficit négligeable"
	case types.AdviceRainCovered:
		return "Pas d'arrosage (pluie prévue)"
	case types.AdviceLight:
		return "Arrosage léger recommandé"
	case types.AdviceWater:
		return "Arrosage conseillé"
	case types.AdviceCritical:
		return "Arrosage urgent (déficit important)"
	default:
		return string(a)
	}
}

func modeLabel(m types.CultivationMode) string {
	switch m {
	case types.ModeOpenGround:
		return "pleine terre"
	case types.ModeContainer:
		return "pot"
	case types.ModeCoveredContainer:
		return "pot couvert"
	default:
		return string(m)
	}
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func padLeft(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}
