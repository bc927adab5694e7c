package types

import (
	"sort"
	"time"
)

// GeoPoint represents a geographic coordinate with an optional display name.
type GeoPoint struct {
	Lat  float64 `json:"lat" db:"location_lat"`
	Lon  float64 `json:"lon" db:"location_lon"`
	Name string  `json:"name,omitempty" db:"location_name"`
}

// GeocodeResult is one candidate place returned by the geocoding lookup.
type GeocodeResult struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Country    string  `json:"country,omitempty"`
	Admin1     string  `json:"admin1,omitempty"`
	ElevationM float64 `json:"elevation_m,omitempty"`
	Timezone   string  `json:"timezone,omitempty"`
}

// WeatherDay is one civil day of normalized weather at the garden's
// location. Past days carry observed values, future days forecast ones;
// the engine does not distinguish between the two.
type WeatherDay struct {
	Date        time.Time `json:"date"`
	TempMaxC    float64   `json:"temp_max_c"`
	RainMM      float64   `json:"rain_mm"`
	ET0MM       float64   `json:"et0_mm"`
	WindKmh     float64   `json:"wind_kmh"`
	RadiationMJ float64   `json:"radiation_mj"`
}

// WeatherSeries is a contiguous run of daily weather spanning the
// engine's lookback window and the forecast horizon.
type WeatherSeries struct {
	Location  GeoPoint     `json:"location"`
	FetchedAt time.Time    `json:"fetched_at"`
	Days      []WeatherDay `json:"days"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// At returns the day record for the given civil date, if present.
func (s *WeatherSeries) At(day time.Time) (WeatherDay, bool) {
	d := Day(day)
	for _, wd := range s.Days {
		if wd.Date.Equal(d) {
			return wd, true
		}
	}
	return WeatherDay{}, false
}

// RainWindow sums rain over the n civil days strictly after the given
// date, i.e. the window (after, after+n].
func (s *WeatherSeries) RainWindow(after time.Time, n int) float64 {
	start := Day(after)
	end := AddDays(start, n)
	var total float64
	for _, wd := range s.Days {
		if wd.Date.After(start) && !wd.Date.After(end) {
			total += wd.RainMM
		}
	}
	return total
}

// HotDays counts days at or above the temperature threshold in the n
// civil days strictly after the given date.
func (s *WeatherSeries) HotDays(after time.Time, n int, thresholdC float64) int {
	start := Day(after)
	end := AddDays(start, n)
	count := 0
	for _, wd := range s.Days {
		if wd.Date.After(start) && !wd.Date.After(end) && wd.TempMaxC >= thresholdC {
			count++
		}
	}
	return count
}

// PlantFamily groups plants that share a crop coefficient. Name is the
// stable identifier used in journals and deficit maps; Label is the
// display form shown in reports.
type PlantFamily struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Kc     float64  `json:"kc"`
	Plants []string `json:"plants"`
}

// PlantDetail is the advisory sheet for a single plant: its family and
// crop coefficient plus the cultivation guidance shown by the catalog
// API and the monthly report.
type PlantDetail struct {
	Name           string   `json:"name"`
	Family         string   `json:"family"`
	Kc             float64  `json:"kc"`
	SowingPeriod   string   `json:"sowing_period,omitempty"`
	Light          string   `json:"light,omitempty"`
	Diseases       string   `json:"disease_sensitivity,omitempty"`
	GoodCompanions []string `json:"good_companions,omitempty"`
	BadCompanions  []string `json:"bad_companions,omitempty"`
}

// SoilProfile describes how a soil texture holds water. The retention
// factor scales daily demand; the threshold is the accumulated deficit
// (mm) at which watering becomes necessary.
type SoilProfile struct {
	Type        SoilType `json:"type"`
	Retention   float64  `json:"retention_factor"`
	ThresholdMM float64  `json:"threshold_mm"`
	Description string   `json:"description,omitempty"`
}

// MonthlyTip carries the seasonal to-do list for one calendar month.
type MonthlyTip struct {
	Month int      `json:"month"`
	Title string   `json:"title"`
	Tips  []string `json:"tips"`
}

// TrackedPlant is one plant the gardener grows, possibly in several
// cultivation modes at once (a bed and a pot of the same crop).
type TrackedPlant struct {
	Name  string            `json:"name" validate:"required,max=100"`
	Modes []CultivationMode `json:"modes" validate:"required,min=1"`
}

// TrackedPlantList is stored as a JSONB column on the garden profile row.
type TrackedPlantList []TrackedPlant

// LawnConfig holds the mowing preferences for the lawn.
type LawnConfig struct {
	TargetHeightCM float64 `json:"target_height_cm" validate:"gt=0,lte=20"`
}

// GardenProfile is the singleton configuration describing the garden:
// where it is, what grows in it, and where reports go.
type GardenProfile struct {
	Location  GeoPoint         `json:"location" db:"-"`
	AltitudeM float64          `json:"altitude_m" db:"altitude_m"`
	Timezone  string           `json:"timezone" db:"timezone"`
	Soil      SoilType         `json:"soil_type" db:"soil_type"`
	Mulched   bool             `json:"mulched" db:"mulched"`
	Plants    TrackedPlantList `json:"plants" db:"plants"`
	Lawn      LawnConfig       `json:"lawn" db:"lawn"`
	Email     string           `json:"report_email" db:"report_email"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// Units expands the tracked plants into the flat list of (plant, mode)
// units the engine assesses independently, in stable order.
func (g *GardenProfile) Units() []PlantUnit {
	var units []PlantUnit
	for _, p := range g.Plants {
		for _, m := range p.Modes {
			units = append(units, PlantUnit{Plant: p.Name, Mode: m})
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Plant != units[j].Plant {
			return units[i].Plant < units[j].Plant
		}
		return units[i].Mode < units[j].Mode
	})
	return units
}

// Validate implements the Validator interface for GardenProfile.
// Validation rules are implemented in validation.go.
func (g *GardenProfile) Validate() error {
	return ValidateGardenProfile(g)
}

// PlantUnit identifies one (plant, cultivation mode) pair. Units are
// comparable and used as map keys by the engine.
type PlantUnit struct {
	Plant string          `json:"plant"`
	Mode  CultivationMode `json:"mode"`
}

// String renders the unit as "plant/mode" for logs and warnings.
func (u PlantUnit) String() string {
	return u.Plant + "/" + string(u.Mode)
}

// UnitDeficit is the persisted form of one engine checkpoint entry.
type UnitDeficit struct {
	Plant     string          `json:"plant"`
	Mode      CultivationMode `json:"mode"`
	DeficitMM float64         `json:"deficit_mm"`
}

// UnitDeficitList is stored as a JSONB column on the garden state row.
type UnitDeficitList []UnitDeficit

// ToMap converts the persisted list into the engine's working form.
func (l UnitDeficitList) ToMap() map[PlantUnit]float64 {
	m := make(map[PlantUnit]float64, len(l))
	for _, d := range l {
		m[PlantUnit{Plant: d.Plant, Mode: d.Mode}] = d.DeficitMM
	}
	return m
}

// UnitDeficitsFromMap flattens the engine's working form into a
// deterministically ordered list for persistence.
func UnitDeficitsFromMap(m map[PlantUnit]float64) UnitDeficitList {
	l := make(UnitDeficitList, 0, len(m))
	for u, d := range m {
		l = append(l, UnitDeficit{Plant: u.Plant, Mode: u.Mode, DeficitMM: d})
	}
	sort.Slice(l, func(i, j int) bool {
		if l[i].Plant != l[j].Plant {
			return l[i].Plant < l[j].Plant
		}
		return l[i].Mode < l[j].Mode
	})
	return l
}

// DeficitState is the engine checkpoint persisted after each cycle:
// per-unit water deficits and the lawn height estimate as of RunDate.
// It exists for dashboards and day-over-day diffing; every cycle
// recomputes from the journal and weather rather than trusting it.
type DeficitState struct {
	RunDate      time.Time       `json:"run_date" db:"run_date"`
	Deficits     UnitDeficitList `json:"deficits" db:"deficits"`
	LawnHeightCM float64         `json:"lawn_height_cm" db:"lawn_height_cm"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// UnitAssessment is the advisor's verdict for one plant unit.
type UnitAssessment struct {
	Plant     string          `json:"plant"`
	Mode      CultivationMode `json:"mode"`
	DeficitMM float64         `json:"deficit_mm"`
	Advice    WateringAdvice  `json:"advice"`
	Rain24hMM float64         `json:"rain_24h_mm"`
	Rain48hMM float64         `json:"rain_48h_mm"`
}

// AssessmentList is stored as a JSONB column on advice snapshots.
type AssessmentList []UnitAssessment

// ActionCount returns how many units require watering action.
func (l AssessmentList) ActionCount() int {
	n := 0
	for _, a := range l {
		if a.Advice.ActionRequired() {
			n++
		}
	}
	return n
}

// LawnAssessment is the advisor's verdict for the lawn.
type LawnAssessment struct {
	HeightCM    float64    `json:"height_cm"`
	TargetCM    float64    `json:"target_cm"`
	MowNow      bool       `json:"mow_now"`
	NextMowDate *time.Time `json:"next_mow_date,omitempty"`
	LastMowedAt *time.Time `json:"last_mowed_at,omitempty"`
}

// Alert is a weather warning attached to an advice snapshot. Count is
// the number of hot days for heat alerts; ValueMM is the summed 48h
// rain for heavy-rain notices.
type Alert struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
	Count   int       `json:"count,omitempty"`
	ValueMM float64   `json:"value_mm,omitempty"`
}

// AlertList is stored as a JSONB column on advice snapshots.
type AlertList []Alert

// AdviceSnapshot is the full output of one advisor cycle, persisted per
// run date and rendered into the daily report.
type AdviceSnapshot struct {
	ID           string         `json:"id" db:"id"`
	CycleID      string         `json:"cycle_id" db:"cycle_id"`
	RunDate      time.Time      `json:"run_date" db:"run_date"`
	Trigger      CycleTrigger   `json:"trigger" db:"trigger"`
	Units        AssessmentList `json:"units" db:"units"`
	Lawn         LawnAssessment `json:"lawn" db:"lawn"`
	Alerts       AlertList      `json:"alerts,omitempty" db:"alerts"`
	NextWatering *time.Time     `json:"next_watering,omitempty" db:"next_watering"`
	Warnings     []string       `json:"warnings,omitempty" db:"warnings"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// WateringEvent records that specific plants, or the whole garden, were
// watered on a given day.
type WateringEvent struct {
	ID        string    `json:"id" db:"id"`
	Date      time.Time `json:"date" db:"event_date"`
	Plants    []string  `json:"plants,omitempty" db:"plants"`
	Note      string    `json:"note,omitempty" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Covers reports whether the event waters the given plant. An event
// with no plant list waters the whole garden.
func (e *WateringEvent) Covers(plant string) bool {
	if len(e.Plants) == 0 {
		return true
	}
	for _, p := range e.Plants {
		if p == plant {
			return true
		}
	}
	return false
}

// MowingEvent records one lawn mowing. CutHeightCM is the height the
// lawn was cut to; when absent the target height is assumed.
type MowingEvent struct {
	ID          string    `json:"id" db:"id"`
	Date        time.Time `json:"date" db:"event_date"`
	CutHeightCM *float64  `json:"cut_height_cm,omitempty" db:"cut_height_cm"`
	Note        string    `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// WateringStats summarizes watering activity over a date range.
type WateringStats struct {
	Count              int            `json:"count"`
	PerPlant           map[string]int `json:"per_plant,omitempty"`
	MeanIntervalDays   float64        `json:"mean_interval_days"`
	MedianIntervalDays float64        `json:"median_interval_days"`
	LongestGapDays     float64        `json:"longest_gap_days"`
}

// MowingStats summarizes mowing activity over a date range.
type MowingStats struct {
	Count            int        `json:"count"`
	MeanIntervalDays float64    `json:"mean_interval_days"`
	MeanCutHeightCM  float64    `json:"mean_cut_height_cm,omitempty"`
	LastMowedAt      *time.Time `json:"last_mowed_at,omitempty"`
}

// JournalStats is the aggregated view of the journal over a date range.
type JournalStats struct {
	From     time.Time     `json:"from"`
	To       time.Time     `json:"to"`
	Watering WateringStats `json:"watering"`
	Mowing   MowingStats   `json:"mowing"`
}

// WeatherArchive is a compressed raw provider response kept for replay
// and debugging. Payload holds the zstd-compressed response body.
type WeatherArchive struct {
	ID        string    `json:"id" db:"id"`
	FetchDate time.Time `json:"fetch_date" db:"fetch_date"`
	Lat       float64   `json:"lat" db:"lat"`
	Lon       float64   `json:"lon" db:"lon"`
	Payload   []byte    `json:"-" db:"payload"`
	SizeBytes int       `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SendInput defines the contract for email transmission.
type SendInput struct {
	To          string
	From        SenderIdentity
	Subject     string
	TextBody    string
	HTMLBody    string
	ReferenceID string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}
