package engine

import (
	"fmt"
	"strings"
	"time"

	"potager/internal/types"
)

// Classification fractions of the soil threshold.
const (
	// negligibleFraction bounds the "too small to think about" band.
	negligibleFraction = 0.25
	// rainDeferralLimit is how far past the threshold a deficit may sit
	// and still be left to forecast rain. Beyond it the plant is watered
	// even when rain is coming.
	rainDeferralLimit = 1.25
)

// BalanceInput carries everything one deficit computation needs. Events
// must be normalized watering events; units outside the catalog are
// skipped.
type BalanceInput struct {
	Weather *types.WeatherSeries
	Events  []types.WateringEvent
	Units   []types.PlantUnit
	Soil    types.SoilProfile
	Mulched bool
	AsOf    time.Time
}

// BalanceResult is the outcome of one full-window deficit recompute.
type BalanceResult struct {
	AsOf     time.Time
	Deficits map[types.PlantUnit]float64
	Warnings []string
}

// dayRecord is one resolved day of the balance window. Missing days
// keep zero rain and zero demand.
type dayRecord struct {
	date time.Time
	rain float64
	et0  float64
}

// ComputeDeficits walks the balance window day by day for every tracked
// unit and returns the accumulated deficit in millimeters per unit.
//
// The window is the LookbackDays civil days ending at AsOf, recomputed
// in full on every call; persisted checkpoints never feed it. Each day
// adds ET0 x Kc x modeFactor, subtracts rain for rain-exposed modes,
// resets the total to exactly zero when a watering event covers the
// unit's plant, then clamps at zero. Days absent from the series count
// as zero demand and zero rain and are reported once in Warnings.
// Plants unknown to the catalog are skipped and produce no map entry.
func (e *Engine) ComputeDeficits(in BalanceInput) *BalanceResult {
	asOf := types.Day(in.AsOf)
	res := &BalanceResult{
		AsOf:     asOf,
		Deficits: make(map[types.PlantUnit]float64, len(in.Units)),
	}
	if len(in.Units) == 0 {
		return res
	}
	if in.Weather == nil {
		in.Weather = &types.WeatherSeries{}
	}

	start := types.AddDays(asOf, -(e.opts.LookbackDays - 1))
	window := make([]dayRecord, 0, e.opts.LookbackDays)
	var missing []string
	for d := start; !d.After(asOf); d = types.NextDay(d) {
		wd, ok := in.Weather.At(d)
		if !ok {
			missing = append(missing, types.FormatDay(d))
			window = append(window, dayRecord{date: d})
			continue
		}
		window = append(window, dayRecord{date: d, rain: wd.RainMM, et0: wd.ET0MM})
	}
	if len(missing) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"weather series missing %d day(s) in balance window (%s); treated as zero demand and zero rain",
			len(missing), strings.Join(missing, ", ")))
	}

	watered := make(map[time.Time][]types.WateringEvent)
	for _, ev := range in.Events {
		d := types.Day(ev.Date)
		if d.Before(start) || d.After(asOf) {
			continue
		}
		watered[d] = append(watered[d], ev)
	}

	for _, unit := range in.Units {
		kc, ok := e.ref.Kc(unit.Plant)
		if !ok {
			continue
		}
		factor := e.modeFactor(unit.Mode, in.Soil, in.Mulched)
		exposed := unit.Mode.RainExposed()

		var total float64
		for _, day := range window {
			total += day.et0 * kc * factor
			if exposed {
				total -= day.rain
			}
			for _, ev := range watered[day.date] {
				if ev.Covers(unit.Plant) {
					total = 0
					break
				}
			}
			if total < 0 {
				total = 0
			}
		}
		res.Deficits[unit] = total
	}
	return res
}

// Classify grades an accumulated deficit against the soil threshold and
// the forecast rain. The threshold itself belongs to the below-threshold
// band: a deficit exactly at the threshold is still only a light
// deficit, never an action.
func Classify(deficitMM, thresholdMM, rain24hMM, rain48hMM float64) types.WateringAdvice {
	switch {
	case deficitMM <= 0:
		return types.AdviceSurplus
	case deficitMM <= negligibleFraction*thresholdMM:
		return types.AdviceNegligible
	case deficitMM <= thresholdMM:
		if rain24hMM >= deficitMM {
			return types.AdviceRainCovered
		}
		return types.AdviceLight
	default:
		if rain48hMM >= deficitMM {
			if deficitMM <= rainDeferralLimit*thresholdMM {
				return types.AdviceRainCovered
			}
			return types.AdviceCritical
		}
		return types.AdviceWater
	}
}
