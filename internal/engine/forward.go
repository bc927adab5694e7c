package engine

import (
	"time"

	"potager/internal/types"
)

// ForwardInput carries the forward watering search inputs. The search
// runs over the series days strictly after AsOf, which must be in
// ascending date order.
type ForwardInput struct {
	Weather *types.WeatherSeries
	Units   []types.PlantUnit
	Soil    types.SoilProfile
	Mulched bool
	AsOf    time.Time
}

// NextWateringDate finds the earliest forecast date on which any
// tracked unit's fresh exposure reaches the soil threshold, or nil when
// nothing crosses inside the forecast window.
//
// The accumulation starts at zero rather than at today's deficit: the
// forward search asks when a freshly watered unit next needs attention,
// with any present debt assumed resolved by today's recommendation. A
// day's rain offsets that day's demand, but a surplus never pays down
// earlier days. The most constrained unit wins.
func (e *Engine) NextWateringDate(in ForwardInput) *time.Time {
	if in.Weather == nil {
		return nil
	}
	asOf := types.Day(in.AsOf)

	var earliest *time.Time
	for _, unit := range in.Units {
		kc, ok := e.ref.Kc(unit.Plant)
		if !ok {
			continue
		}
		factor := e.modeFactor(unit.Mode, in.Soil, in.Mulched)
		exposed := unit.Mode.RainExposed()

		var accum float64
		for _, wd := range in.Weather.Days {
			if !wd.Date.After(asOf) {
				continue
			}
			etc := wd.ET0MM * kc * factor
			rain := 0.0
			if exposed {
				rain = wd.RainMM
			}
			if balance := rain - etc; balance < 0 {
				accum += -balance
			}
			if accum >= in.Soil.ThresholdMM {
				d := wd.Date
				if earliest == nil || d.Before(*earliest) {
					earliest = &d
				}
				break
			}
		}
	}
	return earliest
}

// NextMowDate forward-integrates lawn growth from the current height
// and returns the first forecast date the height reaches the mowing
// threshold (MowOvergrowthRatio times the target), or nil when the
// window never crosses it.
func (e *Engine) NextMowDate(weather *types.WeatherSeries, currentHeightCM, targetHeightCM float64, asOf time.Time) *time.Time {
	if weather == nil || len(weather.Days) == 0 {
		return nil
	}
	threshold := targetHeightCM * MowOvergrowthRatio
	height := currentHeightCM
	day := types.Day(asOf)

	for _, wd := range weather.Days {
		if !wd.Date.After(day) {
			continue
		}
		height += DailyGrowthMM(wd.TempMaxC, wd.RainMM, wd.ET0MM) / 10
		if height >= threshold {
			d := wd.Date
			return &d
		}
	}
	return nil
}
