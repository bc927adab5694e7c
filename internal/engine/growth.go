package engine

import (
	"math"
	"time"

	"potager/internal/types"
)

// Lawn growth model constants. Growth is a base rate scaled by clamped
// weather factors; the floor keeps one hostile input from collapsing
// the whole product to zero.
const (
	baseGrowthMMPerDay   = 0.5
	growthFactorFloor    = 0.1
	tempOptimalMaxC      = 25.0
	tempColdC            = 10.0
	coldGrowthFactor     = 0.5
	tempPenaltyPerDegree = 0.05
	rainBoostPerMM       = 0.1
	et0PenaltyPerMM      = 0.05
)

// DailyGrowthMM estimates one day of lawn growth in millimeters from
// that day's weather: heat above 25 C and evaporative demand slow it,
// rain accelerates it, and below 10 C growth halves.
func DailyGrowthMM(tempMaxC, rainMM, et0MM float64) float64 {
	tempFactor := 1.0
	switch {
	case tempMaxC > tempOptimalMaxC:
		tempFactor = 1.0 - (tempMaxC-tempOptimalMaxC)*tempPenaltyPerDegree
	case tempMaxC < tempColdC:
		tempFactor = coldGrowthFactor
	}
	rainFactor := 1.0 + rainMM*rainBoostPerMM
	et0Factor := 1.0 - et0MM*et0PenaltyPerMM

	tempFactor = math.Max(growthFactorFloor, tempFactor)
	rainFactor = math.Max(growthFactorFloor, rainFactor)
	et0Factor = math.Max(growthFactorFloor, et0Factor)

	return math.Max(0, baseGrowthMMPerDay*tempFactor*rainFactor*et0Factor)
}

// GrowthInput carries the lawn height estimation inputs. LastMow may be
// nil when the journal records no mowing.
type GrowthInput struct {
	Weather *types.WeatherSeries
	LastMow *types.MowingEvent
	AsOf    time.Time
}

// EstimateHeight returns the estimated lawn height in centimeters as of
// the given day.
//
// Growth integrates over [lastMow.Date, AsOf], both ends inclusive,
// starting from the recorded cut height. Without a recorded cut height
// the configured default applies; without any mowing event the window
// is the MowLookbackDays days before AsOf. Days absent from the series
// contribute no growth.
func (e *Engine) EstimateHeight(in GrowthInput) float64 {
	asOf := types.Day(in.AsOf)
	start := types.AddDays(asOf, -e.opts.MowLookbackDays)
	height := e.opts.DefaultCutHeightCM
	if in.LastMow != nil {
		start = types.Day(in.LastMow.Date)
		if in.LastMow.CutHeightCM != nil {
			height = *in.LastMow.CutHeightCM
		}
	}
	if in.Weather == nil {
		return math.Max(0, height)
	}

	for d := start; !d.After(asOf); d = types.NextDay(d) {
		if wd, ok := in.Weather.At(d); ok {
			height += DailyGrowthMM(wd.TempMaxC, wd.RainMM, wd.ET0MM) / 10
		}
	}
	return math.Max(0, height)
}
