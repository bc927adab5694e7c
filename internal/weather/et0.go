package weather

import "math"

// FAO-56 constants for the simplified Penman-Monteith fallback.
const (
	// DefaultAltitudeM is assumed when the garden altitude is not
	// configured.
	DefaultAltitudeM = 150.0

	albedo = 0.23
	// soilHeatFlux is negligible at the daily scale.
	soilHeatFlux = 0.0
	// radiationToMM converts MJ/m2/day into its evaporation
	// equivalent in mm/day.
	radiationToMM = 0.408
	// humidityApprox stands in for the actual vapor pressure when no
	// humidity observation is available: ea = 0.75 x es.
	humidityApprox = 0.75
)

// FallbackET0 computes the reference evapotranspiration in mm/day from
// daily maximum temperature (C), shortwave radiation (MJ/m2/day) and
// wind speed (km/h) using the simplified FAO-56 Penman-Monteith
// equation. It covers days where the provider omits its own ET0 value.
//
// Days without usable temperature or radiation yield 0: the balance
// walk prefers underestimating demand over inventing it.
func FallbackET0(tempC, radiationMJ, windKmh, altitudeM float64) float64 {
	if tempC == 0 || radiationMJ == 0 {
		return 0
	}
	if altitudeM == 0 {
		altitudeM = DefaultAltitudeM
	}

	rn := (1 - albedo) * radiationMJ * radiationToMM

	// Atmospheric pressure at altitude, then the psychrometric constant.
	p := 101.3 * math.Pow((293-0.0065*altitudeM)/293, 5.26)
	gamma := 0.665e-3 * p

	// Saturation vapor pressure and the slope of its curve at tempC.
	es := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	ea := es * humidityApprox
	delta := 4098 * es / math.Pow(tempC+237.3, 2)

	u2 := windKmh / 3.6

	num := radiationToMM*delta*(rn-soilHeatFlux) + gamma*(900/(tempC+273))*u2*(es-ea)
	den := delta + gamma*(1+0.34*u2)

	et0 := num / den
	if et0 < 0 {
		return 0
	}
	return math.Round(et0*100) / 100
}
