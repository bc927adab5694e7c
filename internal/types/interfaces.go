package types

import (
	"context"
	"time"
)

// Validator is implemented by entities to self-validate.
type Validator interface {
	Validate() error
}

// WeatherSource defines how daily weather is retrieved for a location.
// Implementations fetch the lookback window and forecast horizon in a
// single call and normalize the provider payload into a WeatherSeries.
type WeatherSource interface {
	FetchDaily(ctx context.Context, point GeoPoint, altitudeM float64) (*WeatherSeries, error)
}

// Geocoder resolves free-text place names into candidate coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]GeocodeResult, error)
}

// ReferenceData is the read side of the plant catalog: crop
// coefficients, soil behavior, and advisory texts. Implementations
// must treat a missing or unreadable catalog as a hard error rather
// than silently substituting defaults.
type ReferenceData interface {
	FamilyOf(plant string) (PlantFamily, bool)
	Kc(plant string) (float64, bool)
	Detail(plant string) (PlantDetail, bool)
	Families() []PlantFamily
	Soil(t SoilType) (SoilProfile, bool)
	MulchFactor() float64
	ContainerFactor() float64
	TipsFor(month int) (MonthlyTip, bool)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}
