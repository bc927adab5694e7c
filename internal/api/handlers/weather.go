package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"potager/internal/core"
	"potager/internal/types"
)

// WeatherGarden provides the stored location a forecast is fetched
// for.
type WeatherGarden interface {
	Get(ctx context.Context) (*types.GardenProfile, error)
}

// ForecastFetcher pulls a normalized daily weather series. Implemented
// by weather.OpenMeteoClient.
type ForecastFetcher interface {
	FetchDaily(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error)
}

// WeatherHandler exposes the normalized series the engine works with,
// so the dashboard shows exactly the numbers behind the advice.
type WeatherHandler struct {
	garden WeatherGarden
	source ForecastFetcher
	logger *slog.Logger
}

// NewWeatherHandler creates a new WeatherHandler with the provided
// dependencies.
func NewWeatherHandler(garden WeatherGarden, source ForecastFetcher, l *slog.Logger) *WeatherHandler {
	if l == nil {
		l = slog.Default()
	}
	return &WeatherHandler{
		garden: garden,
		source: source,
		logger: l,
	}
}

// RegisterRoutes mounts the weather route on the provided chi.Router.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.GetSeries)
}

// GetSeries handles GET /v1/weather.
//
// The endpoint reads the profile's stored coordinates; it does not
// geocode. A profile that only carries a town name gets coordinates
// written back by the first advisory cycle.
func (h *WeatherHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	profile, err := h.garden.Get(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if profile.Location.Lat == 0 && profile.Location.Lon == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"garden profile has no coordinates yet; update it or wait for the next cycle", nil))
		return
	}

	series, err := h.source.FetchDaily(r.Context(), profile.Location, profile.AltitudeM)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: series})
}
