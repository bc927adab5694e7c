package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"potager/internal/types"
)

// =============================================================================
// Mock Implementations for Weather Handler
// =============================================================================

type mockForecastFetcher struct {
	fetchFn  func(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error)
	gotPoint types.GeoPoint
	gotAlt   float64
	calls    int
}

func (m *mockForecastFetcher) FetchDaily(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error) {
	m.calls++
	m.gotPoint, m.gotAlt = point, altitudeM
	if m.fetchFn != nil {
		return m.fetchFn(ctx, point, altitudeM)
	}
	return &types.WeatherSeries{
		Location: point,
		Days: []types.WeatherDay{
			{Date: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), TempMaxC: 24, RainMM: 1.2, ET0MM: 3.4},
		},
	}, nil
}

func newTestWeatherHandler() (*WeatherHandler, *mockGardenRepo, *mockForecastFetcher) {
	repo := &mockGardenRepo{}
	source := &mockForecastFetcher{}
	return NewWeatherHandler(repo, source, testLogger()), repo, source
}

// =============================================================================
// Tests
// =============================================================================

func TestWeatherHandler_GetSeries_Success(t *testing.T) {
	handler, _, source := newTestWeatherHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/weather", nil)
	rr := httptest.NewRecorder()
	handler.GetSeries(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 45.76, source.gotPoint.Lat)
	assert.Equal(t, 4.84, source.gotPoint.Lon)
	assert.Equal(t, 173.0, source.gotAlt)

	var series types.WeatherSeries
	decodeData(t, rr.Body, &series)
	require.Len(t, series.Days, 1)
	assert.Equal(t, 24.0, series.Days[0].TempMaxC)
}

func TestWeatherHandler_GetSeries_NoCoordinates(t *testing.T) {
	handler, repo, source := newTestWeatherHandler()
	repo.getFn = func(ctx context.Context) (*types.GardenProfile, error) {
		p := testProfile()
		p.Location = types.GeoPoint{Name: "Lyon"}
		return p, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/weather", nil)
	rr := httptest.NewRecorder()
	handler.GetSeries(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_missing_field", errorCode(t, rr.Body))
	assert.Equal(t, 0, source.calls, "no fetch without coordinates")
}

func TestWeatherHandler_GetSeries_ProfileMissing(t *testing.T) {
	handler, repo, _ := newTestWeatherHandler()
	repo.getFn = func(ctx context.Context) (*types.GardenProfile, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundGarden, "garden profile not configured", nil)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/weather", nil)
	rr := httptest.NewRecorder()
	handler.GetSeries(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWeatherHandler_GetSeries_UpstreamFailure(t *testing.T) {
	handler, _, source := newTestWeatherHandler()
	source.fetchFn = func(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error) {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "open-meteo returned 503", nil)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/weather", nil)
	rr := httptest.NewRecorder()
	handler.GetSeries(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "upstream_weather_unavailable", errorCode(t, rr.Body))
}
