// Package weather retrieves and normalizes daily weather for the garden
// location. The Open-Meteo forecast endpoint supplies both the balance
// lookback window and the forecast horizon in one call; the geocoding
// endpoint resolves town names. Provider gaps are normalized to zero
// with warnings, and days without a provider ET0 value fall back to the
// simplified FAO-56 computation in et0.go. archive.go compresses
// normalized series for replay.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"potager/internal/types"
)

const (
	// DefaultForecastURL is the public Open-Meteo forecast endpoint.
	// No API key is required.
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	// PastDays is the history depth requested from the provider. It
	// covers the engine's balance lookback window.
	PastDays = 7

	// ForecastDays is the forecast horizon requested from the
	// provider, sized for the forward watering and mowing searches.
	ForecastDays = 14

	// dailyVariables is the daily block requested from the provider.
	dailyVariables = "temperature_2m_max,precipitation_sum,shortwave_radiation_sum,windspeed_10m_max,et0_fao_evapotranspiration"

	// maxErrorBody bounds how much of an upstream error response is
	// read for diagnostics.
	maxErrorBody = 2048
)

// HTTPDoer is the outbound HTTP surface the weather clients need. The
// resilient client from internal/external satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenMeteoClient fetches and normalizes daily weather series. It
// implements types.WeatherSource.
type OpenMeteoClient struct {
	http    HTTPDoer
	baseURL string
	clock   types.Clock
	log     *slog.Logger
}

var _ types.WeatherSource = (*OpenMeteoClient)(nil)

// NewOpenMeteoClient builds a weather client over the given HTTP doer.
// An empty baseURL selects the public endpoint; a nil doer falls back
// to http.DefaultClient and a nil logger to slog.Default().
func NewOpenMeteoClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *OpenMeteoClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoClient{
		http:    doer,
		baseURL: baseURL,
		clock:   types.RealClock{},
		log:     logger,
	}
}

// openMeteoResponse is the subset of the provider payload we consume.
// Numeric arrays use pointers so provider nulls survive decoding and
// can be normalized explicitly.
type openMeteoResponse struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Timezone  string         `json:"timezone"`
	Daily     openMeteoDaily `json:"daily"`
}

type openMeteoDaily struct {
	Time      []string   `json:"time"`
	TempMax   []*float64 `json:"temperature_2m_max"`
	Rain      []*float64 `json:"precipitation_sum"`
	Radiation []*float64 `json:"shortwave_radiation_sum"`
	WindMax   []*float64 `json:"windspeed_10m_max"`
	ET0       []*float64 `json:"et0_fao_evapotranspiration"`
}

// FetchDaily retrieves the daily series around today for the given
// point: PastDays of history and ForecastDays of forecast, normalized
// into contiguous WeatherDay records. Provider nulls become zeros with
// a per-field warning; missing ET0 values are recomputed via the
// FAO-56 fallback using the garden altitude.
func (c *OpenMeteoClient) FetchDaily(ctx context.Context, point types.GeoPoint, altitudeM float64) (*types.WeatherSeries, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(point.Lat))
	q.Set("longitude", formatCoord(point.Lon))
	q.Set("daily", dailyVariables)
	q.Set("past_days", strconv.Itoa(PastDays))
	q.Set("forecast_days", strconv.Itoa(ForecastDays))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "building weather request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "weather provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather provider returned %d", resp.StatusCode),
			nil,
			map[string]any{"status": resp.StatusCode, "body": string(body)},
		)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "decoding weather response", err)
	}

	series := c.normalize(point, altitudeM, &payload)
	c.log.InfoContext(ctx, "weather series fetched",
		"lat", point.Lat,
		"lon", point.Lon,
		"days", len(series.Days),
		"warnings", len(series.Warnings),
	)
	return series, nil
}

// normalize flattens the provider's column arrays into WeatherDay rows.
// Nulls and NaNs become zeros, counted per field; negative rain and ET0
// clamp to zero; days whose provider ET0 is absent get the FAO-56
// fallback when temperature and radiation allow it.
func (c *OpenMeteoClient) normalize(point types.GeoPoint, altitudeM float64, payload *openMeteoResponse) *types.WeatherSeries {
	series := &types.WeatherSeries{
		Location:  point,
		FetchedAt: c.clock.Now(),
	}

	missing := map[string]int{}
	var badDates int
	var fallbackDays int

	for i, raw := range payload.Daily.Time {
		date, err := types.ParseDay(raw)
		if err != nil {
			badDates++
			continue
		}

		day := types.WeatherDay{
			Date:        date,
			TempMaxC:    pick(payload.Daily.TempMax, i, "temperature_2m_max", missing),
			RainMM:      pick(payload.Daily.Rain, i, "precipitation_sum", missing),
			RadiationMJ: pick(payload.Daily.Radiation, i, "shortwave_radiation_sum", missing),
			WindKmh:     pick(payload.Daily.WindMax, i, "windspeed_10m_max", missing),
		}
		if day.RainMM < 0 {
			day.RainMM = 0
		}

		if et0, ok := at(payload.Daily.ET0, i); ok {
			day.ET0MM = math.Max(0, et0)
		} else {
			day.ET0MM = FallbackET0(day.TempMaxC, day.RadiationMJ, day.WindKmh, altitudeM)
			fallbackDays++
		}

		series.Days = append(series.Days, day)
	}

	if badDates > 0 {
		series.Warnings = append(series.Warnings, fmt.Sprintf(
			"weather provider returned %d unparseable date(s); day(s) dropped", badDates))
	}
	for _, field := range []string{"temperature_2m_max", "precipitation_sum", "shortwave_radiation_sum", "windspeed_10m_max"} {
		if n := missing[field]; n > 0 {
			series.Warnings = append(series.Warnings, fmt.Sprintf(
				"weather provider returned %d missing value(s) for %s; normalized to 0", n, field))
		}
	}
	if fallbackDays > 0 {
		series.Warnings = append(series.Warnings, fmt.Sprintf(
			"provider ET0 absent for %d day(s); simplified FAO-56 fallback applied", fallbackDays))
	}
	return series
}

// at returns the i-th value of a provider column when present and
// finite.
func at(col []*float64, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil || math.IsNaN(*col[i]) {
		return 0, false
	}
	return *col[i], true
}

// pick is at with a per-field miss counter.
func pick(col []*float64, i int, field string, missing map[string]int) float64 {
	v, ok := at(col, i)
	if !ok {
		missing[field]++
	}
	return v
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
