package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"potager/internal/types"
)

const (
	// DefaultGeocodingURL is the public Open-Meteo geocoding endpoint.
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	// DefaultGeocodeLimit is how many candidates a search returns when
	// the caller does not say.
	DefaultGeocodeLimit = 5
)

// GeocodingClient resolves town names into coordinates. It implements
// types.Geocoder.
type GeocodingClient struct {
	http    HTTPDoer
	baseURL string
	log     *slog.Logger
}

var _ types.Geocoder = (*GeocodingClient)(nil)

// NewGeocodingClient builds a geocoding client over the given HTTP
// doer. An empty baseURL selects the public endpoint; a nil doer falls
// back to http.DefaultClient and a nil logger to slog.Default().
func NewGeocodingClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *GeocodingClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGeocodingURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeocodingClient{http: doer, baseURL: baseURL, log: logger}
}

// geocodeResponse is the provider payload subset we consume.
type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Elevation float64 `json:"elevation"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Search returns up to limit candidate places for a free-text name,
// best match first. No match is an empty slice, not an error; callers
// decide whether that is a problem.
func (c *GeocodingClient) Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	if limit <= 0 {
		limit = DefaultGeocodeLimit
	}

	q := url.Values{}
	q.Set("name", query)
	q.Set("count", strconv.Itoa(limit))
	q.Set("language", "fr")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeocoding, "building geocoding request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeocoding, "geocoding provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamGeocoding,
			fmt.Sprintf("geocoding provider returned %d", resp.StatusCode),
			nil,
			map[string]any{"status": resp.StatusCode, "body": string(body)},
		)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeocoding, "decoding geocoding response", err)
	}

	results := make([]types.GeocodeResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, types.GeocodeResult{
			Name:       r.Name,
			Lat:        r.Latitude,
			Lon:        r.Longitude,
			Country:    r.Country,
			Admin1:     r.Admin1,
			ElevationM: r.Elevation,
			Timezone:   r.Timezone,
		})
	}

	c.log.DebugContext(ctx, "geocoding search", "query", query, "results", len(results))
	return results, nil
}
