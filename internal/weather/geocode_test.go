package weather

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"potager/internal/types"
)

// --- Search Tests ---

func TestSearch_MapsResults(t *testing.T) {
	srv, _ := weatherServer(t, http.StatusOK, `{
		"results": [
			{"name": "Lyon", "latitude": 45.76, "longitude": 4.84, "country": "France", "admin1": "Auvergne-Rhône-Alpes", "elevation": 173.0, "timezone": "Europe/Paris"},
			{"name": "Lyons", "latitude": 40.23, "longitude": -105.27, "country": "United States", "admin1": "Colorado", "elevation": 1625.0, "timezone": "America/Denver"}
		]
	}`)

	c := NewGeocodingClient(srv.Client(), srv.URL, testLogger())
	results, err := c.Search(context.Background(), "lyon", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	want := types.GeocodeResult{
		Name:       "Lyon",
		Lat:        45.76,
		Lon:        4.84,
		Country:    "France",
		Admin1:     "Auvergne-Rhône-Alpes",
		ElevationM: 173.0,
		Timezone:   "Europe/Paris",
	}
	if results[0] != want {
		t.Errorf("expected %+v, got %+v", want, results[0])
	}
}

func TestSearch_NoMatchIsNotAnError(t *testing.T) {
	// Open-Meteo omits the results key entirely when nothing matches.
	srv, _ := weatherServer(t, http.StatusOK, `{"generationtime_ms": 0.5}`)

	c := NewGeocodingClient(srv.Client(), srv.URL, testLogger())
	results, err := c.Search(context.Background(), "xyzzy", 5)
	if err != nil {
		t.Fatalf("expected no error for an empty result set, got %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected an empty slice, got %v", results)
	}
}

func TestSearch_RequestParameters(t *testing.T) {
	srv, gotQuery := weatherServer(t, http.StatusOK, `{}`)
	c := NewGeocodingClient(srv.Client(), srv.URL, testLogger())

	if _, err := c.Search(context.Background(), "saint-étienne", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := *gotQuery
	if got := q.Get("name"); got != "saint-étienne" {
		t.Errorf("expected name param to carry the query, got %q", got)
	}
	if got := q.Get("count"); got != "3" {
		t.Errorf("expected count 3, got %q", got)
	}
	if got := q.Get("language"); got != "fr" {
		t.Errorf("expected language fr, got %q", got)
	}
	if got := q.Get("format"); got != "json" {
		t.Errorf("expected format json, got %q", got)
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	srv, gotQuery := weatherServer(t, http.StatusOK, `{}`)
	c := NewGeocodingClient(srv.Client(), srv.URL, testLogger())

	if _, err := c.Search(context.Background(), "lyon", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := (*gotQuery).Get("count"); got != "5" {
		t.Errorf("expected default count 5, got %q", got)
	}
}

func TestSearch_UpstreamErrorMapped(t *testing.T) {
	srv, _ := weatherServer(t, http.StatusTooManyRequests, "slow down")

	c := NewGeocodingClient(srv.Client(), srv.URL, testLogger())
	_, err := c.Search(context.Background(), "lyon", 5)
	if err == nil {
		t.Fatal("expected an error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeUpstreamGeocoding {
		t.Errorf("expected code %s, got %s", types.ErrCodeUpstreamGeocoding, appErr.Code)
	}
	if appErr.Details["status"] != http.StatusTooManyRequests {
		t.Errorf("expected status detail %d, got %v", http.StatusTooManyRequests, appErr.Details["status"])
	}
}
