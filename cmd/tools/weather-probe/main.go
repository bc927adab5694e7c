// Package main implements the weather-probe CLI tool for exercising
// the Open-Meteo integration outside the advisory cycle.
//
// It resolves a town (or takes coordinates directly), fetches the daily
// series through the same resilient client the advisor uses, and prints
// the normalized days. Useful when a cycle reports weather trouble and
// the question is whether the provider, the network, or the
// normalization is at fault.
//
// Usage:
//
//	go run ./cmd/tools/weather-probe --town=Beauzelle
//	go run ./cmd/tools/weather-probe --lat=45.76 --lon=4.84 --altitude=173
//	go run ./cmd/tools/weather-probe --town=Lyon --json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"potager/internal/external"
	"potager/internal/types"
	"potager/internal/weather"
)

const probeTimeout = 15 * time.Second

func main() {
	town := flag.String("town", "", "Town to resolve through the geocoding endpoint")
	lat := flag.Float64("lat", 0, "Latitude (used with --lon instead of --town)")
	lon := flag.Float64("lon", 0, "Longitude")
	altitude := flag.Float64("altitude", 0, "Altitude in meters (only used with --lat/--lon)")
	forecastURL := flag.String("forecast-url", "", "Override the forecast endpoint")
	geocodingURL := flag.String("geocoding-url", "", "Override the geocoding endpoint")
	asJSON := flag.Bool("json", false, "Print the normalized series as JSON instead of a table")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: weather-probe [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Fetch and print the daily weather series for a location.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *town == "" && (*lat == 0 && *lon == 0) {
		fmt.Fprintf(os.Stderr, "error: pass --town or --lat/--lon\n\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{Timeout: probeTimeout}
	userAgent := "potager-weather-probe"

	point := types.GeoPoint{Lat: *lat, Lon: *lon}
	altitudeM := *altitude

	if *town != "" {
		geocoder := weather.NewGeocodingClient(
			external.NewBaseClient(httpClient, "open-meteo-geocoding", external.DefaultRetryPolicy(), userAgent),
			*geocodingURL,
			logger,
		)
		results, err := geocoder.Search(ctx, *town, 1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: geocoding failed: %v\n", err)
			os.Exit(1)
		}
		if len(results) == 0 {
			fmt.Fprintf(os.Stderr, "error: no match for town %q\n", *town)
			os.Exit(1)
		}
		place := results[0]
		point = types.GeoPoint{Lat: place.Lat, Lon: place.Lon, Name: place.Name}
		altitudeM = place.ElevationM
		fmt.Fprintf(os.Stderr, "resolved %q to %s (%.4f, %.4f, %.0fm)\n",
			*town, place.Name, place.Lat, place.Lon, place.ElevationM)
	}

	client := weather.NewOpenMeteoClient(
		external.NewBaseClient(httpClient, "open-meteo-forecast", external.DefaultRetryPolicy(), userAgent),
		*forecastURL,
		logger,
	)

	series, err := client.FetchDaily(ctx, point, altitudeM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: forecast fetch failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(series); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding series: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSeries(os.Stdout, series)
}

// printSeries renders the normalized days as a fixed-width table with
// today marked.
func printSeries(w io.Writer, series *types.WeatherSeries) {
	fmt.Fprintf(w, "%-12s %8s %8s %8s %8s\n", "date", "tmax °C", "rain mm", "et0 mm", "wind")
	today := types.Day(time.Now())
	for _, d := range series.Days {
		marker := " "
		if d.Date.Equal(today) {
			marker = "*"
		}
		fmt.Fprintf(w, "%-12s %8.1f %8.1f %8.2f %8.1f %s\n",
			types.FormatDay(d.Date), d.TempMaxC, d.RainMM, d.ET0MM, d.WindKmh, marker)
	}
	fmt.Fprintf(w, "\n%d days, fetched %s", len(series.Days), series.FetchedAt.Format(time.RFC3339))
	if len(series.Warnings) > 0 {
		fmt.Fprintf(w, ", %d warnings", len(series.Warnings))
		for _, warning := range series.Warnings {
			fmt.Fprintf(w, "\n  warning: %s", warning)
		}
	}
	fmt.Fprintln(w)
}
