// Package main is the entrypoint for the advisor Lambda function.
//
// The advisor runs once a day via an EventBridge rule. Each invocation
// executes one advisory cycle: fetch weather, replay the journal since
// the last checkpoint, classify every tracked unit, persist the snapshot
// atomically, and enqueue the report message. The invocation payload is
// an advisor.RunInput; an empty payload (the EventBridge default) runs a
// scheduled cycle for today, and operators can invoke the function by
// hand with {"trigger":"replay","date":"2026-06-01"} to recompute a past
// day from its archived weather.
//
// This file handles dependency wiring (cold start) and delegates the
// cycle itself to internal/advisor. With APP_ENV=local the binary runs a
// single cycle directly instead of starting the Lambda runtime, taking
// the trigger and date from flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"potager/internal/advisor"
	"potager/internal/catalog"
	"potager/internal/config"
	"potager/internal/db"
	"potager/internal/external"
	"potager/internal/queue"
	"potager/internal/types"
	"potager/internal/weather"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info, Error and Warn directly but With returns
// *slog.Logger rather than types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

// noArchivePersister wraps the cycle store and drops the compressed
// weather payload before persistence. Wired when FEATURE_ARCHIVE is off:
// cycles still run and snapshots still land, but no archive rows are
// written, so replay will only reach dates archived before the switch.
type noArchivePersister struct {
	inner advisor.CyclePersister
}

func (p noArchivePersister) PersistCycle(ctx context.Context, state *types.DeficitState, snap *types.AdviceSnapshot, _ *types.WeatherArchive) error {
	return p.inner.PersistCycle(ctx, state, snap, nil)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("advisor Lambda initializing (cold start)")

	cfg, err := config.LoadConfig(secretProvider())
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	ref, err := catalog.New(cfg.Catalog.OverridePath)
	if err != nil {
		logger.Error("failed to load plant catalog", "error", err)
		os.Exit(1)
	}

	// Outbound HTTP goes through the resilient client: circuit breaker
	// per provider plus retry with backoff.
	httpClient := &http.Client{Timeout: cfg.Weather.Timeout}
	userAgent := "potager/" + cfg.Build.Version
	weatherClient := weather.NewOpenMeteoClient(
		external.NewBaseClient(httpClient, "open-meteo-forecast", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.ForecastURL,
		logger,
	)
	geocoder := weather.NewGeocodingClient(
		external.NewBaseClient(httpClient, "open-meteo-geocoding", external.DefaultRetryPolicy(), userAgent),
		cfg.Weather.GeocodingURL,
		logger,
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	// Report delivery is optional: without it the cycle still persists
	// its snapshot, the gardener just gets no email.
	var reports advisor.ReportEnqueuer
	if cfg.Feature.EnableEmail {
		sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		reports = queue.NewReportTrigger(sqsClient, cfg.AWS, logger)
	} else {
		logger.Warn("email delivery disabled, cycle reports will not be enqueued")
	}

	var metrics advisor.CycleMetrics
	if cfg.Observability.EnableMetrics && cfg.Environment != "local" {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = advisor.NewCloudWatchCycleMetrics(cwClient, &slogAdapter{logger: logger})
	}

	var persister advisor.CyclePersister = db.NewCycleStore(pool)
	if !cfg.Feature.EnableArchive {
		logger.Warn("weather archiving disabled, replay will not cover new dates")
		persister = noArchivePersister{inner: persister}
	}

	adv := advisor.New(advisor.Config{
		Garden:       db.NewGardenRepository(pool),
		Journal:      db.NewJournalRepository(pool),
		State:        db.NewStateRepository(pool),
		Locks:        db.NewJobLockRepository(pool),
		Archives:     db.NewWeatherArchiveRepository(pool),
		Persister:    persister,
		Reports:      reports,
		Weather:      weatherClient,
		Geocoder:     geocoder,
		Ref:          ref,
		Codec:        weather.NewCodec(),
		Metrics:      metrics,
		Logger:       logger,
		LockTTL:      cfg.Advisor.LockTTL,
		LookbackDays: cfg.Advisor.LookbackDays,
	})

	logger.Info("advisor Lambda initialized",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"lookback_days", cfg.Advisor.LookbackDays,
		"email_enabled", cfg.Feature.EnableEmail,
		"archive_enabled", cfg.Feature.EnableArchive,
	)

	handler := newHandler(adv, logger)

	// Local mode: run one cycle directly instead of starting the Lambda
	// runtime. Usage: APP_ENV=local go run ./cmd/advisor --trigger=replay --date=2026-06-01
	if cfg.Environment == "local" {
		runLocal(ctx, handler, logger)
		return
	}

	lambda.Start(handler)
}

// secretProvider returns the SSM-backed secret resolver, or nil in local
// development where secrets come straight from the environment.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"))
}

// newHandler creates the Lambda handler that runs one advisory cycle per
// invocation. A concurrent run already holding the date lock is reported
// as a clean skip rather than an error, so EventBridge does not retry a
// cycle that is in fact underway.
func newHandler(adv *advisor.Advisor, logger *slog.Logger) func(ctx context.Context, input advisor.RunInput) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, input advisor.RunInput) (string, error) {
		logger.InfoContext(ctx, "advisor handler invoked",
			"trigger", string(input.Trigger),
			"date", input.Date,
		)

		snap, err := adv.Run(ctx, input)
		if err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictCycleRunning {
				result := "cycle skipped: another run holds the date lock"
				logger.InfoContext(ctx, result)
				return result, nil
			}
			return "", fmt.Errorf("advisory cycle failed: %w", err)
		}

		result := fmt.Sprintf("cycle %s complete: %d units assessed, %d need water",
			snap.CycleID, len(snap.Units), snap.Units.ActionCount())
		logger.InfoContext(ctx, result,
			"snapshot_id", snap.ID,
			"run_date", types.FormatDay(snap.RunDate),
			"alerts", len(snap.Alerts),
		)

		return result, nil
	}
}

// runLocal executes a single cycle with trigger and date taken from
// flags, mirroring what a manual Lambda invocation would carry.
func runLocal(ctx context.Context, handler func(context.Context, advisor.RunInput) (string, error), logger *slog.Logger) {
	trigger := flag.String("trigger", string(types.TriggerManual), "cycle trigger: manual, scheduled or replay")
	date := flag.String("date", "", "cycle date as YYYY-MM-DD (defaults to today)")
	flag.Parse()

	result, err := handler(ctx, advisor.RunInput{
		Trigger: types.CycleTrigger(*trigger),
		Date:    *date,
	})
	if err != nil {
		logger.Error("local cycle failed", "error", err)
		os.Exit(1)
	}
	logger.Info("local cycle finished", "result", result)
}
