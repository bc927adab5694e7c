// Package main is the entrypoint for the report worker Lambda function.
//
// The report worker consumes the report queue. Each message names a
// finished advisory cycle; the worker loads the persisted snapshot,
// hydrates the optional report sections (archived weather, journal
// statistics, garden name, monthly tips), renders the plain-text report
// and mails it via SES. Rendering on consumption keeps the mailed text
// identical to the API's report download and means no report body is
// ever stored.
//
// The handler uses partial batch responses: a message that fails on
// infrastructure (snapshot load, re-publish) is returned in
// batchItemFailures so SQS redelivers it. Transient SES failures are
// instead re-published as a fresh message with an incremented retry
// count; permanent failures (blocked address, vanished snapshot,
// malformed body) are acknowledged and counted so one bad report cannot
// wedge the queue.
//
// With APP_ENV=local the binary reads one SQS event as JSON from stdin
// instead of starting the Lambda runtime.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"potager/internal/catalog"
	"potager/internal/config"
	"potager/internal/db"
	"potager/internal/external"
	"potager/internal/queue"
	"potager/internal/report"
	"potager/internal/types"
	"potager/internal/weather"
)

// maxDeliveryAttempts caps SES retries per report. A message at this
// retry count that fails again is dropped with a failure metric.
const maxDeliveryAttempts = 3

// reasonDeliveryRetry labels re-published messages on the queue, next
// to the advisor's cycle_completed reason.
const reasonDeliveryRetry = "delivery_retry"

// SnapshotStore loads the advisory snapshot a report message points at.
type SnapshotStore interface {
	GetByCycleID(ctx context.Context, cycleID string) (*types.AdviceSnapshot, error)
}

// ReportPublisher re-publishes a report message after a transient
// delivery failure. Implemented by queue.ReportTrigger.
type ReportPublisher interface {
	SendReportMessage(ctx context.Context, msg types.ReportMessage, reason string) error
}

// Renderer turns a hydrated report input into subject and body.
type Renderer interface {
	Render(in report.Input) (*report.RenderedReport, error)
}

// deliveryMetrics counts report delivery outcomes.
type deliveryMetrics interface {
	ReportSent(ctx context.Context)
	ReportFailed(ctx context.Context)
}

type noopDeliveryMetrics struct{}

func (noopDeliveryMetrics) ReportSent(context.Context)   {}
func (noopDeliveryMetrics) ReportFailed(context.Context) {}

// Handler holds the dependencies for the report worker Lambda handler.
type Handler struct {
	snapshots SnapshotStore
	hydrator  *report.Hydrator
	renderer  Renderer
	emailer   external.EmailProvider
	publisher ReportPublisher
	metrics   deliveryMetrics
	from      types.SenderIdentity
	logger    *slog.Logger
}

// Handle processes an SQS event containing one or more report messages.
// Each message is processed independently; failures that SQS should
// redeliver are reported as partial batch failures.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "failed to process report message",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage delivers a single report. A nil return acknowledges
// the message; an error hands it back to SQS.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.ReportMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal report message, dropping it",
			"message_id", record.MessageId,
			"error", err,
		)
		// Parse failures are permanent, redelivery cannot fix them.
		return nil
	}

	logger := h.logger.With(
		"cycle_id", msg.CycleID,
		"run_date", types.FormatDay(msg.RunDate),
		"trigger", string(msg.Trigger),
		"retry_count", msg.RetryCount,
		"trace_id", msg.TraceID,
	)
	logger.InfoContext(ctx, "processing report message")

	if msg.Email == "" {
		logger.WarnContext(ctx, "report message has no recipient, dropping it")
		return nil
	}

	snap, err := h.snapshots.GetByCycleID(ctx, msg.CycleID)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundAdvice {
			logger.WarnContext(ctx, "advice snapshot gone, dropping report",
				"error", err,
			)
			h.metrics.ReportFailed(ctx)
			return nil
		}
		// Storage trouble is transient: let SQS redeliver.
		return fmt.Errorf("loading snapshot for cycle %s: %w", msg.CycleID, err)
	}

	in := report.Input{Snapshot: snap}
	h.hydrator.Hydrate(ctx, &in)

	rendered, err := h.renderer.Render(in)
	if err != nil {
		// Rendering is deterministic; a retry would fail identically.
		logger.ErrorContext(ctx, "report rendering failed, dropping message",
			"error", err,
		)
		h.metrics.ReportFailed(ctx)
		return nil
	}

	providerID, err := h.emailer.Send(ctx, types.SendInput{
		To:          msg.Email,
		From:        h.from,
		Subject:     rendered.Subject,
		TextBody:    rendered.BodyText,
		ReferenceID: msg.CycleID,
	})
	if err != nil {
		return h.handleSendFailure(ctx, msg, err, logger)
	}

	h.metrics.ReportSent(ctx)
	logger.InfoContext(ctx, "report email sent",
		"provider_message_id", providerID,
	)
	return nil
}

// handleSendFailure sorts provider errors into permanent drops and
// transient re-publishes. A transient failure goes back on the queue as
// a fresh message with RetryCount+1 and the original is acknowledged;
// only a failed re-publish falls back to SQS redelivery.
func (h *Handler) handleSendFailure(ctx context.Context, msg types.ReportMessage, sendErr error, logger *slog.Logger) error {
	var appErr *types.AppError
	if errors.As(sendErr, &appErr) && appErr.Code == types.ErrCodeEmailBlocked {
		logger.ErrorContext(ctx, "recipient address blocked, dropping report",
			"error", sendErr,
		)
		h.metrics.ReportFailed(ctx)
		return nil
	}

	if msg.RetryCount >= maxDeliveryAttempts {
		logger.ErrorContext(ctx, "report delivery failed after max attempts, dropping it",
			"attempts", msg.RetryCount,
			"error", sendErr,
		)
		h.metrics.ReportFailed(ctx)
		return nil
	}

	retry := msg
	retry.RetryCount++
	if err := h.publisher.SendReportMessage(ctx, retry, reasonDeliveryRetry); err != nil {
		return fmt.Errorf("re-publishing report message: %w", err)
	}

	logger.WarnContext(ctx, "transient delivery failure, report re-queued",
		"next_attempt", retry.RetryCount,
		"error", sendErr,
	)
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("report worker Lambda initializing (cold start)")

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

	renderer, err := report.NewRenderer()
	if err != nil {
		logger.Error("failed to parse report template", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	// SES may live in a different region than the queue; identity
	// verification is per-region.
	var emailer external.EmailProvider
	if cfg.Environment == "local" {
		logger.Warn("local environment, using stub email provider")
		emailer = external.NewStubEmailProvider(logger)
	} else {
		sesCfg := awsCfg.Copy()
		if cfg.Email.SESRegion != "" {
			sesCfg.Region = cfg.Email.SESRegion
		}
		emailer = external.NewSESClient(sesCfg, external.SESClientConfig{Logger: logger})
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	publisher := queue.NewReportTrigger(sqsClient, cfg.AWS, logger)

	var metrics deliveryMetrics = noopDeliveryMetrics{}
	if cfg.Observability.EnableMetrics && cfg.Environment != "local" {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = external.NewReportMetrics(cwClient, cfg.AWS.ReportQueue, logger)
	}

	handler := &Handler{
		snapshots: db.NewAdviceRepository(pool),
		hydrator: &report.Hydrator{
			Archives: db.NewWeatherArchiveRepository(pool),
			Garden:   db.NewGardenRepository(pool),
			Journal:  db.NewJournalRepository(pool),
			Tips:     ref,
			Codec:    weather.NewCodec(),
			Logger:   logger,
		},
		renderer:  renderer,
		emailer:   emailer,
		publisher: publisher,
		metrics:   metrics,
		from: types.SenderIdentity{
			Name:    cfg.Email.FromName,
			Address: cfg.Email.FromAddress,
		},
		logger: logger,
	}

	logger.Info("report worker Lambda initialized",
		"environment", cfg.Environment,
		"queue", cfg.AWS.ReportQueue,
		"from_address", cfg.Email.FromAddress,
		"ses_region", cfg.Email.SESRegion,
	)

	// Local mode: read one SQS event from stdin instead of starting the
	// Lambda runtime.
	// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | APP_ENV=local go run ./cmd/report-worker
	if cfg.Environment == "local" {
		runLocal(ctx, handler, logger)
		return
	}

	lambda.Start(handler.Handle)
}

// secretProvider returns the SSM-backed secret resolver, or nil in local
// development where secrets come straight from the environment.
func secretProvider() config.SecretProvider {
	if os.Getenv("APP_ENV") == "local" {
		return nil
	}
	return config.NewSSMProvider(os.Getenv("AWS_REGION"))
}

// runLocal feeds one SQS event from stdin through the handler.
func runLocal(ctx context.Context, handler *Handler, logger *slog.Logger) {
	logger.Info("APP_ENV=local: reading SQS event from stdin")

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("failed to read stdin", "error", err)
		os.Exit(1)
	}
	if len(payload) == 0 {
		logger.Error("no input received on stdin")
		os.Exit(1)
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		logger.Error("failed to parse stdin as SQS event", "error", err)
		os.Exit(1)
	}

	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		logger.Error("handler execution failed", "error", err)
		os.Exit(1)
	}
	logger.Info("handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
}
