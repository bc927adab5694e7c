// Package queue provides the SQS producer that hands finished advisor
// cycles to the report worker for email delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"potager/internal/config"
	"potager/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// ReportTrigger serializes a ReportMessage and sends it to the report
// queue. The advisor calls it once per cycle, after the advice snapshot
// is persisted; the report worker calls it again when re-publishing a
// message after a transient delivery failure.
type ReportTrigger struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewReportTrigger creates a new ReportTrigger with the given SQS client
// and configuration. It reads the queue URL from the AWSConfig.
func NewReportTrigger(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *ReportTrigger {
	return &ReportTrigger{
		client:   client,
		queueURL: awsCfg.ReportQueue,
		logger:   logger,
	}
}

// TriggerReport builds a fresh ReportMessage for a completed cycle and
// enqueues it. The trace ID is taken from the context when the cycle was
// started by an API request, so manual runs stay correlated end to end;
// scheduled runs mint a new one.
func (t *ReportTrigger) TriggerReport(ctx context.Context, snap *types.AdviceSnapshot, email string, reason string) error {
	traceID := types.GetRequestID(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}

	msg := types.ReportMessage{
		CycleID:    snap.CycleID,
		RunDate:    snap.RunDate,
		Email:      email,
		Trigger:    snap.Trigger,
		RetryCount: 0,
		TraceID:    traceID,
	}

	return t.SendReportMessage(ctx, msg, reason)
}

// SendReportMessage serializes the ReportMessage to JSON and dispatches it
// to the report queue with the reason recorded as a message attribute.
// The worker uses this directly when re-publishing with an incremented
// RetryCount.
func (t *ReportTrigger) SendReportMessage(ctx context.Context, msg types.ReportMessage, reason string) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal ReportMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"reason": {
				DataType:    aws.String("String"),
				StringValue: aws.String(reason),
			},
		},
	}

	_, err = t.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("queue: failed to send ReportMessage to %s: %w", t.queueURL, err)
	}

	t.logger.InfoContext(ctx, "report message sent",
		"queue_url", t.queueURL,
		"cycle_id", msg.CycleID,
		"run_date", msg.RunDate.Format("2006-01-02"),
		"trigger", string(msg.Trigger),
		"retry_count", msg.RetryCount,
		"trace_id", msg.TraceID,
		"reason", reason,
	)

	return nil
}
