package external

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"potager/internal/types"
)

// metricPutTimeout bounds each asynchronous PutMetricData call so a slow
// CloudWatch endpoint cannot pile up goroutines behind request traffic.
const metricPutTimeout = 2 * time.Second

// CloudWatchAPI abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// APIMetrics publishes per-request latency to CloudWatch. It satisfies the
// server's MetricsCollector contract: RecordRequest runs on the request
// goroutine after the response is written, so delivery happens on a
// detached goroutine and failures are logged, never surfaced.
type APIMetrics struct {
	client    CloudWatchAPI
	namespace string
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewAPIMetrics creates an APIMetrics publishing to the standard
// namespace.
func NewAPIMetrics(client CloudWatchAPI, logger *slog.Logger) *APIMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIMetrics{
		client:    client,
		namespace: types.MetricNamespace,
		logger:    logger,
	}
}

// RecordRequest emits one APILatency datum dimensioned by endpoint and
// method. The endpoint is the chi route pattern, not the raw path, so
// parameterized routes stay one metric series.
func (m *APIMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), metricPutTimeout)
		defer cancel()

		input := &cloudwatch.PutMetricDataInput{
			Namespace: aws.String(m.namespace),
			MetricData: []cwtypes.MetricDatum{
				{
					MetricName: aws.String(types.MetricAPILatency),
					Value:      aws.Float64(float64(duration.Milliseconds())),
					Unit:       cwtypes.StandardUnitMilliseconds,
					Dimensions: []cwtypes.Dimension{
						{Name: aws.String(types.DimEndpoint), Value: aws.String(endpoint)},
						{Name: aws.String("Method"), Value: aws.String(method)},
					},
				},
			},
		}

		if _, err := m.client.PutMetricData(ctx, input); err != nil {
			m.logger.Warn("failed to publish API latency metric",
				"endpoint", endpoint,
				"method", method,
				"status", status,
				"error", err,
			)
		}
	}()
}

// Flush blocks until all in-flight metric deliveries have finished. The
// server's shutdown path calls it so the last requests before a
// termination still reach CloudWatch.
func (m *APIMetrics) Flush() {
	m.wg.Wait()
}

// ReportMetrics counts report delivery outcomes from the report worker,
// dimensioned by queue name. Unlike APIMetrics it publishes inline: the
// worker is already off the request path and a Lambda invocation must
// not leave goroutines behind.
type ReportMetrics struct {
	client    CloudWatchAPI
	namespace string
	queue     string
	logger    *slog.Logger
}

// NewReportMetrics creates a ReportMetrics for the queue behind
// queueURL. The dimension value is the queue name, not the full URL.
func NewReportMetrics(client CloudWatchAPI, queueURL string, logger *slog.Logger) *ReportMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportMetrics{
		client:    client,
		namespace: types.MetricNamespace,
		queue:     path.Base(queueURL),
		logger:    logger,
	}
}

// ReportSent counts one delivered report email.
func (m *ReportMetrics) ReportSent(ctx context.Context) {
	m.putCount(ctx, types.MetricReportSent)
}

// ReportFailed counts one report that permanently failed delivery.
func (m *ReportMetrics) ReportFailed(ctx context.Context) {
	m.putCount(ctx, types.MetricReportFailed)
}

func (m *ReportMetrics) putCount(ctx context.Context, name string) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: aws.String(types.DimQueue), Value: aws.String(m.queue)},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("failed to publish report delivery metric",
			"metric", name,
			"queue", m.queue,
			"error", err,
		)
	}
}
