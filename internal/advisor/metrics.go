package advisor

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"potager/internal/types"
)

// CycleMetrics records advisory cycle telemetry. Implementations must
// never fail the cycle: a metric that cannot be recorded is logged and
// dropped.
type CycleMetrics interface {
	CycleSucceeded(ctx context.Context, trigger types.CycleTrigger, duration time.Duration)
	CycleFailed(ctx context.Context, trigger types.CycleTrigger, duration time.Duration)
	RecordAssessments(ctx context.Context, assessed, needingWater int)
	WeatherFetchFailed(ctx context.Context)
	ReportQueued(ctx context.Context)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertions that both implementations satisfy CycleMetrics.
var (
	_ CycleMetrics = (*CloudWatchCycleMetrics)(nil)
	_ CycleMetrics = (NoopCycleMetrics{})
)

// CloudWatchCycleMetrics implements CycleMetrics by publishing to AWS
// CloudWatch.
//
// Metrics emitted:
//   - CycleSuccess / CycleFailure: Dims {Trigger} -- one per cycle outcome
//   - CycleDurationMs: Dims {Trigger} -- wall time of the cycle
//   - UnitsAssessed / UnitsNeedingWater: no dims -- per successful cycle
//   - WeatherFetchFailure: no dims -- provider fetch failed
//   - ReportQueued: no dims -- report message handed to SQS
type CloudWatchCycleMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchCycleMetrics creates a CloudWatchCycleMetrics publishing
// to the standard namespace.
func NewCloudWatchCycleMetrics(client CloudWatchClient, logger types.Logger) *CloudWatchCycleMetrics {
	return &CloudWatchCycleMetrics{
		client:    client,
		namespace: types.MetricNamespace,
		logger:    logger,
	}
}

// CycleSucceeded emits the success count and cycle duration.
func (m *CloudWatchCycleMetrics) CycleSucceeded(ctx context.Context, trigger types.CycleTrigger, duration time.Duration) {
	m.putOutcome(ctx, types.MetricCycleSuccess, trigger, duration)
}

// CycleFailed emits the failure count and cycle duration.
func (m *CloudWatchCycleMetrics) CycleFailed(ctx context.Context, trigger types.CycleTrigger, duration time.Duration) {
	m.putOutcome(ctx, types.MetricCycleFailure, trigger, duration)
}

// putOutcome publishes the outcome count and the cycle duration in a
// single call, both dimensioned by trigger.
func (m *CloudWatchCycleMetrics) putOutcome(ctx context.Context, name string, trigger types.CycleTrigger, duration time.Duration) {
	dims := []cwtypes.Dimension{
		{
			Name:  aws.String(types.DimTrigger),
			Value: aws.String(string(trigger)),
		},
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			{
				MetricName: aws.String(types.MetricCycleDuration),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record cycle outcome metric",
			"error", err.Error(),
			"metric", name,
			"trigger", string(trigger),
		)
	}
}

// RecordAssessments emits the evaluated unit count and how many of
// them need watering action.
func (m *CloudWatchCycleMetrics) RecordAssessments(ctx context.Context, assessed, needingWater int) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricUnitsAssessed),
				Value:      aws.Float64(float64(assessed)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String(types.MetricUnitsNeedingWater),
				Value:      aws.Float64(float64(needingWater)),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record assessment metrics",
			"error", err.Error(),
			"assessed", assessed,
			"needing_water", needingWater,
		)
	}
}

// WeatherFetchFailed counts one failed provider fetch.
func (m *CloudWatchCycleMetrics) WeatherFetchFailed(ctx context.Context) {
	m.putCount(ctx, types.MetricWeatherFetchFailed)
}

// ReportQueued counts one report message handed to the queue.
func (m *CloudWatchCycleMetrics) ReportQueued(ctx context.Context) {
	m.putCount(ctx, types.MetricReportQueued)
}

// putCount publishes a dimensionless count-of-one metric.
func (m *CloudWatchCycleMetrics) putCount(ctx context.Context, name string) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record metric",
			"error", err.Error(),
			"metric", name,
		)
	}
}

// NoopCycleMetrics discards all metrics. Used in local mode and tests.
type NoopCycleMetrics struct{}

func (NoopCycleMetrics) CycleSucceeded(context.Context, types.CycleTrigger, time.Duration) {}
func (NoopCycleMetrics) CycleFailed(context.Context, types.CycleTrigger, time.Duration)    {}
func (NoopCycleMetrics) RecordAssessments(context.Context, int, int)                       {}
func (NoopCycleMetrics) WeatherFetchFailed(context.Context)                                {}
func (NoopCycleMetrics) ReportQueued(context.Context)                                      {}
