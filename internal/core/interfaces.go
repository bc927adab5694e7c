package core

import (
	"context"
	"time"
)

// MetricsCollector records API request telemetry. Implementations emit
// latency metrics to CloudWatch or equivalent backends using the metric
// constants from the types package.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe is one critical dependency check (database, queue) run by
// the readiness endpoint. Probes must respect the context deadline.
type HealthProbe interface {
	// Name identifies the probe in the readiness response ("database").
	Name() string

	// Check returns an error when the subsystem is unhealthy.
	Check(ctx context.Context) error
}

// NewProbe adapts a plain function to the HealthProbe interface, which
// keeps entry points from defining one-method types for each dependency.
func NewProbe(name string, check func(ctx context.Context) error) HealthProbe {
	return probeFunc{name: name, check: check}
}

type probeFunc struct {
	name  string
	check func(ctx context.Context) error
}

func (p probeFunc) Name() string                    { return p.name }
func (p probeFunc) Check(ctx context.Context) error { return p.check(ctx) }
