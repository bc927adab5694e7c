package core

import (
	"context"
	"sync"
	"time"
)

// --- MockMetricsCollector ---

// MockMetricsCollector implements the MetricsCollector interface for testing.
// It records every RecordRequest invocation for assertion.
//
// Usage:
//
//	mock := &MockMetricsCollector{}
//	srv.Metrics = mock
//	// ... drive requests ...
//	if len(mock.Calls) != 1 { ... }
type MockMetricsCollector struct {
	// mu protects Calls for concurrent access.
	mu sync.Mutex

	// Calls records every RecordRequest invocation in order.
	Calls []RequestMetricCall
}

// RequestMetricCall records the arguments of a single RecordRequest invocation.
type RequestMetricCall struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// RecordRequest implements the MetricsCollector interface.
func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, RequestMetricCall{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Duration: duration,
	})
}

// --- MockHealthProbe ---

// MockHealthProbe implements the HealthProbe interface for testing.
// It returns a fixed error, or delegates to CheckFunc when set for dynamic
// behavior (e.g. blocking until the context expires).
type MockHealthProbe struct {
	// ProbeName is returned by Name.
	ProbeName string

	// Err is the error returned by Check when CheckFunc is nil.
	Err error

	// CheckFunc overrides the default behavior when set.
	CheckFunc func(ctx context.Context) error
}

// Name implements the HealthProbe interface.
func (m *MockHealthProbe) Name() string {
	return m.ProbeName
}

// Check implements the HealthProbe interface.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx)
	}
	return m.Err
}

// Compile-time interface assertions.
var (
	_ MetricsCollector = (*MockMetricsCollector)(nil)
	_ HealthProbe      = (*MockHealthProbe)(nil)
)
