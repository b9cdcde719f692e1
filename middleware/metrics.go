package middleware

import (
	"context"
	"sync/atomic"
)

// Metrics collects basic counters for RPC calls.
type Metrics struct {
	calls    atomic.Uint64
	failures atomic.Uint64
}

// NewMetrics creates a metrics collection middleware.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Wrap decorates the call with metrics collection.
func (m *Metrics) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		m.calls.Add(1)
		result, err := next(ctx, method, params...)
		if err != nil {
			m.failures.Add(1)
		}
		return result, err
	}
}

// Calls returns the total number of calls issued.
func (m *Metrics) Calls() uint64 {
	return m.calls.Load()
}

// Failures returns the number of calls that returned an error.
func (m *Metrics) Failures() uint64 {
	return m.failures.Load()
}
