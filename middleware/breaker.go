package middleware

import (
	"context"
	"errors"

	"github.com/hedeqiang/periscope/retry"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls.
var ErrCircuitOpen = errors.New("middleware: circuit open")

// Breaker short-circuits RPC calls while the endpoint is failing.
type Breaker struct {
	cb *retry.CircuitBreaker
}

// NewBreaker creates a circuit-breaking middleware.
func NewBreaker(cb *retry.CircuitBreaker) *Breaker {
	return &Breaker{cb: cb}
}

// Wrap decorates the call with the circuit breaker.
func (b *Breaker) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		if !b.cb.Allow() {
			return nil, ErrCircuitOpen
		}
		result, err := next(ctx, method, params...)
		if err != nil {
			b.cb.RecordFailure()
			return nil, err
		}
		b.cb.RecordSuccess()
		return result, nil
	}
}
