package middleware

import (
	"context"

	"github.com/hedeqiang/periscope/retry"
)

// Retry re-issues failed RPC calls according to a retry strategy.
type Retry struct {
	strategy retry.Strategy
}

// NewRetry creates a retrying middleware with the given strategy.
func NewRetry(strategy retry.Strategy) *Retry {
	return &Retry{strategy: strategy}
}

// Wrap decorates the call with retries.
func (r *Retry) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		var result []byte
		err := retry.Do(ctx, r.strategy, func(ctx context.Context) error {
			var callErr error
			result, callErr = next(ctx, method, params...)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}
