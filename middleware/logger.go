package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logger logs each RPC call that passes through the transport.
type Logger struct {
	log *zap.Logger
}

// NewLogger creates a logging middleware using the provided logger.
// If log is nil, a no-op logger is used.
func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log}
}

// Wrap decorates the call with request logging.
func (l *Logger) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		start := time.Now()
		result, err := next(ctx, method, params...)
		if err != nil {
			l.log.Warn("rpc call failed",
				zap.String("method", method),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return nil, err
		}
		l.log.Debug("rpc call",
			zap.String("method", method),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("result_bytes", len(result)),
		)
		return result, nil
	}
}
