// Package transport provides RPC transport layer abstractions.
package transport

import (
	"context"
)

// Transport sends single-shot JSON-RPC requests and returns raw responses.
type Transport interface {
	// Call sends a JSON-RPC request and returns the result bytes.
	Call(ctx context.Context, method string, params ...interface{}) ([]byte, error)

	// Close terminates the transport connection.
	Close() error
}
