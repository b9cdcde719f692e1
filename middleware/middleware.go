// Package middleware provides interceptors for JSON-RPC transport calls,
// adding cross-cutting behavior (logging, metrics, retries, ...) around a
// transport without the transport knowing.
package middleware

import (
	"context"

	"github.com/hedeqiang/periscope/transport"
)

// CallFunc has the shape of transport.Transport.Call.
type CallFunc func(ctx context.Context, method string, params ...interface{}) ([]byte, error)

// Middleware wraps a CallFunc, adding cross-cutting behavior.
type Middleware interface {
	// Wrap returns a new CallFunc that decorates the given inner call.
	Wrap(next CallFunc) CallFunc
}

// Chain composes multiple middlewares into a single CallFunc, applying them
// in the order provided (first middleware is outermost).
func Chain(call CallFunc, mws ...Middleware) CallFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		call = mws[i].Wrap(call)
	}
	return call
}

// Apply wraps a transport with the given middlewares. Close passes through
// to the underlying transport.
func Apply(t transport.Transport, mws ...Middleware) transport.Transport {
	return &wrapped{
		call:  Chain(t.Call, mws...),
		inner: t,
	}
}

type wrapped struct {
	call  CallFunc
	inner transport.Transport
}

func (w *wrapped) Call(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	return w.call(ctx, method, params...)
}

func (w *wrapped) Close() error {
	return w.inner.Close()
}
