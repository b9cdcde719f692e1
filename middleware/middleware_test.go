package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/periscope/retry"
)

// tagger prepends its tag to a shared order slice, so chain order is visible.
type tagger struct {
	tag   string
	order *[]string
}

func (m *tagger) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		*m.order = append(*m.order, m.tag)
		return next(ctx, method, params...)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	inner := func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		order = append(order, "inner")
		return []byte(`"ok"`), nil
	}

	call := Chain(inner, &tagger{"first", &order}, &tagger{"second", &order})
	_, err := call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "inner"}, order)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	fail := errors.New("nope")

	var shouldFail bool
	call := Chain(func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		if shouldFail {
			return nil, fail
		}
		return nil, nil
	}, m)

	_, _ = call(context.Background(), "a")
	_, _ = call(context.Background(), "b")
	shouldFail = true
	_, _ = call(context.Background(), "c")

	assert.Equal(t, uint64(3), m.Calls())
	assert.Equal(t, uint64(1), m.Failures())
}

func TestRetryMiddleware(t *testing.T) {
	var attempts int
	call := Chain(func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("flaky")
		}
		return []byte(`"0x1"`), nil
	}, NewRetry(&retry.Backoff{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}))

	result, err := call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, `"0x1"`, string(result))
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddlewareExhausted(t *testing.T) {
	boom := errors.New("down")
	call := Chain(func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		return nil, boom
	}, NewRetry(&retry.Backoff{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}))

	_, err := call(context.Background(), "eth_blockNumber")
	require.ErrorIs(t, err, boom)
}

func TestBreakerOpens(t *testing.T) {
	boom := errors.New("down")
	call := Chain(func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		return nil, boom
	}, NewBreaker(retry.NewCircuitBreaker(2, time.Hour)))

	_, err := call(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	_, err = call(context.Background(), "b")
	require.ErrorIs(t, err, boom)

	// Threshold reached: calls are now rejected without reaching the endpoint.
	_, err = call(context.Background(), "c")
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRateLimitSpacesCalls(t *testing.T) {
	call := Chain(func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		return nil, nil
	}, NewRateLimit(30*time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := call(context.Background(), "a")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

type fakeTransport struct {
	calls  int
	closed bool
}

func (f *fakeTransport) Call(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	f.calls++
	return []byte(`"0x2a"`), nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestApply(t *testing.T) {
	ft := &fakeTransport{}
	m := NewMetrics()

	tr := Apply(ft, m)
	result, err := tr.Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, `"0x2a"`, string(result))
	assert.Equal(t, 1, ft.calls)
	assert.Equal(t, uint64(1), m.Calls())

	require.NoError(t, tr.Close())
	assert.True(t, ft.closed)
}
