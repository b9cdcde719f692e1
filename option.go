package periscope

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Option configures a Periscope instance.
type Option func(*Periscope)

// WithExpiry overrides the idle window after which untouched filters are removed.
func WithExpiry(d time.Duration) Option {
	return func(p *Periscope) {
		p.config.Expiry = d
	}
}

// WithFetchConcurrency caps parallel block fetches during a range scan.
func WithFetchConcurrency(n int) Option {
	return func(p *Periscope) {
		p.config.FetchConcurrency = n
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(p *Periscope) {
		p.config = cfg
	}
}

// WithClock sets the clock used for filter expiry. Tests pass a fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(p *Periscope) {
		p.clock = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(p *Periscope) {
		p.log = log
	}
}
