package periscope

import "time"

// Config holds the global configuration for a Periscope instance.
type Config struct {
	// Expiry is how long a filter may sit idle (no poll, no refresh)
	// before it is removed. The same window applies to all filter kinds.
	Expiry time.Duration

	// FetchConcurrency caps the number of block fetches issued in
	// parallel during one range scan.
	FetchConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Expiry:           5 * time.Minute,
		FetchConcurrency: 8,
	}
}
