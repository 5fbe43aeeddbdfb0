package sync

import "time"

// Config carries the tuning knobs for a sync run. Zero values take the
// defaults below, which match the provider's rate-limit guidance.
type Config struct {
	// APICallTimeout bounds each single-record provider lookup.
	APICallTimeout time.Duration
	// ProcessingTimeLimit is the hard wall-clock budget for a whole run.
	ProcessingTimeLimit time.Duration
	// BatchSize is how many webinars are enhanced in parallel per batch.
	BatchSize int
	// BatchDelay is the pause between batches. Deliberate backpressure for
	// the provider's rate limits, not a performance lever.
	BatchDelay time.Duration
	// MaxConsecutiveFailures opens the enhancement circuit breaker.
	MaxConsecutiveFailures int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		APICallTimeout:         5 * time.Second,
		ProcessingTimeLimit:    25 * time.Second,
		BatchSize:              5,
		BatchDelay:             time.Second,
		MaxConsecutiveFailures: 3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.APICallTimeout <= 0 {
		c.APICallTimeout = def.APICallTimeout
	}
	if c.ProcessingTimeLimit <= 0 {
		c.ProcessingTimeLimit = def.ProcessingTimeLimit
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = def.BatchDelay
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	return c
}
