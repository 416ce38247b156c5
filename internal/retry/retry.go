// Package retry re-runs flaky operations with exponential backoff.
//
// Downloads fail transiently (throttling, dropped connections), so the fetch
// step is retried; reformat and trim are deterministic and are not.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds backoff parameters.
//
// Invalid values are normalized:
//   - MaxRetries < 0 becomes 0 (single attempt)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay <= 0 becomes BaseDelay
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// OnRetry, if set, is called before each retry with the upcoming attempt
	// number (starting at 2), the error that triggered it, and the wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Default backoff for fetches.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 2 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// Default returns the fetch backoff configuration.
func Default() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

func (c *Config) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// Do calls fn until it succeeds, shouldRetry rejects its error, the retries
// are exhausted, or ctx is done. The delay doubles after each failure, capped
// at MaxDelay.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry func(error) bool) error {
	cfg.normalize()

	wait := cfg.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		if attempt > cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, cfg.MaxDelay)
	}

	if cfg.MaxRetries == 0 {
		return err
	}
	return fmt.Errorf("gave up after %d attempts: %w", cfg.MaxRetries+1, err)
}
