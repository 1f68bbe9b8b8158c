package config

import (
	"fmt"
	"strings"

	"github.com/grovetools/pollwatch/errors"
	"github.com/grovetools/pollwatch/pkg/hostfs"
	"github.com/hashicorp/go-multierror"
)

// Validate checks the configuration after defaults have been applied. Every
// problem found is reported in one aggregated error.
func (c *Config) Validate() error {
	var result *multierror.Error

	w := c.Watch
	if w.PollIntervalMs <= 0 {
		result = multierror.Append(result, fmt.Errorf("watch.poll_interval_ms must be positive, got %d", w.PollIntervalMs))
	}
	if w.Backoff.InitialMs <= 0 {
		result = multierror.Append(result, fmt.Errorf("watch.backoff.initial_ms must be positive, got %d", w.Backoff.InitialMs))
	}
	if w.Backoff.MaxMs < w.Backoff.InitialMs {
		result = multierror.Append(result, fmt.Errorf("watch.backoff.max_ms (%d) must not be less than initial_ms (%d)", w.Backoff.MaxMs, w.Backoff.InitialMs))
	}
	if w.Directory != "" && strings.TrimSpace(w.Directory) == "" {
		result = multierror.Append(result, fmt.Errorf("watch.directory must not be blank"))
	}
	if err := hostfs.ValidatePatterns(w.Ignore); err != nil {
		result = multierror.Append(result, fmt.Errorf("watch.ignore: %w", err))
	}
	if c.Daemon.DebounceMs < 0 {
		result = multierror.Append(result, fmt.Errorf("daemon.debounce_ms must not be negative, got %d", c.Daemon.DebounceMs))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid configuration").
			WithDetail("problems", len(result.Errors))
	}
	return nil
}
