package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("record already exists")
	// ErrJobNotRunning is returned when a write targets a closed or unknown job.
	ErrJobNotRunning = errors.New("job is not running")
	// ErrUnknownPlatform is returned when no adapter serves a slug.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// ConfigurationError reports a missing or inactive platform/account. It is
// fatal for the run and never retried.
type ConfigurationError struct {
	Platform string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %q: %s: %v", e.Platform, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error for %q: %s", e.Platform, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
