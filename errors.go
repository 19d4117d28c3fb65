package animago

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNoProviders          = errors.New("no providers configured")
	ErrMissingCredential    = errors.New("missing credential")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ConfigurationError reports a configuration problem detected before any provider was called
type ConfigurationError struct {
	Name string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for '%s': %v", e.Name, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// APIError represents a failed attempt against one provider
// Kind is the classification of the reply, or AttemptResultError when the
// call itself failed.
type APIError struct {
	Provider string
	Message  string
	Kind     ClassKind
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsDeadlineError reports whether err was caused by the request-level deadline
func IsDeadlineError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
