package animago

import (
	"context"
	"time"
)

// Provider defines the interface that every image-to-video provider must implement
type Provider interface {
	// Name returns the provider name reported to callers
	Name() string

	// Attempt performs one call against the provider and returns its raw reply.
	// Any HTTP status is returned as a response, not an error; errors are
	// reserved for transport failures and timeouts.
	Attempt(ctx context.Context, req ValidatedRequest, prompt string, profile StyleProfile) (*RawResponse, error)
}

// AttemptObserver receives one call per provider attempt
type AttemptObserver interface {
	ObserveAttempt(provider string, kind ClassKind, elapsed time.Duration)
}

// AttemptResultError is the ClassKind reported to an AttemptObserver for transport failures
const AttemptResultError ClassKind = "transport_error"
