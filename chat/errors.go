package chat

import "errors"

// Error taxonomy for the orchestration core. Callers match with errors.Is;
// wrapped variants carry the underlying detail.
var (
	// ErrInvalidConfiguration is returned when a configuration value is out
	// of range. The previous configuration stays in effect.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyInput is returned when a send carries neither text nor an
	// image. Nothing is dispatched and history is left untouched.
	ErrEmptyInput = errors.New("empty input")

	// ErrUpstreamFailure wraps any failure reported by the upstream API
	// collaborator. The call is not retried.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrCancelled is reported by a stream that was closed before all
	// fragments were consumed.
	ErrCancelled = errors.New("stream cancelled")
)
