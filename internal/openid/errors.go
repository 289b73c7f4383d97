package openid

import (
	"errors"
	"fmt"
)

// Error taxonomy. Configuration errors are fatal and raised before any
// network call; protocol errors mean the flow itself cannot proceed (no
// endpoint, provider refused). Association failures are NOT errors at this
// level: they degrade the request instead of aborting it.
var (
	// ErrNoEndpoint means discovery produced nothing usable for the
	// identifier, or the caller's filter rejected every candidate.
	ErrNoEndpoint = errors.New("openid: no provider endpoint found")

	// ErrFrozen is returned when a mutator is called on a request that has
	// already been rendered.
	ErrFrozen = errors.New("openid: request already finalized")
)

// ConfigError marks caller mistakes: missing inputs, a return_to outside the
// realm, duplicate callback keys. These always propagate; nothing in the
// engine swallows them.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "openid: configuration error: " + e.Reason }

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ProtocolError is a failure surfaced by the protocol flow itself, such as a
// provider rejecting an associate request with an error response.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return "openid: " + e.Message }
