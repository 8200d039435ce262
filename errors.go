package connpool

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by the execution entry points when the pool
	// has not been initialized or has been shut down.
	ErrNotInitialized = errors.New("connection pool was never initialized")

	// ErrAlreadyInitialized is returned by Initialize when the pool is ready
	// or another initialization is in progress.
	ErrAlreadyInitialized = errors.New("connection pool is already initialized")

	// ErrScriptMissing is returned when the bootstrap script cannot be found.
	ErrScriptMissing = errors.New("bootstrap script is missing")

	// ErrShutdownDuringInit is returned when Shutdown is called while
	// Initialize is still running.
	ErrShutdownDuringInit = errors.New("connection pool was shut down during initialization")
)

// InitReason classifies why Initialize failed.
type InitReason int

const (
	ReasonConfiguration InitReason = iota + 1
	ReasonConnect
	ReasonScriptMissing
	ReasonBootstrap
	ReasonAborted
)

func (r InitReason) String() string {
	switch r {
	case ReasonConfiguration:
		return "configuration incomplete"
	case ReasonConnect:
		return "connect failed"
	case ReasonScriptMissing:
		return "bootstrap script missing"
	case ReasonBootstrap:
		return "bootstrap failed"
	case ReasonAborted:
		return "aborted"
	default:
		return fmt.Sprintf("InitReason(%d)", int(r))
	}
}

// InitError is returned by Initialize. The subsystem must be treated as
// unusable until a later Initialize succeeds.
type InitError struct {
	Reason InitReason
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize connection pool: %s: %v", e.Reason, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// InitFailureReason reports the InitReason carried by err, if any.
func InitFailureReason(err error) (InitReason, bool) {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return 0, false
}
