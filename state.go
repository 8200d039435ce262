package connpool

import "fmt"

// State is the lifecycle state of a Manager.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// canInitialize reports whether Initialize may start from s.
func (s State) canInitialize() bool {
	return s == StateUninitialized || s == StateFailed || s == StateClosed
}
