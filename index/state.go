package index

import (
	"fmt"
	"sync/atomic"
)

// State is the lifecycle state of a Node.
type State int32

const (
	StateUninitialized State = iota
	StateBuilding
	StateBuilt
	StateFailed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Lifecycle implements the Node state machine. The zero value is Uninitialized.
// It is safe for concurrent use.
type Lifecycle struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// BeginBuild moves Uninitialized to Building. Any other starting state
// returns ErrInvalidState, so Building is entered at most once.
func (l *Lifecycle) BeginBuild() error {
	if l.state.CompareAndSwap(int32(StateUninitialized), int32(StateBuilding)) {
		return nil
	}
	return fmt.Errorf("%w: cannot build from state %s", ErrInvalidState, l.State())
}

// EndBuild leaves Building for Built when err is nil and for Failed otherwise.
// It returns err unchanged. If the node was destroyed while building, the
// node stays Destroyed and a nil err is replaced with ErrInvalidState.
func (l *Lifecycle) EndBuild(err error) error {
	next := StateBuilt
	if err != nil {
		next = StateFailed
	}
	if !l.state.CompareAndSwap(int32(StateBuilding), int32(next)) {
		if err == nil {
			return fmt.Errorf("%w: node %s during build", ErrInvalidState, l.State())
		}
	}
	return err
}

// Ready returns nil if the node is Built and a wrapped ErrNotReady otherwise.
func (l *Lifecycle) Ready() error {
	if s := l.State(); s != StateBuilt {
		return fmt.Errorf("%w: state is %s", ErrNotReady, s)
	}
	return nil
}

// Destroy moves the node to Destroyed from any state. It returns true only for
// the call that performed the transition, so owners release resources once.
func (l *Lifecycle) Destroy() bool {
	return State(l.state.Swap(int32(StateDestroyed))) != StateDestroyed
}
