package alarm

import "sync/atomic"

// ServiceState is the lifecycle state of a Service: running or closed,
// with a brief closing window while Cleanup drains outstanding work.
//
// State Machine:
//
//	StateCreated (0) → StateRunning (1)      [New]
//	StateRunning (1) → StateClosing (2)      [Cleanup begins]
//	StateClosing (2) → StateClosed (3)       [Cleanup completes]
//
// Use tryTransition (CAS) for every transition; the state only ever moves
// forward, so Store is never used directly outside newFastState.
type ServiceState uint64

const (
	// StateCreated is the zero value: the Service struct exists but its
	// dispatcher goroutine has not yet started.
	StateCreated ServiceState = 0
	// StateRunning indicates the dispatcher and registered queues are
	// actively processing alarms.
	StateRunning ServiceState = 1
	// StateClosing indicates Cleanup has been called and is draining the
	// dispatcher and worker queues.
	StateClosing ServiceState = 2
	// StateClosed is terminal: no further public API calls are
	// accepted.
	StateClosed ServiceState = 3
)

func (s ServiceState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine guarding a Service's lifecycle,
// checked on every public API call without needing the monitor mutex.
type fastState struct {
	v atomic.Uint64
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(StateCreated))
	return s
}

// load returns the current state atomically.
func (s *fastState) load() ServiceState {
	return ServiceState(s.v.Load())
}

// tryTransition attempts to atomically transition from one state to
// another, returning true on success.
func (s *fastState) tryTransition(from, to ServiceState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// isClosed reports whether the service has finished shutting down.
func (s *fastState) isClosed() bool {
	return s.load() == StateClosed
}

// isAcceptingWork reports whether the service will accept new alarm
// scheduling calls: calls made after Cleanup return ErrServiceClosed
// rather than panicking.
func (s *fastState) isAcceptingWork() bool {
	state := s.load()
	return state == StateCreated || state == StateRunning
}
