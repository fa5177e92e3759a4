package alarm

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the public API. Check against these with
// errors.Is.
var (
	// ErrServiceClosed is returned by any public API call made after
	// Cleanup has completed.
	ErrServiceClosed = errors.New("alarm: service is closed")

	// ErrAlarmNotArmed describes an alarm with no callback registered.
	// No operation of this package returns it: Cancel on an unarmed
	// alarm succeeds as a no-op.
	ErrAlarmNotArmed = errors.New("alarm: alarm is not armed")

	// ErrQueueNotRegistered is returned by UnregisterProcessingQueue for
	// a queue that was never registered, or already unregistered.
	ErrQueueNotRegistered = errors.New("alarm: queue is not registered")

	// ErrQueueAlreadyRegistered is returned by RegisterProcessingQueue
	// when the queue is already bound to a worker thread.
	ErrQueueAlreadyRegistered = errors.New("alarm: queue is already registered")

	// ErrWakeAlarmRefused is logged, not returned to callers, when the
	// kernel wake-alarm callout declines a long-horizon schedule
	// request. Refusal is a degrade-and-continue condition.
	ErrWakeAlarmRefused = errors.New("alarm: kernel wake alarm refused scheduling request")
)

// PreconditionError models a programmer error: the service asserts and
// aborts rather than trying to run on from an invalid precondition.
// Rather than a bare panic(string), the service panics with a
// PreconditionError so a recovered panic (a test harness, or an embedding
// host with its own supervisor) can still be matched with errors.As and
// reported with structured context.
type PreconditionError struct {
	Operation string
	Message   string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("alarm: precondition violated in %s: %s", e.Operation, e.Message)
}

func precondition(operation, message string) {
	panic(&PreconditionError{Operation: operation, Message: message})
}

// WrapError attaches additional context to cause while preserving it for
// errors.Is/errors.As.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
