package alarm

import "github.com/google/uuid"

// Callback is a user-supplied function invoked when an alarm fires. It
// receives the opaque data supplied at Set/SetOnQueue time.
type Callback func(data any)

// Alarm is a caller-owned handle to a scheduled or schedulable callback.
// Its exported fields are the identity attributes fixed at creation; all
// scheduling state is private and mutated only under the owning Service's
// monitor mutex, with the exception of the per-alarm callback lock.
type Alarm struct {
	// ID is a synthetic identity distinct from Name, so that alarms
	// sharing a caller-chosen Name remain individually addressable. The
	// package itself does not use it: worker queues track *Alarm
	// pointers and the Prometheus collector labels by Name.
	ID uuid.UUID
	// Name is the immutable identifying string supplied at creation.
	Name string
	// IsPeriodic is fixed at creation (NewAlarm vs NewPeriodicAlarm).
	IsPeriodic bool

	Stats Stats

	// callbackLock is held for the duration of each callback invocation;
	// Cancel acquires-and-releases it after removing the alarm from the
	// pending list and its queue, to drain any in-flight invocation.
	callbackLock reentrantLock

	// The following fields are scheduling state, guarded by the owning
	// Service's monitor mutex. They must not be read or written without
	// holding it.
	creationTimeMS int64
	periodMS       int64
	deadlineMS     int64 // 0 means not armed
	prevDeadlineMS int64 // periodic only: deadline of the firing being dispatched
	queue          *Queue
	callback       Callback
	data           any

	// pendingIndex is the alarm's position in the pending list's backing
	// heap, maintained by the pending list's Swap/Push/Pop so that arbitrary
	// removal costs O(log n) instead of a linear scan. -1 means "not in
	// the list".
	pendingIndex int

	// svc back-references the owning Service so a callback may call
	// Cancel/Free on its own alarm without the caller needing to keep a
	// separate Service handle around.
	svc *Service
}

// armed reports whether a is currently armed, i.e. has a callback
// registered. Callers must hold the service monitor.
func (a *Alarm) armed() bool {
	return a.callback != nil
}

// IsScheduled reports whether the alarm currently has a callback
// registered, i.e. it is armed or in the process of dispatching one
// firing.
func (a *Alarm) IsScheduled() bool {
	a.svc.mu.Lock()
	defer a.svc.mu.Unlock()
	return a.armed()
}

// GetRemainingMS returns the number of milliseconds until the alarm's
// current deadline, or 0 if it is unarmed or already due.
func (a *Alarm) GetRemainingMS() int64 {
	a.svc.mu.Lock()
	defer a.svc.mu.Unlock()
	if a.deadlineMS == 0 {
		return 0
	}
	remaining := a.deadlineMS - a.svc.clock.NowMS()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StatsSnapshot returns a point-in-time copy of the alarm's statistics.
func (a *Alarm) StatsSnapshot() StatsSnapshot {
	return a.Stats.snapshot()
}
