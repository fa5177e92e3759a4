package alarm

import (
	"sync"
	"time"
)

// WakelockThresholdMS is the tunable horizon threshold. Re-evaluations
// with a delay strictly below this use the short-horizon
// in-process-timer-plus-wake-lock branch; at or above it, the
// long-horizon kernel wake-alarm branch is used. Externally writable so
// test suites can shrink it; production code must not mutate it at
// runtime.
var WakelockThresholdMS int64 = 3000

const defaultWakeLockID = "alarm-service"

// WakeLockController is the external wake-lock collaborator. Acquire is
// idempotent if already held; Release is idempotent if not held. A real
// implementation on a mobile host delegates to the platform power
// manager; NewNoopWakeLockController, used by default, only logs.
type WakeLockController interface {
	AcquireWakeLock(id string) error
	ReleaseWakeLock(id string) error
}

// WakeAlarmCallout is the external kernel wake-alarm collaborator.
// SetWakeAlarm schedules fire to be invoked no sooner than delayMS from
// now; shouldWake indicates whether the alarm is allowed to wake a
// suspended system. It returns false if the platform refuses the
// request.
type WakeAlarmCallout interface {
	SetWakeAlarm(delayMS int64, shouldWake bool, fire func()) bool
}

// NewNoopWakeLockController returns a WakeLockController that only logs,
// for hosts with no platform power manager (e.g. tests, servers).
func NewNoopWakeLockController(logger Logger) WakeLockController {
	return &noopWakeLock{logger: logger}
}

type noopWakeLock struct{ logger Logger }

func (w *noopWakeLock) AcquireWakeLock(id string) error {
	w.logger.Log(LogEntry{Level: LevelDebug, Category: "wake", Message: "acquire wake lock (noop)", Context: map[string]any{"id": id}})
	return nil
}

func (w *noopWakeLock) ReleaseWakeLock(id string) error {
	w.logger.Log(LogEntry{Level: LevelDebug, Category: "wake", Message: "release wake lock (noop)", Context: map[string]any{"id": id}})
	return nil
}

// NewTimerWakeAlarm returns a WakeAlarmCallout backed by an in-process
// timer. This stands in for a real kernel alarm (e.g. Android's AlarmManager)
// when the host process has no suspend/resume cycle of its own to worry
// about — the long-horizon branch still exercises the same scheduling
// logic, just without an actual wake-from-suspend capability behind it.
func NewTimerWakeAlarm() WakeAlarmCallout {
	return &timerWakeAlarm{}
}

type timerWakeAlarm struct{}

func (timerWakeAlarm) SetWakeAlarm(delayMS int64, _ bool, fire func()) bool {
	if delayMS < 0 {
		delayMS = 0
	}
	time.AfterFunc(time.Duration(delayMS)*time.Millisecond, fire)
	return true
}

// inProcessTimer is the short-horizon "kernel timer" collaborator:
// absolute-time arming on the boot clock, disarmed by arming zero. It is
// implemented on top of time.Timer, translated from absolute deadline to
// a relative delay at arm time.
type inProcessTimer struct {
	mu     sync.Mutex
	timer  *time.Timer
	armed  bool
	target int64
}

// arm schedules fire to run once the clock reaches deadlineMS. Arming
// while already armed replaces the previous arming; arming a zero
// deadline disarms instead.
func (t *inProcessTimer) arm(clock Clock, deadlineMS int64, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if deadlineMS == 0 {
		t.armed = false
		t.timer = nil
		return
	}
	delay := deadlineMS - clock.NowMS()
	if delay < 0 {
		delay = 0
	}
	t.target = deadlineMS
	t.armed = true
	t.timer = time.AfterFunc(time.Duration(delay)*time.Millisecond, fire)
}

// disarm cancels any pending fire.
func (t *inProcessTimer) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = false
}

// isArmed reports whether the timer is currently armed, i.e. the last
// call was arm with a non-zero deadline. It stays true after the timer
// fires; only disarm or arming zero clears it.
func (t *inProcessTimer) isArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

// wakePolicy re-evaluates the single outstanding wake primitive (timer or
// kernel wake-alarm) whenever the pending list's earliest deadline
// changes. All methods are called by the Service with the monitor
// already held.
type wakePolicy struct {
	logger    Logger
	clock     Clock
	wakeLock  WakeLockController
	wakeAlarm WakeAlarmCallout
	timer     *inProcessTimer
	sem       countingSemaphore

	wakeLockHeld     bool
	timerArmedBefore bool // whether the previous re-evaluation left the in-process timer armed
}

func newWakePolicy(logger Logger, clock Clock, wakeLock WakeLockController, wakeAlarm WakeAlarmCallout, sem countingSemaphore) *wakePolicy {
	return &wakePolicy{
		logger:    logger,
		clock:     clock,
		wakeLock:  wakeLock,
		wakeAlarm: wakeAlarm,
		timer:     &inProcessTimer{},
		sem:       sem,
	}
}

// reschedule re-evaluates the wake primitive against the current
// pending-list head. front is the current pending-list head, or nil if
// the list is empty.
func (w *wakePolicy) reschedule(front *Alarm) {
	w.timer.disarm()

	if front == nil {
		w.releaseWakeLockIfHeld()
		w.timerArmedBefore = false
		return
	}

	now := w.clock.NowMS()
	delta := front.deadlineMS - now

	timerArmedNow := false
	if delta < WakelockThresholdMS {
		// Short-horizon branch: hold the wake lock and arm the
		// in-process timer for the absolute deadline.
		if !w.wakeLockHeld {
			if err := w.wakeLock.AcquireWakeLock(defaultWakeLockID); err != nil {
				w.logger.Log(LogEntry{Level: LevelWarn, Category: "wake", Message: "wake lock acquire failed", Err: err})
			} else {
				w.wakeLockHeld = true
			}
		}
		w.timer.arm(w.clock, front.deadlineMS, func() { w.sem.post() })
		timerArmedNow = true

		// Edge case: delta may have already elapsed between computing
		// it and arming the timer. arm clamps a past deadline to a zero
		// delay, which still fires, so that case posts through the
		// timer. The readback below finds the timer disarmed only when
		// the deadline is 0, which arm treats as a disarm; it posts
		// directly then. A double-post is harmless because the
		// dispatcher re-validates the front against now before firing.
		if !w.timer.isArmed() {
			w.sem.post()
		}
	} else {
		// Long-horizon branch: ask the kernel wake-alarm callout.
		// Refusal degrades to "fires whenever the system is next
		// awake" — logged, not retried here.
		if ok := w.wakeAlarm.SetWakeAlarm(delta, true, func() { w.sem.post() }); !ok {
			w.logger.Log(LogEntry{Level: LevelWarn, Category: "wake", Message: "wake alarm refused", Err: ErrWakeAlarmRefused, Context: map[string]any{"delay_ms": delta}})
		}
	}

	if w.timerArmedBefore && !timerArmedNow {
		w.releaseWakeLockIfHeld()
	}
	w.timerArmedBefore = timerArmedNow
}

func (w *wakePolicy) releaseWakeLockIfHeld() {
	if !w.wakeLockHeld {
		return
	}
	if err := w.wakeLock.ReleaseWakeLock(defaultWakeLockID); err != nil {
		w.logger.Log(LogEntry{Level: LevelWarn, Category: "wake", Message: "wake lock release failed", Err: err})
	}
	w.wakeLockHeld = false
}

// close tears down the policy's timer and releases an outstanding wake
// lock, if any, to avoid leaking it on teardown.
func (w *wakePolicy) close() {
	w.timer.disarm()
	w.releaseWakeLockIfHeld()
}
