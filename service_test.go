package alarm

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	svc := New(WithLogger(NewNoopLogger()))
	t.Cleanup(func() { _ = svc.Cleanup() })
	return svc
}

// S1: a one-shot alarm fires once, close to its requested delay.
func TestService_OneShotFires(t *testing.T) {
	svc := newTestService(t)

	fired := make(chan time.Time, 1)
	a := svc.NewAlarm("s1")
	start := time.Now()
	require.NoError(t, a.Set(80, func(data any) { fired <- time.Now() }, nil))

	select {
	case at := <-fired:
		elapsed := at.Sub(start)
		assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
		assert.Less(t, elapsed, 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
	}

	snap := a.StatsSnapshot()
	assert.Equal(t, int64(1), snap.ScheduledCount)
	assert.Equal(t, int64(1), snap.CallbackExecution.Count)
}

// S2: a periodic alarm fires repeatedly until canceled, and never fires
// again afterward.
func TestService_PeriodicFiresUntilCanceled(t *testing.T) {
	svc := newTestService(t)

	var count atomic.Int64
	a := svc.NewPeriodicAlarm("s2")
	require.NoError(t, a.Set(40, func(data any) { count.Add(1) }, nil))

	time.Sleep(260 * time.Millisecond)
	require.NoError(t, a.Cancel())

	observed := count.Load()
	assert.GreaterOrEqual(t, observed, int64(3))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, observed, count.Load(), "no further firings after cancel")
}

// S4: two alarms enqueued in order on the same (default) queue fire in
// that order.
func TestService_SameQueueOrdering(t *testing.T) {
	svc := newTestService(t)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})

	x := svc.NewAlarm("x")
	y := svc.NewAlarm("y")
	record := func(name string) Callback {
		return func(data any) {
			mu.Lock()
			order = append(order, name)
			n := len(order)
			mu.Unlock()
			if n == 2 {
				close(done)
			}
		}
	}
	require.NoError(t, x.Set(50, record("x"), nil))
	require.NoError(t, y.Set(50, record("y"), nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("both alarms did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, []string{"x", "y"}, order)
}

// S5: a callback may cancel and free its own alarm without deadlocking.
func TestService_SelfCancelFromCallback(t *testing.T) {
	svc := newTestService(t)

	done := make(chan struct{})
	a := svc.NewAlarm("self-cancel")
	require.NoError(t, a.Set(30, func(data any) {
		require.NoError(t, a.Cancel())
		require.NoError(t, a.Free())
		close(done)
	}, nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("self-cancel callback deadlocked or never ran")
	}
}

// S6: a cancel racing the dispatcher either observes the callback not run
// (and the alarm was removed from the queue) or blocks until the
// in-flight callback finishes. No third outcome is observable.
func TestService_CancelRaceAgainstDispatch(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 25; i++ {
		started := make(chan struct{})
		ran := make(chan struct{})
		a := svc.NewAlarm("race")
		require.NoError(t, a.Set(5, func(data any) {
			close(started)
			time.Sleep(5 * time.Millisecond)
			close(ran)
		}, nil))

		time.Sleep(4 * time.Millisecond) // close to the deadline, racing the dispatcher
		require.NoError(t, a.Cancel())

		select {
		case <-ran:
			// Outcome (b): Cancel returned only after the callback
			// completed.
		default:
			// Outcome (a): callback never ran. A callback that started
			// but has not finished would be the forbidden third outcome.
			select {
			case <-started:
				t.Fatal("Cancel returned while the callback was still running")
			default:
			}
		}
	}
}

func TestService_RegisterAndUnregisterProcessingQueue(t *testing.T) {
	svc := newTestService(t)

	q, err := svc.RegisterProcessingQueue("extra")
	require.NoError(t, err)

	_, err = svc.RegisterProcessingQueue("extra")
	assert.ErrorIs(t, err, ErrQueueAlreadyRegistered)

	fired := make(chan struct{})
	a := svc.NewAlarm("on-extra")
	require.NoError(t, a.SetOnQueue(1000, func(data any) { close(fired) }, nil, q))

	require.NoError(t, svc.UnregisterProcessingQueue(q))

	select {
	case <-fired:
		t.Fatal("alarm bound to an unregistered queue must not fire")
	case <-time.After(100 * time.Millisecond):
	}

	assert.False(t, a.IsScheduled())

	err = svc.UnregisterProcessingQueue(q)
	assert.ErrorIs(t, err, ErrQueueNotRegistered)
}

func TestService_PreconditionViolationsPanic(t *testing.T) {
	svc := newTestService(t)
	a := svc.NewAlarm("bad")

	assert.Panics(t, func() {
		_ = a.Set(100, nil, nil)
	})

	assert.Panics(t, func() {
		_ = a.SetOnQueue(100, func(any) {}, nil, nil)
	})
}

func TestService_OperationsAfterCleanupReturnErrServiceClosed(t *testing.T) {
	svc := New(WithLogger(NewNoopLogger()))
	a := svc.NewAlarm("closing")
	require.NoError(t, svc.Cleanup())

	assert.ErrorIs(t, a.Set(100, func(any) {}, nil), ErrServiceClosed)
	assert.ErrorIs(t, a.Cancel(), ErrServiceClosed)
	_, err := svc.RegisterProcessingQueue("late")
	assert.ErrorIs(t, err, ErrServiceClosed)
}

// newNoDispatchService builds a Service with a live wake policy but no
// dispatcher goroutine and no started queues, so tests can drive pure
// scheduling math (scheduleNextInstanceLocked) under a fake clock without
// a background goroutine racing the assertions.
func newNoDispatchService(clock Clock) *Service {
	svc := &Service{
		clock:   clock,
		logger:  NewNoopLogger(),
		pending: newPendingList(),
		sem:     newCountingSemaphore(),
		queues:  make(map[string]*Queue),
		state:   newFastState(),
	}
	svc.wake = newWakePolicy(svc.logger, svc.clock, &recordingWakeLock{}, &recordingWakeAlarm{}, svc.sem)
	if !svc.state.tryTransition(StateCreated, StateRunning) {
		panic("newNoDispatchService: state transition failed")
	}
	return svc
}

// Periodic re-anchoring always lands on a creation-relative boundary:
// deadline == creationTimeMS + k*period for some non-negative integer k,
// never creeping forward by whatever lateness the previous firing
// accumulated.
func TestService_PeriodicAnchoringFormula(t *testing.T) {
	clock := newFakeClock(1_000)
	svc := newNoDispatchService(clock)

	const period = int64(20_000) // long-horizon: never arms a real short timer
	q := newQueue(svc, "anchoring")
	a := svc.newAlarm("anchor", true)

	require.NoError(t, a.SetOnQueue(period, func(any) {}, nil, q))
	assert.Equal(t, a.creationTimeMS+period, a.deadlineMS)

	// Advance the clock well past several periods, as if a firing ran
	// very late, and re-anchor. The new deadline must still be an exact
	// multiple of period away from creationTimeMS, not period away from
	// "now".
	clock.Advance(period*3 + 7_531)
	svc.mu.Lock()
	svc.scheduleNextInstanceLocked(a)
	svc.mu.Unlock()

	offset := a.deadlineMS - a.creationTimeMS
	assert.Equal(t, int64(0), offset%period, "deadline must fall on a creation-relative period boundary")
	assert.GreaterOrEqual(t, a.deadlineMS, clock.NowMS(), "re-anchored deadline must not be in the past")
	assert.Less(t, a.deadlineMS, clock.NowMS()+period, "re-anchored deadline must be the next boundary, not a later one")
}

// Zero-period alarms pass straight through instead of being rejected:
// SetOnQueue with period 0 arms a deadline equal to the current time for
// both one-shot and periodic alarms.
func TestService_ZeroPeriodPassThrough(t *testing.T) {
	clock := newFakeClock(5_000)
	svc := newNoDispatchService(clock)
	q := newQueue(svc, "zero-period")

	oneShot := svc.newAlarm("zero-one-shot", false)
	require.NoError(t, oneShot.SetOnQueue(0, func(any) {}, nil, q))
	assert.Equal(t, clock.NowMS(), oneShot.deadlineMS)

	periodic := svc.newAlarm("zero-periodic", true)
	require.NoError(t, periodic.SetOnQueue(0, func(any) {}, nil, q))
	assert.Equal(t, clock.NowMS(), periodic.deadlineMS)
}

// A Set/SetOnQueue call that races an in-flight callback invocation does
// not affect that invocation: the callback already running keeps the
// callback/data it captured when dispatched, and the new arming is only
// observed by the next firing.
func TestService_RearmDuringFlightUsesCapturedCallback(t *testing.T) {
	svc := newTestService(t)

	type firing struct {
		label string
		data  any
	}
	firings := make(chan firing, 4)
	inFlight := make(chan struct{})
	release := make(chan struct{})

	a := svc.NewAlarm("rearm-in-flight")
	first := func(data any) {
		close(inFlight)
		<-release
		firings <- firing{label: "first", data: data}
	}
	require.NoError(t, a.Set(10, first, "first-data"))

	select {
	case <-inFlight:
	case <-time.After(2 * time.Second):
		t.Fatal("first callback never started")
	}

	second := func(data any) { firings <- firing{label: "second", data: data} }
	require.NoError(t, a.Set(10, second, "second-data"))
	close(release)

	got := map[string]any{}
	for i := 0; i < 2; i++ {
		select {
		case f := <-firings:
			got[f.label] = f.data
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 2 firings observed", i)
		}
	}
	assert.Equal(t, "first-data", got["first"], "in-flight invocation must keep its captured data")
	assert.Equal(t, "second-data", got["second"], "rearm is visible only to the next firing")
}

func TestService_GetRemainingMSAndIsScheduled(t *testing.T) {
	svc := newTestService(t)
	a := svc.NewAlarm("remaining")
	assert.False(t, a.IsScheduled())
	assert.Equal(t, int64(0), a.GetRemainingMS())

	require.NoError(t, a.Set(1000, func(any) {}, nil))
	assert.True(t, a.IsScheduled())
	remaining := a.GetRemainingMS()
	assert.Greater(t, remaining, int64(0))
	assert.LessOrEqual(t, remaining, int64(1000))

	require.NoError(t, a.Cancel())
	assert.False(t, a.IsScheduled())
	assert.Equal(t, int64(0), a.GetRemainingMS())
}
