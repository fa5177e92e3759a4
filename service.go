package alarm

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Service owns the pending list, the wake policy, the dispatcher
// goroutine and the set of registered worker queues. All exported
// constructors and the Alarm methods that take it as a receiver's svc
// back-reference serialize through mu, the service's monitor.
type Service struct {
	mu sync.Mutex // the monitor

	clock  Clock
	logger Logger

	pending *pendingList
	wake    *wakePolicy
	sem     countingSemaphore

	queues       map[string]*Queue
	defaultQueue *Queue

	state             *fastState
	dispatcherDone    chan struct{}
	shutdownRequested chan struct{}

	dispatcherPriority bool
	metrics            MetricsCollector
}

// New constructs and starts a Service: the monitor, pending list, wake
// policy, default worker queue and dispatcher goroutine are all live by
// the time New returns. Idiomatic Go favors an explicit, synchronous
// constructor over a hidden init-on-first-use guard; it is also trivially
// thread-safe, since New does the initialization itself, once, before
// returning a usable Service to any goroutine.
func New(opts ...ServiceOption) *Service {
	cfg := resolveServiceOptions(opts)

	svc := &Service{
		clock:              cfg.clock,
		logger:             cfg.logger,
		pending:            newPendingList(),
		sem:                newCountingSemaphore(),
		queues:             make(map[string]*Queue),
		state:              newFastState(),
		dispatcherDone:     make(chan struct{}),
		shutdownRequested:  make(chan struct{}),
		dispatcherPriority: cfg.dispatcherPriority,
		metrics:            cfg.metrics,
	}
	svc.wake = newWakePolicy(svc.logger, svc.clock, cfg.wakeLock, cfg.wakeAlarm, svc.sem)

	svc.defaultQueue = newQueue(svc, "default")
	svc.queues[svc.defaultQueue.name] = svc.defaultQueue
	svc.defaultQueue.start()

	if !svc.state.tryTransition(StateCreated, StateRunning) {
		precondition("New", "state transition to Running failed on a fresh service")
	}

	go svc.dispatcherLoop()

	return svc
}

// DefaultQueue returns the worker queue implicitly used by Set.
func (s *Service) DefaultQueue() *Queue {
	return s.defaultQueue
}

// NewAlarm allocates a one-shot alarm. The returned Alarm is not armed
// until Set or SetOnQueue is called.
func (s *Service) NewAlarm(name string) *Alarm {
	return s.newAlarm(name, false)
}

// NewPeriodicAlarm allocates a periodic alarm. The returned Alarm is not
// armed until Set or SetOnQueue is called.
func (s *Service) NewPeriodicAlarm(name string) *Alarm {
	return s.newAlarm(name, true)
}

func (s *Service) newAlarm(name string, periodic bool) *Alarm {
	return &Alarm{
		ID:           uuid.New(),
		Name:         name,
		IsPeriodic:   periodic,
		pendingIndex: -1,
		svc:          s,
	}
}

// Set arms a on the default worker queue. Equivalent to
// SetOnQueue(intervalMS, cb, data, svc.DefaultQueue()).
func (a *Alarm) Set(intervalMS int64, cb Callback, data any) error {
	return a.SetOnQueue(intervalMS, cb, data, a.svc.DefaultQueue())
}

// SetOnQueue arms a with the given interval, callback and queue. For a
// one-shot alarm, intervalMS is the delay from now; for a periodic alarm
// it is the period. Calling SetOnQueue on an already-armed alarm
// implicitly reschedules it.
func (a *Alarm) SetOnQueue(intervalMS int64, cb Callback, data any, queue *Queue) error {
	s := a.svc
	if cb == nil {
		precondition("SetOnQueue", "callback must not be nil")
	}
	if queue == nil {
		precondition("SetOnQueue", "queue must not be nil")
	}
	if !s.state.isAcceptingWork() {
		return ErrServiceClosed
	}

	s.mu.Lock()
	a.creationTimeMS = s.clock.NowMS()
	a.periodMS = intervalMS
	a.queue = queue
	a.callback = cb
	a.data = data
	s.scheduleNextInstanceLocked(a)
	s.mu.Unlock()

	a.Stats.incScheduled()
	if s.metrics != nil {
		s.metrics.ScheduledAlarm(a.Name)
	}
	return nil
}

// Cancel removes a from the pending list and its worker queue, then
// blocks until any in-flight invocation of a's callback returns. Cancel
// is idempotent and safe to call from within a's own callback.
func (a *Alarm) Cancel() error {
	s := a.svc
	if s.state.isClosed() {
		return ErrServiceClosed
	}

	s.mu.Lock()
	wasArmed := a.armed()
	s.cancelLocked(a)
	s.mu.Unlock()

	if wasArmed {
		a.Stats.incCanceled()
		if s.metrics != nil {
			s.metrics.CanceledAlarm(a.Name)
		}
	}

	// Drain any in-flight callback. Re-entrant: if called from within
	// a's own callback, this goroutine already owns callbackLock and
	// passes straight through.
	a.callbackLock.Lock()
	a.callbackLock.Unlock()
	return nil
}

// cancelLocked performs the pending-list and worker-queue removal steps
// of cancel under the monitor. Called by Cancel and by
// UnregisterProcessingQueue.
func (s *Service) cancelLocked(a *Alarm) {
	wasFront := s.pending.front() == a
	s.pending.remove(a)
	if a.queue != nil {
		a.queue.tryRemoveFromQueue(a)
	}
	a.callback = nil
	a.data = nil
	a.deadlineMS = 0
	if wasFront {
		s.wake.reschedule(s.pending.front())
	}
}

// Free cancels a and releases its resources. Go's garbage collector
// reclaims the Alarm itself once the caller drops its last reference;
// Free's job is purely the cancellation side effects.
func (a *Alarm) Free() error {
	return a.Cancel()
}

// scheduleNextInstanceLocked computes and arms a's next deadline, reusing
// the original creation time as the periodic phase anchor so a periodic
// alarm's firings stay aligned to a fixed cadence rather than drifting by
// each firing's dispatch latency. Called under the monitor with
// a.callback already set.
func (s *Service) scheduleNextInstanceLocked(a *Alarm) {
	wasFront := a.armed() && s.pending.front() == a
	if a.armed() {
		s.pending.remove(a)
		if a.queue != nil {
			a.queue.tryRemoveFromQueue(a)
		}
	}

	now := s.clock.NowMS()
	period := a.periodMS
	var msIntoPeriod int64
	// Deliberate pass-through: period <= 0 is not rejected; msIntoPeriod stays 0.
	if a.IsPeriodic && period > 0 {
		msIntoPeriod = (now - a.creationTimeMS) % period
	}
	a.deadlineMS = now + (period - msIntoPeriod)

	s.pending.insert(a)

	if wasFront || s.pending.front() == a {
		s.wake.reschedule(s.pending.front())
	}
}

// dispatcherLoop is the single goroutine that pops due alarms off the
// pending list and hands each to its worker queue. It runs for the
// lifetime of the Service, exiting only once Cleanup closes
// shutdownRequested and posts the expiration signal to unblock the final
// wait.
func (s *Service) dispatcherLoop() {
	defer close(s.dispatcherDone)

	if s.dispatcherPriority {
		runtime.LockOSThread()
		// Best-effort: a lower (more negative) nice value raises
		// scheduling priority on Linux; elsewhere the call is a no-op.
		// Failure (e.g. insufficient privilege) is logged and otherwise
		// ignored; this
		// is a dedicated high-priority thread attempt, not a hard
		// guarantee of one.
		if err := setDispatcherPriority(); err != nil {
			s.logger.Log(LogEntry{Level: LevelWarn, Category: "dispatch", Message: "failed to raise dispatcher priority", Err: err})
		}
	}

	for {
		s.sem.wait()

		select {
		case <-s.shutdownRequested:
			return
		default:
		}

		s.mu.Lock()
		front := s.pending.front()
		if front == nil || front.deadlineMS > s.clock.NowMS() {
			s.wake.reschedule(s.pending.front())
			s.mu.Unlock()
			continue
		}

		a := s.pending.popFront()
		if a.IsPeriodic {
			a.prevDeadlineMS = a.deadlineMS
			s.scheduleNextInstanceLocked(a)
			a.Stats.incRescheduled()
			if s.metrics != nil {
				s.metrics.RescheduledAlarm(a.Name)
			}
		} else {
			a.prevDeadlineMS = a.deadlineMS
		}

		s.wake.reschedule(s.pending.front())

		// Enqueue while still holding the monitor: a concurrent
		// Set/SetOnQueue or Cancel on this same alarm must see it
		// already sitting in its queue (so tryRemoveFromQueue has
		// something to drain), never the gap between popping it from
		// the pending list and it actually reaching the queue.
		if a.queue != nil {
			a.queue.enqueue(a)
		}
		s.mu.Unlock()
	}
}

// handleQueueReady is the worker queue handler. Called by a Queue's
// reactor goroutine whenever it wakes with at least one item pending.
func (s *Service) handleQueueReady(q *Queue) {
	a, ok := q.tryDequeue()
	if !ok {
		return
	}

	s.mu.Lock()
	cb := a.callback
	data := a.data
	effectiveDeadline := a.deadlineMS
	if a.IsPeriodic {
		effectiveDeadline = a.prevDeadlineMS
	}
	if !a.IsPeriodic {
		a.callback = nil
		a.data = nil
		a.deadlineMS = 0
	}
	a.callbackLock.Lock()
	s.mu.Unlock()

	if cb != nil {
		t0 := s.clock.NowMS()
		cb(data)
		t1 := s.clock.NowMS()

		execMS := t1 - t0
		jitterMS := t0 - effectiveDeadline
		a.Stats.recordFiring(execMS, jitterMS)
		if s.metrics != nil {
			s.metrics.ObserveCallbackExecution(a.Name, execMS)
			s.metrics.ObserveSchedulingJitter(a.Name, jitterMS)
		}
	}

	a.callbackLock.Unlock()
}

// cancelAbandonedQueueItems finalizes alarms still sitting in a queue's
// backlog when the queue is stopped: each is marked canceled without its
// callback running, the same outcome a direct Cancel would have produced.
func (s *Service) cancelAbandonedQueueItems(abandoned []*Alarm) {
	if len(abandoned) == 0 {
		return
	}

	s.mu.Lock()
	for _, a := range abandoned {
		if !a.armed() {
			continue
		}
		a.callback = nil
		a.data = nil
		a.deadlineMS = 0
	}
	s.mu.Unlock()

	for _, a := range abandoned {
		a.Stats.incCanceled()
		if s.metrics != nil {
			s.metrics.CanceledAlarm(a.Name)
		}
		a.callbackLock.Lock()
		a.callbackLock.Unlock()
	}
}

// RegisterProcessingQueue creates and starts a new named worker queue,
// binding it to a dedicated goroutine. The name must be unique among
// currently registered queues.
func (s *Service) RegisterProcessingQueue(name string) (*Queue, error) {
	if !s.state.isAcceptingWork() {
		return nil, ErrServiceClosed
	}

	s.mu.Lock()
	if _, exists := s.queues[name]; exists {
		s.mu.Unlock()
		return nil, ErrQueueAlreadyRegistered
	}
	q := newQueue(s, name)
	s.queues[name] = q
	s.mu.Unlock()

	q.start()
	return q, nil
}

// UnregisterProcessingQueue stops q's worker goroutine and cancels every
// alarm currently armed against it. The default queue cannot be
// unregistered.
func (s *Service) UnregisterProcessingQueue(q *Queue) error {
	if q == s.defaultQueue {
		precondition("UnregisterProcessingQueue", "the default queue cannot be unregistered")
	}
	if !s.state.isAcceptingWork() {
		return ErrServiceClosed
	}

	s.mu.Lock()
	if _, exists := s.queues[q.name]; !exists {
		s.mu.Unlock()
		return ErrQueueNotRegistered
	}
	delete(s.queues, q.name)

	var bound []*Alarm
	for _, a := range s.pending.items {
		if a.queue == q {
			bound = append(bound, a)
		}
	}
	for _, a := range bound {
		s.cancelLocked(a)
	}
	s.mu.Unlock()

	for _, a := range bound {
		a.Stats.incCanceled()
		if s.metrics != nil {
			s.metrics.CanceledAlarm(a.Name)
		}
		a.callbackLock.Lock()
		a.callbackLock.Unlock()
	}

	q.stop()
	return nil
}

// Cleanup stops the dispatcher, every registered worker queue, and
// releases the wake policy's resources. Only the first call does so; any
// later call returns ErrServiceClosed.
func (s *Service) Cleanup() error {
	if !s.state.tryTransition(StateRunning, StateClosing) {
		return ErrServiceClosed
	}

	close(s.shutdownRequested)
	s.sem.post()
	<-s.dispatcherDone

	s.mu.Lock()
	queues := make([]*Queue, 0, len(s.queues))
	for _, q := range s.queues {
		queues = append(queues, q)
	}
	s.wake.close()
	s.mu.Unlock()

	for _, q := range queues {
		q.stop()
	}
	s.sem.close()

	s.state.tryTransition(StateClosing, StateClosed)
	return nil
}
