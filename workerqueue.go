package alarm

import "sync"

// Queue is a FIFO worker queue with no capacity limit: it is bound to
// exactly one worker goroutine (by New for the default queue, by
// RegisterProcessingQueue for any other), and processes enqueued alarms
// strictly in FIFO order. Within a single worker queue, callbacks execute
// strictly serially in the order they were enqueued by the dispatcher.
//
// The backing store is a plain mutex-guarded slice rather than a
// lock-free ring or chunked arena: those earn their complexity amortizing
// millions of submissions per second from many producers, but a Queue
// here is fed by a single dispatcher goroutine at a rate bounded by how
// fast alarms can expire, so a slice under a mutex is the right-sized
// tool.
type Queue struct {
	name string
	svc  *Service

	mu    sync.Mutex
	items []*Alarm

	sem countingSemaphore

	registerOnce sync.Once
	stopCh       chan struct{}
	doneCh       chan struct{}
}

func newQueue(svc *Service, name string) *Queue {
	return &Queue{
		name: name,
		svc:  svc,
		sem:  newCountingSemaphore(),
	}
}

// enqueue appends a to the tail of the queue and posts the reactor-ready
// signal. Called by the dispatcher under the service monitor.
func (q *Queue) enqueue(a *Alarm) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
	q.sem.post()
}

// tryDequeue removes and returns the alarm at the head of the queue.
// Returns false if the queue is empty — a racy cancel may already have
// removed the only pending item by the time the worker got to it.
func (q *Queue) tryDequeue() (*Alarm, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	a := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return a, true
}

// tryRemoveFromQueue removes every occurrence of a from the queue
// wherever it sits. An alarm normally appears at most once, but a
// periodic alarm's prior firing may still be queued when Cancel races a
// reschedule, so this defensively drains all stale copies. Returns the
// number of copies removed.
func (q *Queue) tryRemoveFromQueue(a *Alarm) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	kept := q.items[:0]
	for _, item := range q.items {
		if item == a {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	return removed
}

// drainAll removes and returns every alarm currently sitting in the
// queue's backlog, leaving the queue empty. Used when the queue is
// stopped so that alarms still waiting to be dequeued are accounted for
// instead of abandoned.
func (q *Queue) drainAll() []*Alarm {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.items
	q.items = nil
	return drained
}

// length returns the number of alarms currently queued, for diagnostics
// and tests.
func (q *Queue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// start binds the queue to its dedicated worker goroutine: a reactor loop
// that blocks on the queue's ready signal and, on each wakeup, processes
// the alarm at the head of the queue. enqueue posts the signal once per
// alarm, so there is one wakeup per queued alarm.
func (q *Queue) start() {
	q.registerOnce.Do(func() {
		q.stopCh = make(chan struct{})
		q.doneCh = make(chan struct{})
		go q.run()
	})
}

func (q *Queue) run() {
	defer close(q.doneCh)
	for {
		q.sem.wait()
		select {
		case <-q.stopCh:
			return
		default:
		}
		q.svc.handleQueueReady(q)
	}
}

// stop unregisters the queue's reactor and waits for its worker goroutine
// to exit. Safe to call at most once per Queue (UnregisterProcessingQueue
// enforces that via the service's registry).
//
// run's stopCh check happens between dequeues, not after the backlog is
// drained, so one or more alarms can still be sitting in items once the
// worker goroutine has exited. Those are finalized as canceled here
// rather than left abandoned.
func (q *Queue) stop() {
	if q.stopCh == nil {
		return
	}
	close(q.stopCh)
	q.sem.post() // wake the blocked run() loop so it observes stopCh
	<-q.doneCh
	q.sem.close()

	q.svc.cancelAbandonedQueueItems(q.drainAll())
}
