package alarm

import "sync"

// chanSemaphore is the portable countingSemaphore fallback, used on
// non-Linux platforms and when the eventfd backend fails to initialize.
// It is a plain counter guarded by a mutex and condition variable.
type chanSemaphore struct {
	mu     sync.Mutex
	cond   *sync.Cond
	count  int
	closed bool
}

func newChanSemaphore() countingSemaphore {
	s := &chanSemaphore{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *chanSemaphore) post() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *chanSemaphore) wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.count > 0 {
		s.count--
	}
}

func (s *chanSemaphore) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
}
