package alarm

// countingSemaphore is a counting semaphore supporting post and wait,
// usable across goroutines. It backs the single expiration signal the
// dispatcher blocks on, and also the reactor-ready notification each
// worker Queue blocks on: both are conceptually separate collaborators
// but reduce to the same posted wakeup primitive, so one implementation
// serves both.
//
// On Linux the semaphore is backed by an eventfd in semaphore mode, so a
// post from a signal handler or another process's perspective would be
// safe; on other platforms it falls back to a buffered counter guarded by
// a mutex and condition variable.
type countingSemaphore interface {
	// post increments the semaphore's count and wakes one waiter if any
	// is blocked. Posting is never blocking and never fails.
	post()
	// wait blocks until the count is positive, then decrements it by one.
	wait()
	// close releases any OS resources. Safe to call once.
	close()
}

// newCountingSemaphore constructs the platform-appropriate backend.
func newCountingSemaphore() countingSemaphore {
	return newPlatformSemaphore()
}
