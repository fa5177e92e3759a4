//go:build linux

package alarm

import "golang.org/x/sys/unix"

// eventfdSemaphore implements countingSemaphore on Linux using an eventfd
// opened in EFD_SEMAPHORE mode: each post must correspond to exactly one
// posted expiration or one enqueued alarm being drained, so true semaphore
// mode is used rather than plain counting mode. Each write of 1 adds 1 to
// the kernel counter; each read blocks until the counter is non-zero, then
// atomically decrements it by exactly 1 and returns 1 — standard
// POSIX-semaphore semantics, delegated entirely to the kernel.
type eventfdSemaphore struct {
	fd int
}

func newPlatformSemaphore() countingSemaphore {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_SEMAPHORE)
	if err != nil {
		// Fall back to the portable implementation rather than fail
		// service construction outright: initialization failures of
		// supporting primitives degrade to a correct fallback rather
		// than abort.
		return newChanSemaphore()
	}
	return &eventfdSemaphore{fd: fd}
}

func (s *eventfdSemaphore) post() {
	var buf [8]byte
	buf[0] = 1
	_, _ = unix.Write(s.fd, buf[:])
}

func (s *eventfdSemaphore) wait() {
	var buf [8]byte
	for {
		n, err := unix.Read(s.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if n == 8 || err == nil {
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *eventfdSemaphore) close() {
	_ = unix.Close(s.fd)
}
