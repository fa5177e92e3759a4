package alarm

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// reentrantLock is a mutual-exclusion lock that the owning goroutine may
// re-acquire without deadlocking itself. Alarm.callbackLock needs this: a
// callback running under the lock must be able to call Cancel on its own
// alarm, which itself acquires the same lock to drain any in-flight
// invocation.
//
// The owner is tracked by goroutine ID, obtained by parsing the
// "goroutine N" prefix out of a runtime.Stack dump rather than via a
// heavier g-pointer trick; this package only needs to compare identity,
// once per Lock (one callback invocation or Cancel), so the stack-parse
// cost is acceptable.
type reentrantLock struct {
	mu    sync.Mutex
	owner atomic.Uint64 // 0 means unheld
	depth int           // guarded by mu; only meaningful while owner != 0
}

// Lock acquires the lock. If the calling goroutine already holds it, Lock
// increments the recursion depth and returns immediately.
//
// depth is touched only while the caller is the recorded owner, which is
// true either because this goroutine is re-entering (no other goroutine
// can be between owner.Store and owner clearing) or because it just won
// the underlying mutex and is the sole owner by construction.
func (l *reentrantLock) Lock() {
	id := goroutineID()
	if l.owner.Load() == id {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(id)
	l.depth = 1
}

// Unlock releases one level of recursion. The final Unlock by the owning
// goroutine releases the underlying mutex, which is then safe for another
// goroutine to acquire.
func (l *reentrantLock) Unlock() {
	l.depth--
	if l.depth <= 0 {
		l.depth = 0
		l.owner.Store(0)
		l.mu.Unlock()
	}
}

const goroutinePrefix = "goroutine "

// goroutineID returns the current goroutine's runtime ID, recovered by
// parsing the "goroutine N [running]:" header off a runtime.Stack dump.
// This is a well-known workaround for the runtime not exposing a
// goroutine identifier directly; it underpins callback-lock re-entrancy
// here rather than anything performance sensitive, so the allocation and
// parse cost per Lock call is acceptable.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = bytes.TrimPrefix(buf[:n], []byte(goroutinePrefix))

	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
