//go:build linux

package alarm

import "golang.org/x/sys/unix"

// setDispatcherPriority raises the calling OS thread's scheduling
// priority via setpriority(2). A lower (more negative) value raises
// priority; failure (insufficient privilege, sandboxed environment) is
// returned for the caller to log rather than treated as fatal.
func setDispatcherPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, -5)
}
