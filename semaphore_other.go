//go:build !linux

package alarm

func newPlatformSemaphore() countingSemaphore {
	return newChanSemaphore()
}
