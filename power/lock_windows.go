//go:build windows
// +build windows

package power

// NewLockWatcher returns a LockWatcher that polls the input desktop.
func NewLockWatcher() LockWatcher {
	return newPollLockWatcher(sessionLocked)
}
