//go:build !windows
// +build !windows

package power

// NewLockWatcher returns a LockWatcher for the current platform. The
// stub never reports a lock.
func NewLockWatcher() LockWatcher {
	return newPollLockWatcher(func() bool { return false })
}
