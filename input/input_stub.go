//go:build !windows
// +build !windows

package input

// NewMonitor returns a Monitor for the current platform. The stub
// never observes input.
func NewMonitor() Monitor {
	return newPollMonitor(func() (uint64, error) { return 0, nil })
}
