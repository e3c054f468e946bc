//go:build windows
// +build windows

package power

import (
	"golang.org/x/sys/windows"
)

const (
	esContinuous      = 0x80000000
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002

	desktopReadObjects = 0x0001
)

var (
	modKernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modUser32   = windows.NewLazySystemDLL("user32.dll")

	procSetThreadExecutionState = modKernel32.NewProc("SetThreadExecutionState")
	procOpenInputDesktop        = modUser32.NewProc("OpenInputDesktop")
	procCloseDesktop            = modUser32.NewProc("CloseDesktop")
)

func setExecutionState(flags uintptr) {
	procSetThreadExecutionState.Call(flags)
}

// sessionLocked reports whether the interactive desktop is unavailable,
// which is the case on the secure (lock) desktop.
func sessionLocked() bool {
	h, _, _ := procOpenInputDesktop.Call(0, 0, desktopReadObjects)
	if h == 0 {
		return true
	}
	procCloseDesktop.Call(h)
	return false
}
