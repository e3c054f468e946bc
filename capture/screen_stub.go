//go:build !windows
// +build !windows

package capture

import (
	"context"
	"fmt"
)

// NewScreenSource returns a Source for the current platform (stub).
func NewScreenSource(quality int) Source {
	return &stubSource{}
}

type stubSource struct{}

func (s *stubSource) Acquire(ctx context.Context) (Stream, error) {
	return nil, fmt.Errorf("screen capture not supported on this platform")
}

func (s *stubSource) ScreenSize() (int, int) {
	return 0, 0
}
