//go:build !windows
// +build !windows

package power

import (
	"context"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

// NewBlocker returns a Blocker for the current platform (stub).
func NewBlocker() Blocker {
	return &noopBlocker{}
}

type noopBlocker struct{}

func (b *noopBlocker) Start(ctx context.Context) {
	zapctx.Debug(ctx, "sleep blocker not supported on this platform")
}

func (b *noopBlocker) Stop(ctx context.Context) {}
