//go:build windows
// +build windows

package power

import (
	"context"
	"sync"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

// NewBlocker returns a Blocker backed by SetThreadExecutionState.
func NewBlocker() Blocker {
	return &execStateBlocker{}
}

type execStateBlocker struct {
	mu     sync.Mutex
	active bool
}

func (b *execStateBlocker) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return
	}
	setExecutionState(esContinuous | esSystemRequired | esDisplayRequired)
	b.active = true
	zapctx.Info(ctx, "display sleep blocker engaged")
}

func (b *execStateBlocker) Stop(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	setExecutionState(esContinuous)
	b.active = false
	zapctx.Info(ctx, "display sleep blocker released")
}
