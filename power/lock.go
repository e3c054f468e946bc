package power

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const lockPollInterval = time.Second

// pollLockWatcher polls a probe for the session lock state and fires
// the callback on transitions.
type pollLockWatcher struct {
	probe    func() bool
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newPollLockWatcher(probe func() bool) *pollLockWatcher {
	return &pollLockWatcher{probe: probe, interval: lockPollInterval}
}

func (w *pollLockWatcher) Start(ctx context.Context, onChange func(ctx context.Context, locked bool)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.wg.Add(1)

	go w.loop(ctx, onChange)
	zapctx.Info(ctx, "session lock watcher started")
	return nil
}

func (w *pollLockWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *pollLockWatcher) loop(ctx context.Context, onChange func(ctx context.Context, locked bool)) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// The session is assumed unlocked when the watcher starts.
	locked := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			now := w.probe()
			if now == locked {
				continue
			}
			locked = now
			zapctx.Info(ctx, "session lock state changed", zap.Bool("locked", locked))
			onChange(ctx, locked)
		}
	}
}
