// Package input detects user keyboard and mouse activity.
package input

import (
	"context"
	"sync"
	"time"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const pollInterval = time.Second

// Monitor reports user input activity.
type Monitor interface {
	// Start begins watching for input. The callback fires once per
	// poll interval in which new input was observed.
	Start(ctx context.Context, onInput func(ctx context.Context)) error
	Stop()
}

// pollMonitor compares a last-input marker between polls. A changed
// marker means the user touched the keyboard or mouse.
type pollMonitor struct {
	probe    func() (uint64, error)
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newPollMonitor(probe func() (uint64, error)) *pollMonitor {
	return &pollMonitor{probe: probe, interval: pollInterval}
}

func (m *pollMonitor) Start(ctx context.Context, onInput func(ctx context.Context)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.wg.Add(1)

	go m.loop(ctx, onInput)
	zapctx.Info(ctx, "input monitor started")
	return nil
}

func (m *pollMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *pollMonitor) loop(ctx context.Context, onInput func(ctx context.Context)) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	last, err := m.probe()
	if err != nil {
		last = 0
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			now, err := m.probe()
			if err != nil {
				continue
			}
			if now != last {
				last = now
				onInput(ctx)
			}
		}
	}
}
