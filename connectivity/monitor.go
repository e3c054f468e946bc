// Package connectivity polls network reachability and reports
// edge-triggered online/offline transitions.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

// State is the last observed reachability of the probe target.
type State int

const (
	StateUnknown State = iota
	StateOnline
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Config tunes probe latency tolerance. It has no effect on the
// monitor's logic: any probe failure, retries exhausted, reads as
// offline.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	Retries  int
	ProbeURL string
}

// Monitor polls the probe target on a fixed interval and invokes the
// change callback exactly once per online/offline transition.
type Monitor struct {
	cfg      Config
	probe    func(ctx context.Context) error
	onChange func(online bool)

	mu    sync.RWMutex
	state State

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor that reports transitions to onChange.
// The callback runs on the monitor's polling goroutine, in probe order.
func NewMonitor(cfg Config, onChange func(online bool)) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}

	m := &Monitor{
		cfg:      cfg,
		onChange: onChange,
		state:    StateUnknown,
		stopChan: make(chan struct{}),
	}
	m.probe = m.httpProbe
	return m
}

// CheckOnce probes reachability once, with the configured retries, and
// returns the resulting state without mutating the monitor.
func (m *Monitor) CheckOnce(ctx context.Context) State {
	var err error
	for attempt := 0; attempt < m.cfg.Retries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		err = m.probe(probeCtx)
		cancel()
		if err == nil {
			return StateOnline
		}
		if ctx.Err() != nil {
			break
		}
	}
	return StateOffline
}

// Start begins polling until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	zapctx.Info(ctx, "connectivity monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.String("probe", m.cfg.ProbeURL))

	m.wg.Add(1)
	go m.poll(ctx)
}

// Stop halts polling. No change callback fires after Stop returns.
func (m *Monitor) Stop() {
	close(m.stopChan)
	m.wg.Wait()
}

// State returns the last observed state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) poll(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.evaluate(ctx)
		}
	}
}

func (m *Monitor) evaluate(ctx context.Context) {
	next := m.CheckOnce(ctx)

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev == next {
		return
	}

	zapctx.Info(ctx, "connectivity changed",
		zap.Stringer("from", prev), zap.Stringer("to", next))
	if m.onChange != nil {
		m.onChange(next == StateOnline)
	}
}

func (m *Monitor) httpProbe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "HEAD", m.cfg.ProbeURL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
