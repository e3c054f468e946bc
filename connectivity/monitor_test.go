package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

func testCtx(t *testing.T) context.Context {
	return zapctx.WithLogger(t.Context(), zap.NewNop())
}

// scriptedProbe returns probe results from a fixed sequence, repeating
// the last one when exhausted.
func scriptedProbe(results []error) func(ctx context.Context) error {
	i := 0
	return func(ctx context.Context) error {
		r := results[i]
		if i < len(results)-1 {
			i++
		}
		return r
	}
}

func TestCheckOnceOnline(t *testing.T) {
	m := NewMonitor(Config{Retries: 3}, nil)
	m.probe = func(ctx context.Context) error { return nil }

	if got := m.CheckOnce(testCtx(t)); got != StateOnline {
		t.Errorf("expected online, got %v", got)
	}
}

func TestCheckOnceExhaustedRetriesIsOffline(t *testing.T) {
	attempts := 0
	m := NewMonitor(Config{Retries: 3}, nil)
	m.probe = func(ctx context.Context) error {
		attempts++
		return errors.New("unreachable")
	}

	if got := m.CheckOnce(testCtx(t)); got != StateOffline {
		t.Errorf("expected offline, got %v", got)
	}
	if attempts != 3 {
		t.Errorf("expected 3 probe attempts, got %d", attempts)
	}
}

func TestCheckOnceRecoversWithinRetries(t *testing.T) {
	m := NewMonitor(Config{Retries: 3}, nil)
	m.probe = scriptedProbe([]error{errors.New("flaky"), nil})

	if got := m.CheckOnce(testCtx(t)); got != StateOnline {
		t.Errorf("expected online after retry, got %v", got)
	}
}

func TestEdgeTriggeredCallbacks(t *testing.T) {
	probeErr := errors.New("down")
	// online, online, offline, offline, online: exactly 3 edges
	// (unknown->online, online->offline, offline->online).
	script := []error{nil, nil, probeErr, probeErr, nil}

	var edges []bool
	m := NewMonitor(Config{Interval: 5 * time.Millisecond, Retries: 1}, func(online bool) {
		edges = append(edges, online)
	})
	m.probe = scriptedProbe(script)

	m.Start(testCtx(t))
	time.Sleep(40 * time.Millisecond)
	m.Stop()

	want := []bool{true, false, true}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d (%v)", len(want), len(edges), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d: expected %v, got %v", i, want[i], edges[i])
		}
	}
}

func TestRepeatedOfflineFiresOnce(t *testing.T) {
	count := 0
	m := NewMonitor(Config{Interval: 5 * time.Millisecond, Retries: 1}, func(online bool) {
		count++
	})
	m.probe = func(ctx context.Context) error { return errors.New("down") }

	m.Start(testCtx(t))
	time.Sleep(35 * time.Millisecond)
	m.Stop()

	if count != 1 {
		t.Errorf("expected a single unknown->offline edge, got %d callbacks", count)
	}
	if m.State() != StateOffline {
		t.Errorf("expected offline state, got %v", m.State())
	}
}

func TestNoCallbackAfterStop(t *testing.T) {
	count := 0
	m := NewMonitor(Config{Interval: 5 * time.Millisecond, Retries: 1}, func(online bool) {
		count++
	})
	online := true
	m.probe = func(ctx context.Context) error {
		// Flip on every probe so every tick would be an edge.
		online = !online
		if online {
			return nil
		}
		return errors.New("down")
	}

	m.Start(testCtx(t))
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	after := count

	time.Sleep(20 * time.Millisecond)
	if count != after {
		t.Errorf("callback fired after Stop: %d -> %d", after, count)
	}
}
