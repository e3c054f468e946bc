package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

func testCtx(t *testing.T) context.Context {
	return zapctx.WithLogger(t.Context(), zap.NewNop())
}

// fakeSlots records slot traffic and tracks how many slots are open.
type fakeSlots struct {
	mu       sync.Mutex
	next     int
	open     map[string]bool
	maxOpen  int
	started  int
	stopped  int
	startErr error
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{open: make(map[string]bool)}
}

func (f *fakeSlots) StartInactiveSlot(ctx context.Context, timesheetID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.next++
	id := fmt.Sprintf("slot-%d", f.next)
	f.open[id] = true
	f.started++
	if len(f.open) > f.maxOpen {
		f.maxOpen = len(f.open)
	}
	return id, nil
}

func (f *fakeSlots) StopInactiveSlot(ctx context.Context, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, slotID)
	f.stopped++
	return nil
}

func (f *fakeSlots) snapshot() (started, stopped, openNow, maxOpen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped, len(f.open), f.maxOpen
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestIdleOpensSlotAfterOneInterval(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(10 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	defer tr.Stop(ctx)

	// No input events: the first poll clears the start-time status
	// flag, the second marks inactive and opens a slot.
	waitFor(t, func() bool { started, _, _, _ := slots.snapshot(); return started == 1 })

	if tr.Active() {
		t.Error("expected user to be inactive")
	}
}

func TestInputClosesSlot(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(10 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	defer tr.Stop(ctx)

	waitFor(t, func() bool { started, _, _, _ := slots.snapshot(); return started == 1 })

	tr.OnInputEvent(ctx)
	waitFor(t, func() bool { _, stopped, openNow, _ := slots.snapshot(); return stopped == 1 && openNow == 0 })

	if !tr.Active() {
		t.Error("expected user to be active after input")
	}
}

func TestContinuousInputNeverOpensSlot(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(10 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	for i := 0; i < 10; i++ {
		tr.OnInputEvent(ctx)
		time.Sleep(5 * time.Millisecond)
	}
	tr.Stop(ctx)

	started, _, _, _ := slots.snapshot()
	if started != 0 {
		t.Errorf("expected no slots for a continuously active user, got %d", started)
	}
}

func TestNeverTwoOpenSlots(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(5 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	// Alternate idle stretches and bursts of input.
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		tr.OnInputEvent(ctx)
	}
	time.Sleep(20 * time.Millisecond)
	tr.Stop(ctx)

	_, _, _, maxOpen := slots.snapshot()
	if maxOpen > 1 {
		t.Errorf("expected at most one open slot at a time, saw %d", maxOpen)
	}
}

func TestSlotOpenErrorIsNonFatal(t *testing.T) {
	slots := newFakeSlots()
	slots.startErr = errors.New("server down")
	tr := NewTracker(5 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	defer tr.Stop(ctx)

	waitFor(t, func() bool { return !tr.Active() })
	// Local state advanced to inactive despite the failed slot open.
	if tr.Active() {
		t.Error("expected inactive state despite slot open failure")
	}
}

func TestRestartClosesLingeringSlot(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(5 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	waitFor(t, func() bool { started, _, _, _ := slots.snapshot(); return started == 1 })
	tr.Stop(ctx)

	// The slot stays open across the stop; restarting counts as input
	// and closes it.
	tr.Start(ctx, slots, "ts-1")
	waitFor(t, func() bool { _, _, openNow, _ := slots.snapshot(); return openNow == 0 })
	tr.Stop(ctx)
}

func TestStopCancelsPolling(t *testing.T) {
	slots := newFakeSlots()
	tr := NewTracker(5 * time.Millisecond)
	ctx := testCtx(t)

	tr.Start(ctx, slots, "ts-1")
	tr.Stop(ctx)

	started, _, _, _ := slots.snapshot()
	time.Sleep(30 * time.Millisecond)
	startedAfter, _, _, _ := slots.snapshot()
	if startedAfter != started {
		t.Errorf("poll kept opening slots after Stop: %d -> %d", started, startedAfter)
	}
}
