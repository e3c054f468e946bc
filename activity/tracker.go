// Package activity tracks user input activity and reports inactivity
// slots to the collection service.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/schedule"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const pollTask = "activity-poll"

// SlotService opens and closes inactivity slots on the remote service.
type SlotService interface {
	StartInactiveSlot(ctx context.Context, timesheetID string) (string, error)
	StopInactiveSlot(ctx context.Context, slotID string) error
}

// Tracker debounces raw input events into active/inactive state with
// one poll interval of latency. It guarantees at most one open
// inactivity slot at a time; slot open/close failures are logged and
// local state still advances.
type Tracker struct {
	interval time.Duration
	sched    *schedule.Scheduler

	mu          sync.Mutex
	running     bool
	userStatus  bool // input seen since the last poll
	userActive  bool
	slotID      string // open inactivity slot, empty if none
	timesheetID string
	svc         SlotService
}

func NewTracker(interval time.Duration) *Tracker {
	return &Tracker{
		interval: interval,
		sched:    schedule.New(),
	}
}

// Start begins activity polling against the given timesheet. Starting
// counts as an input event, so a slot left open by a previous stop is
// closed immediately.
func (t *Tracker) Start(ctx context.Context, svc SlotService, timesheetID string) {
	t.mu.Lock()
	t.running = true
	t.svc = svc
	t.timesheetID = timesheetID
	t.mu.Unlock()

	zapctx.Info(ctx, "activity tracker started",
		zap.Duration("interval", t.interval), zap.String("ts_id", timesheetID))

	t.OnInputEvent(ctx)
	t.sched.Every(ctx, pollTask, t.interval, t.poll)
}

// Stop cancels the poll timer synchronously. A slot that is open stays
// open; the next Start closes it.
func (t *Tracker) Stop(ctx context.Context) {
	t.sched.Cancel(pollTask)

	t.mu.Lock()
	t.running = false
	t.userActive = false
	t.userStatus = false
	t.mu.Unlock()

	zapctx.Info(ctx, "activity tracker stopped")
}

// OnInputEvent records one detected key release or mouse click. The
// first event after an inactive stretch closes the open slot.
func (t *Tracker) OnInputEvent(ctx context.Context) {
	t.mu.Lock()
	t.userStatus = true
	wasInactive := !t.userActive
	t.userActive = true
	slotID := ""
	if wasInactive && t.slotID != "" {
		slotID = t.slotID
		t.slotID = ""
	}
	svc := t.svc
	t.mu.Unlock()

	if slotID != "" && svc != nil {
		go t.closeSlot(ctx, svc, slotID)
	}
}

// Active reports whether the user is currently considered active.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userActive
}

func (t *Tracker) poll(ctx context.Context) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	if t.userStatus {
		t.userStatus = false
		t.mu.Unlock()
		return
	}
	if !t.userActive {
		// Already inactive, slot already open.
		t.mu.Unlock()
		return
	}
	t.userActive = false
	svc := t.svc
	tsID := t.timesheetID
	t.mu.Unlock()

	go t.openSlot(ctx, svc, tsID)
}

func (t *Tracker) openSlot(ctx context.Context, svc SlotService, timesheetID string) {
	id, err := svc.StartInactiveSlot(ctx, timesheetID)
	if err != nil {
		zapctx.Warn(ctx, "failed to open inactivity slot", zap.Error(err))
		return
	}

	t.mu.Lock()
	if !t.running || t.userActive {
		// The user came back (or monitoring stopped) while the open
		// request was in flight.
		t.mu.Unlock()
		go t.closeSlot(ctx, svc, id)
		return
	}
	t.slotID = id
	t.mu.Unlock()

	zapctx.Info(ctx, "inactivity slot opened", zap.String("slot_id", id))
}

func (t *Tracker) closeSlot(ctx context.Context, svc SlotService, slotID string) {
	if err := svc.StopInactiveSlot(ctx, slotID); err != nil {
		zapctx.Warn(ctx, "failed to close inactivity slot",
			zap.String("slot_id", slotID), zap.Error(err))
		return
	}
	zapctx.Info(ctx, "inactivity slot closed", zap.String("slot_id", slotID))
}
