// Package controller reconciles connectivity, lock state and user
// intent into the canonical monitoring state.
package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/api"
	"github.com/viraj-sanghani/Tracker-Updater/notify"
	"github.com/viraj-sanghani/Tracker-Updater/schedule"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const reminderTask = "start-reminder"

const reminderBody = "Your timer is stop, don't forget to start"

// MonitoringState is the canonical monitoring state. It changes only
// through controller-initiated intent, never directly from timers.
type MonitoringState int

const (
	Stopped MonitoringState = iota
	Running
)

func (s MonitoringState) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// ContentView is the message surface towards the content view.
type ContentView interface {
	// Navigate re-homes the view to the given page.
	Navigate(ctx context.Context, url string)
	// OpenChannel replaces the bidirectional messaging channel with a
	// fresh one. Called on every became-online transition.
	OpenChannel(ctx context.Context)
	SendScreenSize(ctx context.Context, width, height int)
	SendConnectionChange(ctx context.Context, online bool)
	SendLockScreen(ctx context.Context, locked bool)
}

// Tray renders the Start/Stop affordance for the current state.
type Tray interface {
	SetMonitoring(ctx context.Context, running bool)
}

// PowerSaveBlocker prevents system sleep while the agent is online.
type PowerSaveBlocker interface {
	Start(ctx context.Context) error
}

// Relauncher restarts the agent process. Invoked after screen unlock
// to guarantee a clean capture pipeline.
type Relauncher interface {
	Relaunch(ctx context.Context) error
}

// CaptureRunner starts and stops the capture cadences for a session.
type CaptureRunner interface {
	Start(ctx context.Context, sess api.Session)
	Stop(ctx context.Context)
}

// ActivityRunner starts and stops activity tracking for a session.
type ActivityRunner interface {
	Start(ctx context.Context, sess api.Session)
	Stop(ctx context.Context)
}

// ScreenSizer reports the primary display dimensions.
type ScreenSizer interface {
	ScreenSize() (width, height int)
}

type Config struct {
	HomeURL          string
	OfflineURL       string
	ReminderInterval time.Duration
}

// Deps are the controller's collaborators. All are required.
type Deps struct {
	View       ContentView
	Tray       Tray
	Notifier   notify.Notifier
	Blocker    PowerSaveBlocker
	Relauncher Relauncher
	Capture    CaptureRunner
	Activity   ActivityRunner
	Screen     ScreenSizer
}

// Controller owns the monitoring state machine. Transitions arrive
// concurrently from the connectivity monitor, the bridge, the tray and
// the lock watcher; the mutex serializes them in arrival order.
type Controller struct {
	cfg  Config
	deps Deps

	sched *schedule.Scheduler

	mu         sync.Mutex
	state      MonitoringState
	online     bool
	locked     bool
	wasRunning bool
	first      bool // no connectivity evaluation seen yet
	sess       api.Session
}

func New(cfg Config, deps Deps) *Controller {
	if cfg.ReminderInterval == 0 {
		cfg.ReminderInterval = 10 * time.Second
	}
	return &Controller{
		cfg:   cfg,
		deps:  deps,
		sched: schedule.New(),
		state: Stopped,
		first: true,
	}
}

// State returns the canonical monitoring state.
func (c *Controller) State() MonitoringState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Online reports the controller's view of connectivity.
func (c *Controller) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Session returns the current session snapshot.
func (c *Controller) Session() api.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// SetLogin installs the identity of a fresh login, or clears it on
// logout. The new session takes effect at the next monitoring start.
func (c *Controller) SetLogin(ctx context.Context, userID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.UserID = userID
	c.sess.AuthToken = token
	zapctx.Info(ctx, "login state updated", zap.String("user_id", userID))
}

// SetTimesheet records the active timesheet.
func (c *Controller) SetTimesheet(ctx context.Context, timesheetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.TimesheetID = timesheetID
	zapctx.Info(ctx, "timesheet updated", zap.String("ts_id", timesheetID))
}

// OnConnectivityChange applies a connectivity edge. The first
// evaluation after process start homes the view without notifying.
func (c *Controller) OnConnectivityChange(ctx context.Context, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.first
	c.first = false
	c.online = online

	if online {
		zapctx.Info(ctx, "went online")
		c.deps.View.Navigate(ctx, c.cfg.HomeURL)
		c.deps.View.OpenChannel(ctx)
		w, h := c.deps.Screen.ScreenSize()
		c.deps.View.SendScreenSize(ctx, w, h)
		if err := c.deps.Blocker.Start(ctx); err != nil {
			zapctx.Warn(ctx, "failed to start power save blocker", zap.Error(err))
		}
		if !first {
			c.deps.Notifier.Notify(ctx, notify.Title, "You're online")
		}
	} else {
		zapctx.Info(ctx, "went offline")
		c.deps.View.SendConnectionChange(ctx, false)
		c.deps.View.Navigate(ctx, c.cfg.OfflineURL)
		if !first {
			c.deps.Notifier.Notify(ctx, notify.Title, "You're offline")
		}
		if c.state == Running {
			c.stopLocked(ctx, true)
		}
	}

	c.evaluateReminderLocked(ctx)
}

// SetMonitoring applies explicit start/stop intent. An intent matching
// the current state is a no-op apart from re-evaluating the reminder.
func (c *Controller) SetMonitoring(ctx context.Context, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if (c.state == Running) == running {
		c.evaluateReminderLocked(ctx)
		return
	}

	if running {
		if !c.online || c.locked || !c.sess.Valid() {
			zapctx.Warn(ctx, "ignoring start intent",
				zap.Bool("online", c.online), zap.Bool("locked", c.locked),
				zap.Bool("session_valid", c.sess.Valid()))
			c.evaluateReminderLocked(ctx)
			return
		}
		c.startLocked(ctx)
	} else {
		c.stopLocked(ctx, false)
	}
	c.evaluateReminderLocked(ctx)
}

// OnLockScreen applies a screen lock or unlock. Lock suspends capture
// and input listeners without changing the remembered intent; unlock
// restores them and relaunches the process.
func (c *Controller) OnLockScreen(ctx context.Context, locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked == locked {
		return
	}
	c.locked = locked
	c.deps.View.SendLockScreen(ctx, locked)

	if locked {
		zapctx.Info(ctx, "screen locked", zap.Stringer("remembered", c.state))
		c.wasRunning = c.state == Running
		if c.wasRunning {
			c.deps.Capture.Stop(ctx)
			c.deps.Activity.Stop(ctx)
		}
		c.evaluateReminderLocked(ctx)
		return
	}

	zapctx.Info(ctx, "screen unlocked", zap.Stringer("remembered", c.state))
	if c.wasRunning && c.state == Running {
		c.deps.Capture.Start(ctx, c.sess)
		c.deps.Activity.Start(ctx, c.sess)
	}
	c.evaluateReminderLocked(ctx)

	if err := c.deps.Relauncher.Relaunch(ctx); err != nil {
		zapctx.Error(ctx, "relaunch after unlock failed", zap.Error(err))
	}
}

// Shutdown stops monitoring and cancels the reminder.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		c.stopLocked(ctx, true)
	}
	c.sched.CancelAll()
}

// startLocked transitions Online-Stopped -> Online-Running.
func (c *Controller) startLocked(ctx context.Context) {
	c.state = Running
	zapctx.Info(ctx, "monitoring started", zap.String("user_id", c.sess.UserID))

	c.deps.Capture.Start(ctx, c.sess)
	c.deps.Activity.Start(ctx, c.sess)
	c.deps.Notifier.Notify(ctx, notify.Title, "Timer Started")
	c.deps.Tray.SetMonitoring(ctx, true)
}

// stopLocked transitions Online-Running -> Online-Stopped. A forced
// stop (disconnect, shutdown) is silent; only user intent notifies.
func (c *Controller) stopLocked(ctx context.Context, forced bool) {
	c.state = Stopped
	zapctx.Info(ctx, "monitoring stopped", zap.Bool("forced", forced))

	c.deps.Capture.Stop(ctx)
	c.deps.Activity.Stop(ctx)
	if !forced {
		c.deps.Notifier.Notify(ctx, notify.Title, "Timer Stopped")
	}
	c.deps.Tray.SetMonitoring(ctx, false)
}

// evaluateReminderLocked arms the forgot-to-start reminder while the
// agent is online, unlocked and stopped; otherwise it disarms it.
// Arming replaces any existing reminder, restarting its period.
func (c *Controller) evaluateReminderLocked(ctx context.Context) {
	if c.online && !c.locked && c.state == Stopped {
		notifier := c.deps.Notifier
		c.sched.Every(ctx, reminderTask, c.cfg.ReminderInterval, func(ctx context.Context) {
			notifier.Notify(ctx, notify.Title, reminderBody)
		})
		return
	}
	c.sched.Cancel(reminderTask)
}
