package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/activity"
	"github.com/viraj-sanghani/Tracker-Updater/api"
	"github.com/viraj-sanghani/Tracker-Updater/bridge"
	"github.com/viraj-sanghani/Tracker-Updater/capture"
	"github.com/viraj-sanghani/Tracker-Updater/config"
	"github.com/viraj-sanghani/Tracker-Updater/connectivity"
	"github.com/viraj-sanghani/Tracker-Updater/controller"
	"github.com/viraj-sanghani/Tracker-Updater/httpclient"
	"github.com/viraj-sanghani/Tracker-Updater/input"
	"github.com/viraj-sanghani/Tracker-Updater/notify"
	"github.com/viraj-sanghani/Tracker-Updater/power"
	"github.com/viraj-sanghani/Tracker-Updater/singleinstance"
	"github.com/viraj-sanghani/Tracker-Updater/upload"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to config file")
	version    = "1.0.0"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zapctx.Build(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(zapctx.WithLogger(context.Background(), logger))
	defer cancel()

	zapctx.Info(ctx, "tracker agent starting",
		zap.String("version", version),
		zap.String("server", cfg.Agent.Server.URL))

	lock, err := singleinstance.Acquire(lockPath())
	if err != nil {
		if errors.Is(err, singleinstance.ErrAlreadyRunning) {
			zapctx.Warn(ctx, "another agent instance is running, exiting")
			return
		}
		zapctx.Error(ctx, "failed to acquire instance lock", zap.Error(err))
		os.Exit(1)
	}
	defer lock.Release()

	httpc := httpclient.NewClient(httpclient.Config{
		ServerURL:      cfg.Agent.Server.URL,
		TimeoutSeconds: cfg.Agent.Server.TimeoutSeconds,
	})
	apiClient := api.NewClient(httpc)

	source := capture.NewScreenSource(cfg.Capture.Quality)
	capSched := capture.NewScheduler(capture.Config{
		ScreenshotInterval: seconds(cfg.Capture.ScreenshotIntervalSeconds),
		VideoInterval:      seconds(cfg.Capture.VideoIntervalSeconds),
		ClipDuration:       seconds(cfg.Capture.VideoClipSeconds),
		HeartbeatInterval:  seconds(cfg.Capture.HeartbeatIntervalSeconds),
	}, source)

	tracker := activity.NewTracker(seconds(cfg.Activity.PollIntervalSeconds))
	inputs := input.NewMonitor()

	relay := &intentRelay{}
	srv := bridge.NewServer(relay)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Notifications.Disabled {
		notifier = notify.Discard{}
	}

	quit := make(chan struct{})
	ctrl := controller.New(controller.Config{
		HomeURL:          cfg.Home.HomeURL(),
		OfflineURL:       cfg.Home.OfflineURL,
		ReminderInterval: seconds(cfg.Reminder.IntervalSeconds),
	}, controller.Deps{
		View:       srv,
		Tray:       srv,
		Notifier:   notifier,
		Blocker:    sleepBlocker{power.NewBlocker()},
		Relauncher: &processRelauncher{lock: lock, quit: quit},
		Capture:    &captureRunner{sched: capSched, api: apiClient},
		Activity:   &activityRunner{tracker: tracker, api: apiClient, inputs: inputs},
		Screen:     source,
	})
	relay.ctrl = ctrl

	if err := srv.Start(ctx, cfg.Agent.Bridge.ListenAddr); err != nil {
		zapctx.Error(ctx, "failed to start bridge", zap.Error(err))
		os.Exit(1)
	}

	conn := connectivity.NewMonitor(connectivity.Config{
		Interval: cfg.Connectivity.Interval(),
		Timeout:  cfg.Connectivity.Timeout(),
		Retries:  cfg.Connectivity.Retries,
		ProbeURL: cfg.Connectivity.ProbeURL,
	}, func(online bool) {
		ctrl.OnConnectivityChange(ctx, online)
	})
	conn.Start(ctx)

	locks := power.NewLockWatcher()
	if err := locks.Start(ctx, ctrl.OnLockScreen); err != nil {
		zapctx.Warn(ctx, "lock watcher unavailable", zap.Error(err))
	}

	zapctx.Info(ctx, "agent is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		zapctx.Info(ctx, "received signal", zap.String("signal", sig.String()))
	case <-quit:
		zapctx.Info(ctx, "relaunch requested, handing over")
	}

	zapctx.Info(ctx, "shutting down")
	locks.Stop()
	conn.Stop()
	ctrl.Shutdown(ctx)
	inputs.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)

	zapctx.Info(ctx, "agent stopped")
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func lockPath() string {
	return filepath.Join(os.TempDir(), "tracker-agent.lock")
}

// intentRelay forwards the bridge's inbound commands to the controller.
// The bridge and the controller reference each other, so the relay
// breaks the construction cycle; ctrl is set before the bridge starts.
type intentRelay struct {
	ctrl *controller.Controller
}

func (r *intentRelay) SetMonitoring(ctx context.Context, running bool) {
	r.ctrl.SetMonitoring(ctx, running)
}

func (r *intentRelay) SetLogin(ctx context.Context, userID, token string) {
	r.ctrl.SetLogin(ctx, userID, token)
}

func (r *intentRelay) SetTimesheet(ctx context.Context, timesheetID string) {
	r.ctrl.SetTimesheet(ctx, timesheetID)
}

// captureRunner binds the capture cadences to a session: artifacts go
// through a session-scoped upload pipeline and heartbeats carry the
// session's token.
type captureRunner struct {
	sched *capture.Scheduler
	api   *api.Client
}

func (r *captureRunner) Start(ctx context.Context, sess api.Session) {
	sessAPI := r.api.ForSession(sess)
	pipe := upload.NewPipeline(sessAPI, sess)
	r.sched.Start(ctx, pipe, sessAPI)
}

func (r *captureRunner) Stop(ctx context.Context) {
	r.sched.Stop(ctx)
}

// activityRunner wires the input monitor into the activity tracker for
// the duration of a session.
type activityRunner struct {
	tracker *activity.Tracker
	api     *api.Client
	inputs  input.Monitor
}

func (r *activityRunner) Start(ctx context.Context, sess api.Session) {
	r.tracker.Start(ctx, r.api.ForSession(sess), sess.TimesheetID)
	if err := r.inputs.Start(ctx, r.tracker.OnInputEvent); err != nil {
		zapctx.Warn(ctx, "input monitor unavailable", zap.Error(err))
	}
}

func (r *activityRunner) Stop(ctx context.Context) {
	r.inputs.Stop()
	r.tracker.Stop(ctx)
}

type sleepBlocker struct {
	b power.Blocker
}

func (s sleepBlocker) Start(ctx context.Context) error {
	s.b.Start(ctx)
	return nil
}

// processRelauncher spawns a fresh agent process and asks the current
// one to exit. The instance lock is released first so the successor
// can claim it.
type processRelauncher struct {
	lock *singleinstance.Lock
	quit chan struct{}
	once sync.Once
}

func (r *processRelauncher) Relaunch(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	r.lock.Release()
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn successor: %w", err)
	}

	zapctx.Info(ctx, "successor process started", zap.Int("pid", cmd.Process.Pid))
	r.once.Do(func() { close(r.quit) })
	return nil
}
