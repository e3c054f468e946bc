// Package capture drives the periodic screenshot, video clip and
// heartbeat actions while monitoring is running.
package capture

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/schedule"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

// Task names owned by the capture scheduler.
const (
	taskScreenshot = "screenshot"
	taskVideo      = "video"
	taskHeartbeat  = "heartbeat"
)

// Stream is an acquired screen-capture stream.
type Stream interface {
	// Snapshot renders the current frame and returns it encoded as JPEG.
	Snapshot(ctx context.Context) ([]byte, error)
	// Record captures a bounded clip of the stream. The recording
	// buffer is not retained between calls.
	Record(ctx context.Context, duration time.Duration) ([]byte, error)
	Close() error
}

// Source acquires screen-capture streams. At most one stream per
// session is live; Scheduler enforces that.
type Source interface {
	Acquire(ctx context.Context) (Stream, error)
	// ScreenSize returns the primary display dimensions in pixels.
	ScreenSize() (width, height int)
}

// Sink receives captured artifacts. Implementations must not block the
// capture cadence; submission is fire-and-forget.
type Sink interface {
	Image(ctx context.Context, data []byte)
	Video(ctx context.Context, data []byte)
}

// Heartbeater submits the authenticated liveness ping.
type Heartbeater interface {
	Heartbeat(ctx context.Context) error
}

type Config struct {
	ScreenshotInterval time.Duration
	VideoInterval      time.Duration
	ClipDuration       time.Duration
	HeartbeatInterval  time.Duration
}

// Scheduler owns the three capture cadences. They start together and
// stop together; stopping cancels all timers synchronously and
// releases the stream.
type Scheduler struct {
	cfg    Config
	source Source
	sched  *schedule.Scheduler

	mu     sync.Mutex
	stream Stream
}

func NewScheduler(cfg Config, source Source) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		source: source,
		sched:  schedule.New(),
	}
}

// Start acquires a fresh stream and arms the cadences. Any prior
// stream is torn down first, so a double start leaves exactly one set
// of timers and one stream. A stream acquisition failure is logged and
// screenshots/video stay silently absent until the next start; the
// heartbeat runs regardless.
func (s *Scheduler) Start(ctx context.Context, sink Sink, hb Heartbeater) {
	s.releaseStream(ctx)

	stream, err := s.source.Acquire(ctx)
	if err != nil {
		zapctx.Error(ctx, "failed to acquire capture stream", zap.Error(err))
	} else {
		s.mu.Lock()
		s.stream = stream
		s.mu.Unlock()

		s.sched.Every(ctx, taskScreenshot, s.cfg.ScreenshotInterval, func(ctx context.Context) {
			s.takeScreenshot(ctx, sink)
		})
		s.sched.Every(ctx, taskVideo, s.cfg.VideoInterval, func(ctx context.Context) {
			s.takeClip(ctx, sink)
		})
	}

	s.sched.Every(ctx, taskHeartbeat, s.cfg.HeartbeatInterval, func(ctx context.Context) {
		if err := hb.Heartbeat(ctx); err != nil {
			zapctx.Warn(ctx, "heartbeat failed", zap.Error(err))
		}
	}, schedule.Immediate())

	zapctx.Info(ctx, "capture started",
		zap.Duration("screenshot", s.cfg.ScreenshotInterval),
		zap.Duration("video", s.cfg.VideoInterval),
		zap.Duration("clip", s.cfg.ClipDuration),
		zap.Duration("heartbeat", s.cfg.HeartbeatInterval))
}

// Stop cancels all cadences and releases the stream. No capture tick
// fires after Stop returns.
func (s *Scheduler) Stop(ctx context.Context) {
	s.sched.CancelAll()
	s.releaseStream(ctx)
	zapctx.Info(ctx, "capture stopped")
}

func (s *Scheduler) releaseStream(ctx context.Context) {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			zapctx.Warn(ctx, "failed to release capture stream", zap.Error(err))
		}
	}
}

func (s *Scheduler) currentStream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// takeScreenshot runs on the screenshot task goroutine; a capture that
// outlasts the cadence period drops the next tick rather than
// overlapping with it.
func (s *Scheduler) takeScreenshot(ctx context.Context, sink Sink) {
	stream := s.currentStream()
	if stream == nil {
		return
	}

	data, err := stream.Snapshot(ctx)
	if err != nil {
		zapctx.Warn(ctx, "screenshot capture failed", zap.Error(err))
		return
	}
	sink.Image(ctx, data)
}

func (s *Scheduler) takeClip(ctx context.Context, sink Sink) {
	stream := s.currentStream()
	if stream == nil {
		return
	}

	data, err := stream.Record(ctx, s.cfg.ClipDuration)
	if err != nil {
		zapctx.Warn(ctx, "video clip capture failed", zap.Error(err))
		return
	}
	sink.Video(ctx, data)
}
