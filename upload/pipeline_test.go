package upload

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/api"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

func testCtx(t *testing.T) context.Context {
	return zapctx.WithLogger(t.Context(), zap.NewNop())
}

type fakeService struct {
	mu      sync.Mutex
	images  []string
	videos  []string
	ctxErrs []error
	err     error
	block   chan struct{}
}

func (f *fakeService) UploadImage(ctx context.Context, sess api.Session, filename string, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return f.err
	}
	f.images = append(f.images, filename)
	return nil
}

func (f *fakeService) UploadVideo(ctx context.Context, sess api.Session, filename string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return f.err
	}
	f.videos = append(f.videos, filename)
	return nil
}

func (f *fakeService) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images), len(f.videos)
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

var filenameRe = regexp.MustCompile(`^u1-\d+-[0-9a-f]{8}\.(jpg|mjpeg)$`)

func TestImageFilenameFormat(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, api.Session{UserID: "u1", TimesheetID: "ts-1"})

	p.Image(testCtx(t), []byte("png"))
	waitFor(t, func() bool { i, _ := svc.counts(); return i == 1 })

	svc.mu.Lock()
	name := svc.images[0]
	svc.mu.Unlock()
	if !filenameRe.MatchString(name) {
		t.Errorf("unexpected image filename %q", name)
	}
}

func TestVideoFilenameFormat(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, api.Session{UserID: "u1", TimesheetID: "ts-1"})

	p.Video(testCtx(t), []byte("clip"))
	waitFor(t, func() bool { _, v := svc.counts(); return v == 1 })

	svc.mu.Lock()
	name := svc.videos[0]
	svc.mu.Unlock()
	if !filenameRe.MatchString(name) {
		t.Errorf("unexpected video filename %q", name)
	}
}

func TestFilenamesAreUnique(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, api.Session{UserID: "u1"})
	ctx := testCtx(t)

	for i := 0; i < 20; i++ {
		p.Image(ctx, []byte("x"))
	}
	waitFor(t, func() bool { i, _ := svc.counts(); return i == 20 })

	svc.mu.Lock()
	defer svc.mu.Unlock()
	seen := make(map[string]bool)
	for _, name := range svc.images {
		if seen[name] {
			t.Fatalf("duplicate filename %q", name)
		}
		seen[name] = true
	}
}

func TestSubmitDoesNotBlockCaller(t *testing.T) {
	svc := &fakeService{block: make(chan struct{})}
	p := NewPipeline(svc, api.Session{UserID: "u1"})

	done := make(chan struct{})
	go func() {
		p.Image(testCtx(t), []byte("x"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Image blocked the caller while the upload was in flight")
	}
	close(svc.block)
}

func TestSubmissionSurvivesCancelledCaller(t *testing.T) {
	svc := &fakeService{}
	p := NewPipeline(svc, api.Session{UserID: "u1", TimesheetID: "ts-1"})

	// The caller's context is already cancelled, as it is when a
	// session stops right after a capture tick.
	ctx, cancel := context.WithCancel(testCtx(t))
	cancel()

	p.Image(ctx, []byte("x"))
	p.Video(ctx, []byte("clip"))
	waitFor(t, func() bool { i, v := svc.counts(); return i == 1 && v == 1 })

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, err := range svc.ctxErrs {
		if err != nil {
			t.Errorf("submission ran on a cancelled context: %v", err)
		}
	}
}

func TestUploadFailureIsDropped(t *testing.T) {
	svc := &fakeService{err: errors.New("server down")}
	p := NewPipeline(svc, api.Session{UserID: "u1"})

	p.Image(testCtx(t), []byte("x"))
	time.Sleep(20 * time.Millisecond)

	i, v := svc.counts()
	if i != 0 || v != 0 {
		t.Errorf("expected failed upload to be dropped, got %d/%d", i, v)
	}
}
