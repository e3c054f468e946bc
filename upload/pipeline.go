// Package upload submits captured artifacts to the collection service.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/api"
	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const (
	imageExt = ".jpg"
	videoExt = ".mjpeg"
)

// Service submits artifact blobs. Satisfied by api.Client.
type Service interface {
	UploadImage(ctx context.Context, sess api.Session, filename string, data []byte) error
	UploadVideo(ctx context.Context, sess api.Session, filename string, data []byte) error
}

// Pipeline packages artifacts with session metadata and submits them
// asynchronously. Callers never wait on a submission; failures are
// logged and the artifact is dropped. There is deliberately no retry
// queue: losing an occasional screenshot beats blocking the capture
// cadence.
type Pipeline struct {
	svc  Service
	sess api.Session
}

// NewPipeline binds the pipeline to one session snapshot. A new login
// or timesheet produces a new pipeline.
func NewPipeline(svc Service, sess api.Session) *Pipeline {
	return &Pipeline{svc: svc, sess: sess}
}

// Image enqueues a screenshot blob for submission.
func (p *Pipeline) Image(ctx context.Context, data []byte) {
	filename := p.filename(imageExt)
	// The submission outlives the capture tick that produced the
	// artifact, otherwise stopping a session loses its last uploads.
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := p.svc.UploadImage(ctx, p.sess, filename, data); err != nil {
			zapctx.Warn(ctx, "image upload failed",
				zap.String("filename", filename), zap.Int("bytes", len(data)), zap.Error(err))
			return
		}
		zapctx.Debug(ctx, "image uploaded",
			zap.String("filename", filename), zap.Int("bytes", len(data)))
	}()
}

// Video enqueues a video clip blob for submission.
func (p *Pipeline) Video(ctx context.Context, data []byte) {
	filename := p.filename(videoExt)
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := p.svc.UploadVideo(ctx, p.sess, filename, data); err != nil {
			zapctx.Warn(ctx, "video upload failed",
				zap.String("filename", filename), zap.Int("bytes", len(data)), zap.Error(err))
			return
		}
		zapctx.Debug(ctx, "video uploaded",
			zap.String("filename", filename), zap.Int("bytes", len(data)))
	}()
}

// filename builds {userId}-{timestamp}-{random}.{ext} so concurrent
// uploads from one user never collide.
func (p *Pipeline) filename(ext string) string {
	random := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%d-%s%s", p.sess.UserID, time.Now().UnixMilli(), random, ext)
}
