// Package api is the typed client for the remote collection service.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/viraj-sanghani/Tracker-Updater/httpclient"
)

// Session identifies the authenticated user and the active timesheet.
// It is immutable; a fresh login produces a new value.
type Session struct {
	UserID      string
	AuthToken   string
	TimesheetID string
}

// Valid reports whether the session carries enough identity to submit
// artifacts and slots against.
func (s Session) Valid() bool {
	return s.UserID != "" && s.TimesheetID != ""
}

// Client wraps the HTTP client with the collection service endpoints.
type Client struct {
	http *httpclient.Client
}

func NewClient(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// ForSession returns a client authenticating with the session's token.
func (c *Client) ForSession(sess Session) *Client {
	return &Client{http: c.http.WithToken(sess.AuthToken)}
}

type startSlotRequest struct {
	TimesheetID string `json:"ts_id"`
}

type startSlotResponse struct {
	ID string `json:"id"`
}

type stopSlotRequest struct {
	SlotID string `json:"ia_slot_id"`
}

// StartInactiveSlot opens an inactivity slot for the timesheet and
// returns the server-assigned slot id.
func (c *Client) StartInactiveSlot(ctx context.Context, timesheetID string) (string, error) {
	var resp startSlotResponse
	err := c.http.PostJSON(ctx, "/timer/inactive/start", startSlotRequest{TimesheetID: timesheetID}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to start inactive slot: %w", err)
	}
	return resp.ID, nil
}

// StopInactiveSlot reports the end of an open inactivity slot.
func (c *Client) StopInactiveSlot(ctx context.Context, slotID string) error {
	err := c.http.PostJSON(ctx, "/timer/inactive/stop", stopSlotRequest{SlotID: slotID}, nil)
	if err != nil {
		return fmt.Errorf("failed to stop inactive slot: %w", err)
	}
	return nil
}

// Heartbeat submits an empty liveness ping.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.http.PostJSON(ctx, "/heartbeat", struct{}{}, nil); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}
	return nil
}

// UploadImage submits a screenshot blob as multipart form data.
func (c *Client) UploadImage(ctx context.Context, sess Session, filename string, data []byte) error {
	return c.uploadFile(ctx, "/upload/img", "img", sess, filename, data)
}

// UploadVideo submits a video clip blob as multipart form data.
func (c *Client) UploadVideo(ctx context.Context, sess Session, filename string, data []byte) error {
	return c.uploadFile(ctx, "/upload/video", "video", sess, filename, data)
}

func (c *Client) uploadFile(ctx context.Context, endpoint, field string, sess Session, filename string, data []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.WriteField("user_id", sess.UserID); err != nil {
		return fmt.Errorf("failed to write user_id field: %w", err)
	}
	if err := w.WriteField("ts_id", sess.TimesheetID); err != nil {
		return fmt.Errorf("failed to write ts_id field: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	if err := c.http.PostMultipart(ctx, endpoint, &buf, w.FormDataContentType()); err != nil {
		return fmt.Errorf("upload to %s failed: %w", endpoint, err)
	}
	return nil
}
