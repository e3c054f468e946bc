package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viraj-sanghani/Tracker-Updater/httpclient"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(httpclient.NewClient(httpclient.Config{ServerURL: srv.URL, AuthToken: "tok"}))
}

func TestStartInactiveSlot(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timer/inactive/start" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "slot-7"})
	}))
	defer srv.Close()

	id, err := newTestClient(srv).StartInactiveSlot(context.Background(), "ts-1")
	if err != nil {
		t.Fatalf("StartInactiveSlot failed: %v", err)
	}
	if id != "slot-7" {
		t.Errorf("expected slot-7, got %s", id)
	}
	if gotBody["ts_id"] != "ts-1" {
		t.Errorf("expected ts_id ts-1, got %v", gotBody)
	}
}

func TestStopInactiveSlot(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timer/inactive/stop" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	if err := newTestClient(srv).StopInactiveSlot(context.Background(), "slot-7"); err != nil {
		t.Fatalf("StopInactiveSlot failed: %v", err)
	}
	if gotBody["ia_slot_id"] != "slot-7" {
		t.Errorf("expected ia_slot_id slot-7, got %v", gotBody)
	}
}

func TestHeartbeatAuthenticated(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	if err := newTestClient(srv).Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("expected bearer auth on heartbeat, got %q", gotAuth)
	}
}

func TestUploadImageMultipartFields(t *testing.T) {
	type upload struct {
		field, filename, userID, tsID string
		size                          int
	}
	var got upload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/img" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm failed: %v", err)
		}
		file, header, err := r.FormFile("img")
		if err != nil {
			t.Fatalf("FormFile failed: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		got = upload{
			field:    "img",
			filename: header.Filename,
			userID:   r.FormValue("user_id"),
			tsID:     r.FormValue("ts_id"),
			size:     len(data),
		}
	}))
	defer srv.Close()

	sess := Session{UserID: "u1", TimesheetID: "ts-1"}
	err := newTestClient(srv).UploadImage(context.Background(), sess, "u1-123.jpg", []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}

	if got.filename != "u1-123.jpg" {
		t.Errorf("expected filename u1-123.jpg, got %s", got.filename)
	}
	if got.userID != "u1" || got.tsID != "ts-1" {
		t.Errorf("expected session metadata, got %+v", got)
	}
	if got.size != 3 {
		t.Errorf("expected 3 bytes, got %d", got.size)
	}
}

func TestUploadVideoPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseMultipartForm(1 << 20)
	}))
	defer srv.Close()

	sess := Session{UserID: "u1", TimesheetID: "ts-1"}
	err := newTestClient(srv).UploadVideo(context.Background(), sess, "u1-456.mjpeg", []byte("clip"))
	if err != nil {
		t.Fatalf("UploadVideo failed: %v", err)
	}
	if gotPath != "/upload/video" {
		t.Errorf("expected /upload/video, got %s", gotPath)
	}
}

func TestSessionValid(t *testing.T) {
	if (Session{}).Valid() {
		t.Error("empty session should be invalid")
	}
	if !(Session{UserID: "u", TimesheetID: "t"}).Valid() {
		t.Error("expected session with user and timesheet to be valid")
	}
}
