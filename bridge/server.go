// Package bridge is the message-passing channel between the agent
// process and the content view.
package bridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/viraj-sanghani/Tracker-Updater/zapctx"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The bridge listens on loopback only.
	},
}

// Intent receives the view's inbound commands. Implemented by the
// session controller.
type Intent interface {
	SetMonitoring(ctx context.Context, running bool)
	SetLogin(ctx context.Context, userID, token string)
	SetTimesheet(ctx context.Context, timesheetID string)
}

// Server is a loopback websocket hub the content view connects to. It
// relays the controller's outbound signals and forwards the view's
// commands to the Intent. It also renders the controller's state
// signal for the tray menu (monitoring.update).
type Server struct {
	intent Intent

	mu      sync.RWMutex
	clients map[string]*client
	last    map[string][]byte

	baseCtx  context.Context
	httpSrv  *http.Server
	listener net.Listener
}

// replayedTypes are re-sent to each newly attached client, in this
// order, so a view that connects after a broadcast still learns the
// current navigation target, screen dimensions and monitoring state.
var replayedTypes = []string{TypeNavigate, TypeScreenSize, TypeMonitoringUpdate}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewServer(intent Intent) *Server {
	return &Server{
		intent:  intent,
		clients: make(map[string]*client),
		last:    make(map[string][]byte),
	}
}

// Handler returns the bridge's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/channel", s.handleChannel)
	return mux
}

// Start listens on addr until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpSrv = &http.Server{Handler: s.Handler()}

	zapctx.Info(ctx, "bridge listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			zapctx.Error(ctx, "bridge server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the bridge down and disconnects all clients.
func (s *Server) Stop(ctx context.Context) {
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			zapctx.Warn(ctx, "bridge shutdown incomplete", zap.Error(err))
		}
	}
	s.dropClients()
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	ctx := s.baseCtx
	if ctx == nil {
		ctx = r.Context()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zapctx.Warn(ctx, "channel upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.mu.Lock()
	s.clients[c.id] = c
	for _, msgType := range replayedTypes {
		if data, ok := s.last[msgType]; ok {
			c.send <- data
		}
	}
	s.mu.Unlock()

	zapctx.Info(ctx, "content view connected", zap.String("client_id", c.id))

	go s.writePump(ctx, c)
	go s.readPump(ctx, c)
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer func() {
		s.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zapctx.Warn(ctx, "channel read error", zap.Error(err))
			}
			return
		}
		s.handleMessage(ctx, raw)
	}
}

func (s *Server) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) handleMessage(ctx context.Context, raw []byte) {
	msg, err := ParseMessage(raw)
	if err != nil {
		zapctx.Warn(ctx, "dropping invalid channel message", zap.Error(err))
		return
	}

	switch msg.Type {
	case TypeMonitoringSet:
		var p MonitoringSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			zapctx.Warn(ctx, "bad monitoring.set payload", zap.Error(err))
			return
		}
		s.intent.SetMonitoring(ctx, p.Running)
	case TypeLoginSet:
		var p LoginSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			zapctx.Warn(ctx, "bad login.set payload", zap.Error(err))
			return
		}
		s.intent.SetLogin(ctx, p.Profile.ID, p.Profile.Token)
	case TypeTimesheetSet:
		var p TimesheetSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			zapctx.Warn(ctx, "bad timesheet.set payload", zap.Error(err))
			return
		}
		s.intent.SetTimesheet(ctx, p.TimesheetID)
	}
}

// broadcast sends a message to all connected views. A client whose
// buffer is full is skipped rather than blocking the caller.
func (s *Server) broadcast(ctx context.Context, msgType string, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		zapctx.Error(ctx, "failed to build channel message", zap.Error(err))
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range replayedTypes {
		if rt == msgType {
			s.last[msgType] = data
			break
		}
	}
	for _, c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) dropClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, c := range clients {
		close(c.send)
		c.conn.Close()
	}
}

// controller.ContentView implementation.

// Navigate re-homes the content view.
func (s *Server) Navigate(ctx context.Context, url string) {
	s.broadcast(ctx, TypeNavigate, NavigatePayload{URL: url})
}

// OpenChannel drops every connected view so each reconnects on a fresh
// channel. Called once per became-online transition.
func (s *Server) OpenChannel(ctx context.Context) {
	zapctx.Info(ctx, "resetting view channel")
	s.dropClients()
}

func (s *Server) SendScreenSize(ctx context.Context, width, height int) {
	s.broadcast(ctx, TypeScreenSize, ScreenSizePayload{Width: width, Height: height})
}

func (s *Server) SendConnectionChange(ctx context.Context, online bool) {
	s.broadcast(ctx, TypeConnectionChange, ConnectionChangePayload{Online: online})
}

func (s *Server) SendLockScreen(ctx context.Context, locked bool) {
	s.broadcast(ctx, TypeLockScreen, LockScreenPayload{Locked: locked})
}

// controller.Tray implementation: the tray menu lives in the view
// layer and renders from monitoring.update.

func (s *Server) SetMonitoring(ctx context.Context, running bool) {
	s.broadcast(ctx, TypeMonitoringUpdate, MonitoringUpdatePayload{Running: running})
}
