package bridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all channel messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates an agent-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Agent → view message types.
const (
	TypeScreenSize       = "screen.size"
	TypeLockScreen       = "screen.lock"
	TypeConnectionChange = "connection.change"
	TypeMonitoringUpdate = "monitoring.update"
	TypeNavigate         = "view.navigate"
)

// View → agent message types.
const (
	TypeMonitoringSet = "monitoring.set"
	TypeLoginSet      = "login.set"
	TypeTimesheetSet  = "timesheet.set"
)

// Agent → view payloads.

type ScreenSizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type LockScreenPayload struct {
	Locked bool `json:"locked"`
}

type ConnectionChangePayload struct {
	Online bool `json:"online"`
}

type MonitoringUpdatePayload struct {
	Running bool `json:"running"`
}

type NavigatePayload struct {
	URL string `json:"url"`
}

// View → agent payloads.

type MonitoringSetPayload struct {
	Running bool `json:"running"`
}

type LoginSetPayload struct {
	State   string       `json:"state"`
	Profile LoginProfile `json:"profile"`
}

type LoginProfile struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type TimesheetSetPayload struct {
	TimesheetID string `json:"ts_id"`
}

// ParseMessage validates an inbound view message.
func ParseMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	switch msg.Type {
	case TypeMonitoringSet, TypeLoginSet, TypeTimesheetSet:
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}
