package notify

import (
	"encoding/json"

	"itemcam/internal/camera"
	"itemcam/internal/model"
)

// Event types pushed to viewers and the broker.
const (
	TypeCapture = "capture"
	TypeSession = "session"
	TypeRecord  = "record"
)

// Event is what viewers see: a capture outcome, a session status change or a saved record.
type Event struct {
	Type      string         `json:"type"`
	CaptureID string         `json:"captureId,omitempty"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Cached    bool           `json:"cached,omitempty"`
	Session   *camera.Status `json:"session,omitempty"`
	Record    *model.Record  `json:"record,omitempty"`
}

// Publisher delivers events. Publish must not block the caller for long.
type Publisher interface {
	Publish(ev Event)
}

// Multi fans an event out to every publisher.
type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Broadcaster is the part of the websocket hub the publisher needs.
type Broadcaster interface {
	Broadcast(message []byte)
}

// HubPublisher encodes events as JSON and broadcasts them to viewers.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	p.hub.Broadcast(payload)
}

// SessionWatcher publishes every camera session status change.
func SessionWatcher(p Publisher) func(camera.Status) {
	return func(st camera.Status) {
		p.Publish(Event{Type: TypeSession, Session: &st})
	}
}
