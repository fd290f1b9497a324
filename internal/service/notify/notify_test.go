package notify

import (
	"encoding/json"
	"testing"

	"itemcam/internal/camera"
	"itemcam/internal/logger"
)

type recordingBroadcaster struct {
	messages [][]byte
}

func (r *recordingBroadcaster) Broadcast(message []byte) {
	r.messages = append(r.messages, message)
}

type recordingPublisher struct {
	events []Event
}

func (r *recordingPublisher) Publish(ev Event) {
	r.events = append(r.events, ev)
}

func TestHubPublisher_EncodesEvent(t *testing.T) {
	hub := &recordingBroadcaster{}
	NewHubPublisher(hub).Publish(Event{Type: TypeCapture, CaptureID: "c1", Result: "Coffee Mug (93.0%)"})

	if len(hub.messages) != 1 {
		t.Fatalf("Expected one message, got %d", len(hub.messages))
	}

	var got map[string]interface{}
	if err := json.Unmarshal(hub.messages[0], &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got["type"] != "capture" || got["captureId"] != "c1" || got["result"] != "Coffee Mug (93.0%)" {
		t.Errorf("Unexpected payload %v", got)
	}
	if _, ok := got["error"]; ok {
		t.Error("Expected empty error to be omitted")
	}
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	Multi{a, nil, b}.Publish(Event{Type: TypeRecord})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("Expected both publishers to receive the event, got %d and %d", len(a.events), len(b.events))
	}
}

func TestSessionWatcher(t *testing.T) {
	rec := &recordingPublisher{}
	SessionWatcher(rec)(camera.Status{Active: true, Error: "camera permission denied"})

	if len(rec.events) != 1 || rec.events[0].Type != TypeSession || rec.events[0].Session.Error != "camera permission denied" {
		t.Errorf("Unexpected events %+v", rec.events)
	}
}

func TestMQTTPublisher_NotConnectedCountsError(t *testing.T) {
	p := NewMQTTPublisher("127.0.0.1:1883", "itemcam-test", "itemcam", logger.NewDiscard())
	p.Publish(Event{Type: TypeCapture})

	stats := p.Stats()
	if stats.Published != 0 || stats.Errors != 1 {
		t.Errorf("Expected one error and no publishes, got %d/%d", stats.Published, stats.Errors)
	}
	if stats.Connected || stats.Broker != "127.0.0.1:1883" {
		t.Errorf("Unexpected broker state %+v", stats)
	}
}
