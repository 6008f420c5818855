package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lumokids/showme/internal/config"
)

func TestTopicHelpers(t *testing.T) {
	p := New(config.MQTTConfig{DeviceName: "kitchen"}, nil)

	if got := p.availabilityTopic(); got != "showme/kitchen/availability" {
		t.Errorf("availabilityTopic = %q", got)
	}
	if got := p.showTopic(); got != "showme/kitchen/events/show" {
		t.Errorf("showTopic = %q", got)
	}
}

func TestShowEventJSON(t *testing.T) {
	ev := ShowEvent{
		RequestID:  "req-1",
		Identifier: "+15550000001",
		Topic:      "whale belly buttons",
		ImageURL:   "https://www.google.com/search?q=whales",
		VideoURL:   "https://www.youtube.com/results?search_query=whales",
		Delivered:  true,
		Timestamp:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["delivered"] != true {
		t.Errorf("delivered = %v", m["delivered"])
	}
}

func TestPublishShow_NotStarted(t *testing.T) {
	p := New(config.MQTTConfig{DeviceName: "kitchen"}, nil)
	// Must not panic before Start.
	p.PublishShow(t.Context(), ShowEvent{RequestID: "req-1"})
	if err := p.Stop(t.Context()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
