package sendlog

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "sendlog.db"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)

	err := s.Record(&Entry{
		Identifier:  "+15550000001",
		Destination: "+15559998888",
		Backend:     "twilio",
		Topic:       "whale belly buttons",
		ImageURL:    "https://www.google.com/search?q=whales",
		VideoURL:    "https://www.youtube.com/results?search_query=whales",
		Delivered:   true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}

	e := entries[0]
	if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("ID not assigned")
	}
	if e.Topic != "whale belly buttons" {
		t.Errorf("Topic = %q", e.Topic)
	}
	if !e.Delivered {
		t.Error("Delivered not persisted")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestRecordFailure(t *testing.T) {
	s := newTestStore(t)

	err := s.Record(&Entry{
		Identifier: "kid-1",
		Backend:    "twilio",
		Topic:      "volcanoes",
		Delivered:  false,
		Error:      "twilio: HTTP 401: Authenticate",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if entries[0].Delivered {
		t.Error("failed delivery recorded as delivered")
	}
	if entries[0].Error == "" {
		t.Error("error text not persisted")
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, topic := range []string{"whales", "volcanoes", "dinosaurs"} {
		err := s.Record(&Entry{
			Identifier: "kid-1",
			Backend:    "console",
			Topic:      topic,
			Delivered:  true,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Topic != "dinosaurs" || entries[1].Topic != "volcanoes" {
		t.Errorf("order = %q, %q", entries[0].Topic, entries[1].Topic)
	}
}

func TestForIdentifier(t *testing.T) {
	s := newTestStore(t)

	s.Record(&Entry{Identifier: "kid-1", Backend: "console", Topic: "whales", Delivered: true})
	s.Record(&Entry{Identifier: "kid-2", Backend: "console", Topic: "volcanoes", Delivered: true})

	entries, err := s.ForIdentifier("kid-1", 10)
	if err != nil {
		t.Fatalf("ForIdentifier: %v", err)
	}
	if len(entries) != 1 || entries[0].Topic != "whales" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	s.Record(&Entry{Identifier: "kid-1", Backend: "twilio", Topic: "whales", Delivered: true})
	s.Record(&Entry{Identifier: "kid-1", Backend: "twilio", Topic: "whales", Delivered: false, Error: "timeout"})

	stats := s.Stats()
	if stats["total"] != 2 {
		t.Errorf("total = %v", stats["total"])
	}
	if stats["delivered"] != 1 {
		t.Errorf("delivered = %v", stats["delivered"])
	}
	if stats["failed"] != 1 {
		t.Errorf("failed = %v", stats["failed"])
	}
}
