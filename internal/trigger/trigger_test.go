package trigger

import "testing"

func TestIsShowRequest(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"show me whales", true},
		{"Show us the volcano", true},
		{"can you show me stars?", true},
		{"let me see", true},
		{"let us see it", true},
		{"send me pictures of dogs", true},
		{"what does that look like", true},
		{"SHOW ME!", true},
		// Looser fallback: "show" plus an audience word anywhere.
		{"could you maybe show it to us", true},
		// Known limitation: substring matching false-positives.
		{"I'll show up later, trust me", true},
		{"", false},
		{"why do whales have belly buttons", false},
		{"I like volcanoes", false},
		{"tell me about sharks", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsShowRequest(tt.text); got != tt.want {
				t.Errorf("IsShowRequest(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"show me whale belly buttons!", "whale belly buttons", true},
		{"can you show us stars in iceland?", "stars in iceland", true},
		{"Show me Saturn's rings.", "Saturn's rings", true},
		{"can you show me volcanoes, please", "volcanoes, please", true},
		{"show me", "", false},
		{"show us!", "", false},
		{"I like whales", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractTopic(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTopic(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractTopic(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractTopic_PreservesCasing(t *testing.T) {
	got, ok := ExtractTopic("Can You Show Me the Eiffel Tower")
	if !ok {
		t.Fatal("expected extraction")
	}
	if got != "the Eiffel Tower" {
		t.Errorf("topic = %q, want %q", got, "the Eiffel Tower")
	}
}
