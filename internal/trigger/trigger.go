// Package trigger classifies utterances as show-requests and extracts
// inline topics. Matching is table-driven so the phrase set can grow
// without touching control flow.
package trigger

import (
	"regexp"
	"strings"
)

// showPatterns is the ordered table of trigger phrases. Patterns match
// against the lower-cased utterance.
var showPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bshow me\b`),
	regexp.MustCompile(`\bshow us\b`),
	regexp.MustCompile(`\bcan you show\b`),
	regexp.MustCompile(`\blet me see\b`),
	regexp.MustCompile(`\blet us see\b`),
	regexp.MustCompile(`\bsend (me|us) pictures\b`),
	regexp.MustCompile(`\bwhat does that look like\b`),
}

// topicPatterns is the ordered extraction table. The more specific
// "can you show" form is tried first so its topic capture does not
// include the leading "can you". Patterns run against the original
// text so the captured topic keeps the speaker's casing.
var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)can you show (?:me|us)\s+(.+)`),
	regexp.MustCompile(`(?i)\bshow (?:me|us)\s+(.+)`),
}

// topicCutset is trimmed from both ends of an extracted topic.
const topicCutset = " ?.!,"

// IsShowRequest reports whether the utterance asks to see something.
// Matching is phrase-based, so unrelated text containing a trigger
// substring ("I'll show up later, trust me") can false-positive. That
// mirrors how kids actually talk to the assistant and errs toward
// offering visuals.
func IsShowRequest(text string) bool {
	if text == "" {
		return false
	}
	t := strings.ToLower(text)

	for _, p := range showPatterns {
		if p.MatchString(t) {
			return true
		}
	}

	// Looser fallback: "show" plus an audience word anywhere.
	if strings.Contains(t, "show") && (strings.Contains(t, "me") || strings.Contains(t, "us")) {
		return true
	}

	return false
}

// ExtractTopic pulls an inline topic out of utterances like
// "show me stars in iceland" or "can you show us whale belly buttons".
// Trailing punctuation and whitespace are trimmed. Returns ("", false)
// when the utterance carries no inline topic, e.g. a bare "show me!".
func ExtractTopic(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	for _, p := range topicPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		topic := strings.Trim(m[1], topicCutset)
		if topic == "" {
			return "", false
		}
		return topic, true
	}

	return "", false
}
