// Package safety rewrites topics into child-safe form before they are
// turned into search queries. The filter is a literal substring
// denylist behind a small interface, so a real moderation service can
// replace it without touching the resolver.
package safety

import "strings"

// FallbackTopic is returned when sanitizing leaves nothing usable.
const FallbackTopic = "science facts for kids"

// Classifier reports which blocked terms appear in a piece of text.
// Terms may be multi-word phrases ("crime scene").
type Classifier interface {
	Classify(text string) []string
}

// DefaultBlockedTerms is the built-in denylist. Matching is by
// lower-cased substring, so "bloody" is caught by "blood".
var DefaultBlockedTerms = []string{
	"blood",
	"gore",
	"gory",
	"surgery",
	"open heart",
	"corpse",
	"crime scene",
	"murder",
	"weapon",
	"dead",
	"kill",
	"knife",
	"gun",
	"drug",
	"naked",
	"violent",
	"graphic",
}

// Denylist is the literal substring Classifier.
type Denylist struct {
	terms []string
}

// NewDenylist builds a Denylist from the default terms plus any
// deployment-specific extras. Terms are stored lower-cased.
func NewDenylist(extra ...string) *Denylist {
	terms := make([]string, 0, len(DefaultBlockedTerms)+len(extra))
	for _, t := range DefaultBlockedTerms {
		terms = append(terms, strings.ToLower(t))
	}
	for _, t := range extra {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Denylist{terms: terms}
}

// Classify returns every denylisted term contained in the lower-cased
// text. An empty result means the text is clean.
func (d *Denylist) Classify(text string) []string {
	t := strings.ToLower(text)
	var found []string
	for _, term := range d.terms {
		if strings.Contains(t, term) {
			found = append(found, term)
		}
	}
	return found
}

// Sanitizer drops blocked tokens from topics.
type Sanitizer struct {
	classifier Classifier
	fallback   string
}

// NewSanitizer creates a Sanitizer. A nil classifier gets the default
// denylist.
func NewSanitizer(c Classifier) *Sanitizer {
	if c == nil {
		c = NewDenylist()
	}
	return &Sanitizer{classifier: c, fallback: FallbackTopic}
}

// Sanitize removes denylisted content from a topic. Tokens containing
// a blocked term are dropped; multi-word blocked phrases drop every
// token in the matching span. Surviving tokens keep their order and
// are rejoined with single spaces. An empty result (or empty input)
// yields [FallbackTopic]. The operation is a fixpoint: sanitizing an
// already-sanitized topic returns it unchanged.
func (s *Sanitizer) Sanitize(topic string) string {
	cur := strings.Join(strings.Fields(topic), " ")
	for {
		next := s.sanitizeOnce(cur)
		if next == cur || next == s.fallback {
			return next
		}
		// Dropping a token can bring the halves of a blocked phrase
		// together ("crime blood scene" -> "crime scene"), so run
		// again until stable.
		cur = next
	}
}

func (s *Sanitizer) sanitizeOnce(topic string) string {
	tokens := strings.Fields(topic)
	if len(tokens) == 0 {
		return s.fallback
	}

	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}

	blocked := make([]bool, len(tokens))
	for _, term := range s.classifier.Classify(strings.Join(lowered, " ")) {
		words := strings.Fields(term)
		switch len(words) {
		case 0:
			continue
		case 1:
			for i, lt := range lowered {
				if strings.Contains(lt, words[0]) {
					blocked[i] = true
				}
			}
		default:
			for i := 0; i+len(words) <= len(lowered); i++ {
				if spanMatches(lowered[i:i+len(words)], words) {
					for j := i; j < i+len(words); j++ {
						blocked[j] = true
					}
				}
			}
		}
	}

	kept := tokens[:0]
	for i, tok := range tokens {
		if !blocked[i] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return s.fallback
	}
	return strings.Join(kept, " ")
}

// spanMatches reports whether each word of a blocked phrase appears in
// the corresponding token of the span.
func spanMatches(span, words []string) bool {
	for k, w := range words {
		if !strings.Contains(span[k], w) {
			return false
		}
	}
	return true
}
