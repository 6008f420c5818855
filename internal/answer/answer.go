// Package answer generates spoken replies for children's questions via
// an OpenAI-compatible chat endpoint, and parses the tagged topic and
// query lines out of the raw model output.
package answer

import (
	"context"
	"regexp"
	"strings"
)

// Generator produces the raw tagged model output for a question.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns the raw model text. forcedTopic, when non-empty,
	// tells the model which topic the visuals were explicitly requested
	// for.
	Generate(ctx context.Context, question, forcedTopic string) (string, error)
}

// systemPrompt instructs the model to answer warmly and close with the
// three tag lines the parser expects.
const systemPrompt = `You are Lumo, a friendly kid-safe tutor.

Instructions:
1. Answer the child warmly in a short spoken paragraph.
2. Identify a clear simple TOPIC (like "whale belly buttons").
3. Generate safe, kid-friendly queries for images + videos.
4. Video queries will be searched on normal YouTube (not YouTube Kids) so always include "for kids" or "kid friendly" in the video query text.

Your answer must end with EXACTLY:

[TOPIC: <topic>]
[IMAGE_QUERY: <image search query>]
[VIDEO_QUERY: <video search query>]

Query rules:
- Use simple kid-friendly phrases ("for kids", "kid friendly").
- Avoid scary, violent, graphic terms.`

// Result is the parsed form of one model response.
type Result struct {
	Spoken     string
	Topic      string
	ImageQuery string
	VideoQuery string
}

// Tag patterns are case-insensitive and span newlines inside the
// brackets, since models wrap long queries.
var (
	topicTag = regexp.MustCompile(`(?is)\[TOPIC:(.*?)\]`)
	imageTag = regexp.MustCompile(`(?is)\[IMAGE_QUERY:(.*?)\]`)
	videoTag = regexp.MustCompile(`(?is)\[VIDEO_QUERY:(.*?)\]`)
)

var tagPrefixes = []string{"[TOPIC:", "[IMAGE_QUERY:", "[VIDEO_QUERY:"}

// Parse splits raw model output into the spoken part and the tagged
// fields. Missing tags leave their fields empty; the spoken text is
// everything before the first tag.
func Parse(raw string) Result {
	var r Result

	if m := topicTag.FindStringSubmatch(raw); m != nil {
		r.Topic = strings.TrimSpace(m[1])
	}
	if m := imageTag.FindStringSubmatch(raw); m != nil {
		r.ImageQuery = strings.TrimSpace(m[1])
	}
	if m := videoTag.FindStringSubmatch(raw); m != nil {
		r.VideoQuery = strings.TrimSpace(m[1])
	}

	firstTag := len(raw)
	upper := strings.ToUpper(raw)
	for _, tag := range tagPrefixes {
		if pos := strings.Index(upper, tag); pos != -1 && pos < firstTag {
			firstTag = pos
		}
	}
	r.Spoken = strings.TrimSpace(raw[:firstTag])

	return r
}
