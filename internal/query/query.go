// Package query turns sanitized topics into child-safe search queries
// and fully encoded search links.
package query

import (
	"net/url"
	"strings"
)

// Kind selects the target search surface for a link.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Fixed queries used when there is no usable topic at all.
const (
	defaultImageQuery = "kid friendly images for kids"
	defaultVideoQuery = "fun educational videos for kids"
)

// kidMarkers are the phrases that flag a query as child-directed.
// Video queries land on regular YouTube (not YouTube Kids), so every
// outbound query must carry one of these.
var kidMarkers = []string{"kid friendly", "for kids"}

// Search endpoint templates. The image search requests provider-side
// safe filtering on top of the query text.
const (
	googleImagesEndpoint = "https://www.google.com/search"
	youtubeEndpoint      = "https://www.youtube.com/results"
)

// HasKidMarker reports whether the query already carries a
// child-directed marker (case-insensitive).
func HasKidMarker(q string) bool {
	lower := strings.ToLower(q)
	for _, m := range kidMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// EnsureKidFriendlyImage forces an image query to carry a kid marker,
// prefixing "kid friendly" when absent. Empty input yields the fixed
// default image query.
func EnsureKidFriendlyImage(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return defaultImageQuery
	}
	if !HasKidMarker(q) {
		q = "kid friendly " + q
	}
	return q
}

// EnsureKidFriendlyVideo forces a video query to carry a kid marker,
// suffixing "for kids" when absent. Empty input yields the fixed
// default video query.
func EnsureKidFriendlyVideo(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return defaultVideoQuery
	}
	if !HasKidMarker(q) {
		q = q + " for kids"
	}
	return q
}

// BuildQueries synthesizes the image and video search queries for a
// sanitized topic. The image query leans on illustration framing, the
// video query on video framing, and both are guaranteed to carry a
// kid marker.
func BuildQueries(safeTopic string) (imageQuery, videoQuery string) {
	t := strings.TrimSpace(safeTopic)
	if t == "" {
		return defaultImageQuery, defaultVideoQuery
	}
	imageQuery = EnsureKidFriendlyImage(t + " illustration")
	videoQuery = EnsureKidFriendlyVideo(t + " videos")
	return imageQuery, videoQuery
}

// BuildLink turns a query into a fully percent-encoded search URL for
// the given kind. Image links request Google's safe-search filter;
// video links target the YouTube results page.
func BuildLink(q string, kind Kind) string {
	switch kind {
	case KindVideo:
		params := url.Values{"search_query": {q}}
		return youtubeEndpoint + "?" + params.Encode()
	default:
		params := url.Values{
			"tbm":  {"isch"},
			"q":    {q},
			"safe": {"active"},
		}
		return googleImagesEndpoint + "?" + params.Encode()
	}
}
