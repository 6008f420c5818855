// Package resolver turns a child's utterance into a spoken reply and,
// for show requests, a pair of kid-safe search links delivered to a
// grown-up. It orchestrates the trigger, safety, query, session, and
// delivery packages; every path returns a well-formed Response and no
// collaborator failure escapes to the caller.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumokids/showme/internal/answer"
	"github.com/lumokids/showme/internal/mqtt"
	"github.com/lumokids/showme/internal/query"
	"github.com/lumokids/showme/internal/safety"
	"github.com/lumokids/showme/internal/sendlog"
	"github.com/lumokids/showme/internal/session"
	"github.com/lumokids/showme/internal/sms"
	"github.com/lumokids/showme/internal/trigger"
)

// Spoken lines read back by the voice agent.
const (
	spokenHint     = "If you'd like pictures or videos, just say 'show us'!"
	spokenConfirm  = "Sure! I found kid-friendly pictures and videos about %s. I sent them to your grown-up!"
	spokenClarify  = "What would you like to see? Just say 'show me' and a topic!"
	spokenThinking = "I'm having a little trouble thinking right now."
)

// fallbackSessionTopic stands in when a show request arrives with no
// explicit topic and no session memory.
const fallbackSessionTopic = "what we were talking about"

const deliveryTimeout = 10 * time.Second

// anonymousIdentifier keys sessions for requests that carry no
// identifier.
const anonymousIdentifier = "anonymous"

// Options tunes resolver behavior. The zero value disables everything;
// use DefaultOptions for the standard configuration.
type Options struct {
	// ExtractInline enables pulling an explicit topic out of the
	// utterance ("show me whales") instead of only using session memory.
	ExtractInline bool

	// CacheQueries reuses the session's stored image/video queries for
	// implicit requests instead of re-synthesizing them from the topic.
	CacheQueries bool
}

// DefaultOptions returns the standard resolver configuration.
func DefaultOptions() Options {
	return Options{ExtractInline: true, CacheQueries: true}
}

// Request is one utterance to resolve.
type Request struct {
	Identifier string // session key; phone number or user id
	Text       string // what the child said
	DeliverTo  string // grown-up's phone number; empty skips delivery
}

// Response is the resolver's answer for a show request.
type Response struct {
	RequestID  string `json:"request_id"`
	Spoken     string `json:"spoken"`
	Topic      string `json:"topic,omitempty"`
	ImageQuery string `json:"image_query,omitempty"`
	VideoQuery string `json:"video_query,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	VideoURL   string `json:"video_url,omitempty"`
	Delivered  bool   `json:"delivered"`
}

// AnswerResponse is the resolver's answer for a generative question.
type AnswerResponse struct {
	RequestID  string `json:"request_id"`
	Spoken     string `json:"spoken"`
	Topic      string `json:"topic,omitempty"`
	ImageQuery string `json:"image_query,omitempty"`
	VideoQuery string `json:"video_query,omitempty"`
}

// Resolver wires the core packages together. Audit, events, and the
// generator are optional; a nil value disables that collaborator.
type Resolver struct {
	opts      Options
	store     session.Store
	sender    sms.Sender
	sanitizer *safety.Sanitizer
	generator answer.Generator
	audit     *sendlog.Store
	events    *mqtt.Publisher
	logger    *slog.Logger
}

// New creates a Resolver. store and sender are required; sanitizer
// defaults to the standard denylist when nil.
func New(opts Options, store session.Store, sender sms.Sender, sanitizer *safety.Sanitizer, logger *slog.Logger) *Resolver {
	if sanitizer == nil {
		sanitizer = safety.NewSanitizer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		opts:      opts,
		store:     store,
		sender:    sender,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// WithGenerator attaches the generative answer backend.
func (r *Resolver) WithGenerator(g answer.Generator) *Resolver {
	r.generator = g
	return r
}

// WithAudit attaches the delivery audit store.
func (r *Resolver) WithAudit(s *sendlog.Store) *Resolver {
	r.audit = s
	return r
}

// WithEvents attaches the MQTT event publisher.
func (r *Resolver) WithEvents(p *mqtt.Publisher) *Resolver {
	r.events = p
	return r
}

// Resolve handles one utterance. Non-show utterances update the
// session topic and return the hint line; show requests resolve a
// topic, build links, and deliver them.
func (r *Resolver) Resolve(ctx context.Context, req Request) Response {
	requestID := uuid.NewString()
	identifier := req.Identifier
	if identifier == "" {
		identifier = anonymousIdentifier
	}
	text := strings.TrimSpace(req.Text)

	log := r.logger.With("request_id", requestID, "identifier", identifier)

	if text == "" {
		log.Debug("empty utterance")
		return Response{RequestID: requestID, Spoken: spokenClarify}
	}

	if !trigger.IsShowRequest(text) {
		// Remember what they are talking about for a later "show us".
		if err := r.store.Update(ctx, identifier, func(cur *session.Session) *session.Session {
			return &session.Session{
				Topic:         text,
				LastUtterance: text,
			}
		}); err != nil {
			log.Warn("session update failed", "error", err)
		}
		return Response{RequestID: requestID, Spoken: spokenHint}
	}

	cur, err := r.store.Get(ctx, identifier)
	if err != nil {
		log.Warn("session read failed", "error", err)
		cur = nil
	}

	var topic string
	explicit := false
	if r.opts.ExtractInline {
		topic, explicit = trigger.ExtractTopic(text)
	}

	var imageQuery, videoQuery string
	switch {
	case explicit:
		safe := r.sanitizer.Sanitize(topic)
		imageQuery, videoQuery = query.BuildQueries(safe)
	case cur != nil && cur.Topic != "":
		topic = cur.Topic
		safe := r.sanitizer.Sanitize(topic)
		if r.opts.CacheQueries && cur.ImageQuery != "" && cur.VideoQuery != "" {
			imageQuery = query.EnsureKidFriendlyImage(cur.ImageQuery)
			videoQuery = query.EnsureKidFriendlyVideo(cur.VideoQuery)
		} else {
			imageQuery, videoQuery = query.BuildQueries(safe)
		}
	default:
		topic = fallbackSessionTopic
		imageQuery, videoQuery = query.BuildQueries(r.sanitizer.Sanitize(topic))
	}

	if topic == "" {
		return Response{RequestID: requestID, Spoken: spokenClarify}
	}

	imageURL := query.BuildLink(imageQuery, query.KindImage)
	videoURL := query.BuildLink(videoQuery, query.KindVideo)

	// Persist the resolved topic and queries, explicit ones included.
	if err := r.store.Update(ctx, identifier, func(*session.Session) *session.Session {
		return &session.Session{
			Topic:         topic,
			ImageQuery:    imageQuery,
			VideoQuery:    videoQuery,
			LastUtterance: text,
		}
	}); err != nil {
		log.Warn("session update failed", "error", err)
	}

	delivered := r.deliver(ctx, log, requestID, identifier, req.DeliverTo, topic, imageURL, videoURL)

	if r.events != nil {
		r.events.PublishShow(ctx, mqtt.ShowEvent{
			RequestID:  requestID,
			Identifier: identifier,
			Topic:      topic,
			ImageURL:   imageURL,
			VideoURL:   videoURL,
			Delivered:  delivered,
		})
	}

	log.Info("show request resolved",
		"topic", topic,
		"explicit", explicit,
		"delivered", delivered,
	)

	return Response{
		RequestID:  requestID,
		Spoken:     fmt.Sprintf(spokenConfirm, topic),
		Topic:      topic,
		ImageQuery: imageQuery,
		VideoQuery: videoQuery,
		ImageURL:   imageURL,
		VideoURL:   videoURL,
		Delivered:  delivered,
	}
}

// deliver sends the links and records the attempt. Failures are logged
// and recorded, never returned; the child hears the same confirmation
// either way.
func (r *Resolver) deliver(ctx context.Context, log *slog.Logger, requestID, identifier, to, topic, imageURL, videoURL string) bool {
	if to == "" {
		log.Debug("no delivery destination, skipping send")
		return false
	}

	body := fmt.Sprintf(
		"Here are kid-friendly pictures and videos about %s!\nImages: %s\n\nVideos: %s\n\n- Lumo",
		topic, imageURL, videoURL)

	sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	err := r.sender.Send(sendCtx, to, body)
	if err != nil {
		log.Warn("link delivery failed", "backend", r.sender.Name(), "error", err)
	}

	if r.audit != nil {
		entry := &sendlog.Entry{
			Identifier:  identifier,
			Destination: to,
			Backend:     r.sender.Name(),
			Topic:       topic,
			ImageURL:    imageURL,
			VideoURL:    videoURL,
			Delivered:   err == nil,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if recErr := r.audit.Record(entry); recErr != nil {
			log.Warn("sendlog record failed", "error", recErr)
		}
	}

	return err == nil
}

// Answer handles one question through the generative backend, storing
// the resulting topic and queries in the session. Generation failures
// fall back to a gentle spoken line with no topic.
func (r *Resolver) Answer(ctx context.Context, req Request) AnswerResponse {
	requestID := uuid.NewString()
	identifier := req.Identifier
	if identifier == "" {
		identifier = anonymousIdentifier
	}
	text := strings.TrimSpace(req.Text)

	log := r.logger.With("request_id", requestID, "identifier", identifier)

	if text == "" {
		return AnswerResponse{RequestID: requestID, Spoken: spokenClarify}
	}
	if r.generator == nil {
		log.Warn("answer requested but no generator configured")
		return AnswerResponse{RequestID: requestID, Spoken: spokenThinking}
	}

	forced := ""
	if r.opts.ExtractInline {
		forced, _ = trigger.ExtractTopic(text)
	}

	raw, err := r.generator.Generate(ctx, text, forced)
	if err != nil {
		log.Warn("answer generation failed", "error", err)
		return AnswerResponse{RequestID: requestID, Spoken: spokenThinking}
	}

	parsed := answer.Parse(raw)

	topic := parsed.Topic
	if topic == "" {
		topic = forced
	}
	if topic == "" {
		topic = truncate(text, 50)
	}

	imageQuery := query.EnsureKidFriendlyImage(firstNonEmpty(parsed.ImageQuery, topic))
	videoQuery := query.EnsureKidFriendlyVideo(firstNonEmpty(parsed.VideoQuery, topic+" videos"))

	if err := r.store.Update(ctx, identifier, func(*session.Session) *session.Session {
		return &session.Session{
			Topic:         topic,
			ImageQuery:    imageQuery,
			VideoQuery:    videoQuery,
			LastUtterance: text,
		}
	}); err != nil {
		log.Warn("session update failed", "error", err)
	}

	log.Info("question answered", "topic", topic)

	return AnswerResponse{
		RequestID:  requestID,
		Spoken:     parsed.Spoken,
		Topic:      topic,
		ImageQuery: imageQuery,
		VideoQuery: videoQuery,
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
