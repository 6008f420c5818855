package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumokids/showme/internal/httpkit"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// Twilio implements Sender against the Twilio Messages REST API.
type Twilio struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// TwilioOption configures a Twilio sender.
type TwilioOption func(*Twilio)

// WithBaseURL overrides the Twilio API base URL. Used in tests.
func WithBaseURL(u string) TwilioOption {
	return func(t *Twilio) {
		t.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(c *http.Client) TwilioOption {
	return func(t *Twilio) {
		t.httpClient = c
	}
}

// NewTwilio creates a Twilio SMS sender.
func NewTwilio(accountSID, authToken, from string, opts ...TwilioOption) *Twilio {
	t := &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultTwilioBaseURL,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(15 * time.Second)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Twilio) Name() string { return "twilio" }

// twilioMessage is the subset of Twilio's message resource we care
// about.
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Send implements Sender via a form-encoded POST to the Messages
// endpoint.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {t.from},
		"Body": {body},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("twilio: HTTP %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	var msg twilioMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return fmt.Errorf("twilio: decode response: %w", err)
	}
	if msg.Status == "failed" || msg.Status == "undelivered" {
		return fmt.Errorf("twilio: message %s status %q", msg.SID, msg.Status)
	}
	return nil
}
