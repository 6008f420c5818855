package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lumokids/showme/internal/httpkit"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientHTTPClient overrides the outbound HTTP client. Used in
// tests.
func WithClientHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates an answer client. baseURL is the API root, for
// example "https://api.openai.com/v1" or a local llama.cpp server.
func NewClient(baseURL, model, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: httpkit.NewClient(httpkit.WithTimeout(2 * time.Minute)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chatMessage is a chat completion message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatResponse is the subset of the chat completions response we read.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, question, forcedTopic string) (string, error) {
	user := fmt.Sprintf("User said: %q", question)
	if forcedTopic != "" {
		user += fmt.Sprintf("\nThe child/parent explicitly requested visuals for this topic: %s", forcedTopic)
	}
	user += "\nNow provide spoken answer + the 3 required tag lines."

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("answer: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("answer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("answer: request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("answer: HTTP %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("answer: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("answer: empty choices in response")
	}
	return cr.Choices[0].Message.Content, nil
}
