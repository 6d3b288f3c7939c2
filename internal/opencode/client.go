package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"occhat/internal/log"
)

const (
	defaultTimeout = 2 * time.Minute

	// maxBodyBytes caps how much of a response body is read, so a
	// misbehaving server cannot exhaust memory.
	maxBodyBytes = 8 << 20
)

// Client talks to the opencode server's REST surface.
// The event stream endpoint is handled separately by the stream package.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// EventURL returns the SSE endpoint for the stream client.
func (c *Client) EventURL() string { return c.baseURL + "/event" }

// CreateSession creates a new session via POST /session.
func (c *Client) CreateSession(ctx context.Context) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/session", nil, &session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	log.Info(log.CatAPI, "session created", "id", session.ID)
	return session, nil
}

// SendMessageRequest is the body of POST /session/{id}/message.
type SendMessageRequest struct {
	ProviderID string          `json:"providerID"` //nolint:tagliatelle // matches opencode API
	ModelID    string          `json:"modelID"`    //nolint:tagliatelle // matches opencode API
	Mode       string          `json:"mode,omitempty"`
	Parts      []TextPartInput `json:"parts"`
}

// TextPartInput is the only part kind the client sends.
type TextPartInput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextMessage builds a send request for a single text part.
func NewTextMessage(providerID, modelID, mode, text string) SendMessageRequest {
	return SendMessageRequest{
		ProviderID: providerID,
		ModelID:    modelID,
		Mode:       mode,
		Parts:      []TextPartInput{{Type: PartText, Text: text}},
	}
}

// SendMessage posts a user message to the session. The server begins
// asynchronous processing and returns the full assistant message envelope;
// subsequent updates arrive over the event stream.
func (c *Client) SendMessage(ctx context.Context, sessionID string, req SendMessageRequest) (Message, error) {
	var msg Message
	path := fmt.Sprintf("/session/%s/message", sessionID)
	if err := c.do(ctx, http.MethodPost, path, req, &msg); err != nil {
		return Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// Provider describes one model provider from GET /config.
type Provider struct {
	ID     string           `json:"id"`
	Name   string           `json:"name,omitempty"`
	Models map[string]Model `json:"models,omitempty"`
}

// Model describes one selectable model.
type Model struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ServerConfig is the subset of GET /config the client consumes.
type ServerConfig struct {
	Providers []Provider `json:"providers,omitempty"`
}

// Config fetches the provider/model list for the model picker.
func (c *Client) Config(ctx context.Context) (ServerConfig, error) {
	var cfg ServerConfig
	if err := c.do(ctx, http.MethodGet, "/config", nil, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("fetch config: %w", err)
	}
	return cfg, nil
}

// do issues one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status=%d body=%s",
			method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
