package opencode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_CreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/session", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"ses_01","title":"New session","version":"1.0.0","time":{"created":1,"updated":1}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	session, err := client.CreateSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ses_01", session.ID)
	require.Equal(t, "New session", session.Title)
}

func TestClient_CreateSessionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).CreateSession(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=500")
}

func TestClient_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/session/ses_01/message", r.URL.Path)

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "anthropic", req.ProviderID)
		require.Equal(t, "claude-sonnet-4-5", req.ModelID)
		require.Equal(t, "build", req.Mode)
		require.Len(t, req.Parts, 1)
		require.Equal(t, PartText, req.Parts[0].Type)
		require.Equal(t, "hello", req.Parts[0].Text)

		_, _ = w.Write([]byte(`{"info":{"id":"msg_01","role":"assistant","sessionID":"ses_01","time":{"created":1}},"parts":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	msg, err := client.SendMessage(context.Background(), "ses_01",
		NewTextMessage("anthropic", "claude-sonnet-4-5", "build", "hello"))
	require.NoError(t, err)
	require.Equal(t, "msg_01", msg.Info.ID)
}

func TestClient_Config(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/config", r.URL.Path)
		_, _ = w.Write([]byte(`{"providers":[{"id":"anthropic","name":"Anthropic","models":{"claude-sonnet-4-5":{"name":"Claude Sonnet 4.5"}}}]}`))
	}))
	defer server.Close()

	cfg, err := NewClient(server.URL).Config(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	require.Equal(t, "anthropic", cfg.Providers[0].ID)
	require.Contains(t, cfg.Providers[0].Models, "claude-sonnet-4-5")
}

func TestClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://localhost:4096/")
	require.Equal(t, "http://localhost:4096", client.BaseURL())
	require.Equal(t, "http://localhost:4096/event", client.EventURL())
}

func TestClient_MalformedResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).CreateSession(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}
