package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model")
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, p.model)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "Tilted to "}, {"type": "text", "text": "momentum."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "claude-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: "user", Content: "summarize"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tilted to momentum.", resp.Content)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
	assert.Equal(t, "end_turn", resp.FinishReason)
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "claude-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, core.ErrLLMFailed)
}
