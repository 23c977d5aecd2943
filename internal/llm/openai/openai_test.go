package openai

import (
	"context"
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

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion", "model": "gpt-test",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Mostly growth names."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 5, "total_tokens": 25}
	}`)

	p, err := New("test-key", "gpt-test", WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: "user", Content: "summarize"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mostly growth names.", resp.Content)
	assert.Equal(t, 20, resp.Usage.InputTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestChat_EmptyChoices(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"id": "x", "choices": [], "usage": {}}`)

	p, err := New("test-key", "gpt-test", WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, core.ErrLLMFailed)
}

func TestChat_APIError(t *testing.T) {
	srv := newServer(t, http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)

	p, err := New("test-key", "gpt-test", WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, core.ErrLLMFailed)
}
