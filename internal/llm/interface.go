// Package llm abstracts the chat models used for portfolio commentary.
package llm

import "context"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTokens applies when a request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// Provider is a chat model. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is one chat completion request.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int // 0 means DefaultMaxTokens
	Temperature  float64
}

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string
}

// ChatResponse is the text the model returned.
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
