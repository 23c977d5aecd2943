// Package factory builds the commentary LLM provider from configuration.
package factory

import (
	"fmt"

	"github.com/newthinker/folio/internal/config"
	"github.com/newthinker/folio/internal/llm"
	"github.com/newthinker/folio/internal/llm/claude"
	"github.com/newthinker/folio/internal/llm/openai"
)

// New returns the configured provider, or nil when commentary is disabled.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return newClaude(cfg.Claude)
	case "openai":
		return newOpenAI(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// Each constructor returns a nil interface on error, never a typed nil.
func newClaude(c config.ClaudeConfig) (llm.Provider, error) {
	var opts []claude.Option
	if c.BaseURL != "" {
		opts = append(opts, claude.WithBaseURL(c.BaseURL))
	}
	p, err := claude.New(c.APIKey, c.Model, opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newOpenAI(c config.OpenAIConfig) (llm.Provider, error) {
	var opts []openai.Option
	if c.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.BaseURL))
	}
	p, err := openai.New(c.APIKey, c.Model, opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}
