package triage

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"hospital-dispatch/internal/config"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicAgent sends prompts to the Anthropic API with a per-role system
// prompt.
type AnthropicAgent struct {
	client anthropic.Client
	model  string
	system string
}

func NewAnthropicAgent(cfg config.AgentConfig, role string) (*AnthropicAgent, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic agent %q: api key not configured", role)
	}
	system, ok := systemPrompts[role]
	if !ok {
		return nil, fmt.Errorf("anthropic agent: unknown role %q", role)
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicAgent{
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:  model,
		system: system,
	}, nil
}

func (a *AnthropicAgent) Send(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: a.system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}
