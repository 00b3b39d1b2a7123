// Package eino adapts CloudWeGo Eino chat models to ports.LLM.
package eino

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Providers accepted by NewFromConfig.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrEmptyGeneration is returned when the model produced no message.
var ErrEmptyGeneration = errors.New("model produced no message")

// Config selects and tunes a chat model.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature *float32
}

// ChatModel implements ports.LLM over an Eino chat model.
type ChatModel struct {
	model model.BaseChatModel
	name  string
	opts  []model.Option
}

// New wraps an existing Eino chat model. name is reported in responses.
func New(m model.BaseChatModel, name string, opts ...model.Option) *ChatModel {
	return &ChatModel{model: m, name: name, opts: opts}
}

// NewOpenAI creates a ChatModel backed by an OpenAI-compatible endpoint.
func NewOpenAI(ctx context.Context, cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	modelConfig := &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}

	m, err := openai.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating openai chat model: %w", err)
	}
	return New(m, cfg.Model), nil
}

// NewOllama creates a ChatModel backed by a local Ollama server.
func NewOllama(ctx context.Context, cfg Config) (*ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ollama chat model: %w", err)
	}

	var opts []model.Option
	if cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(cfg.MaxTokens))
	}
	return New(m, cfg.Model, opts...), nil
}

// NewFromConfig dispatches on cfg.Provider. An empty provider means OpenAI.
func NewFromConfig(ctx context.Context, cfg Config) (*ChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAI(ctx, cfg)
	case ProviderOllama:
		return NewOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Complete implements ports.LLM. The system string becomes the leading system message.
func (c *ChatModel) Complete(ctx context.Context, messages []domain.Message, system string) (*domain.Response, error) {
	out, err := c.model.Generate(ctx, ToSchema(messages, system), c.opts...)
	if err != nil {
		return nil, fmt.Errorf("error generating response: %w", err)
	}
	if out == nil {
		return nil, ErrEmptyGeneration
	}
	return &domain.Response{Content: out.Content, Model: c.name}, nil
}

// ToSchema converts role-tagged messages into Eino messages.
func ToSchema(messages []domain.Message, system string) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages)+1)
	if system != "" {
		out = append(out, schema.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case domain.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
