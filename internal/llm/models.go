// Package llm drives the bounded tool-call loop against the model provider
// and shapes its output into a reply that is always safe to show the user.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	logx "github.com/atendeai/core/pkg/logger"
)

// ChatModel is the surface the loop needs from a provider chat model.
// *gemini.ChatModel satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
	BindTools(tools []*schema.ToolInfo) error
}

// ModelFactory builds a chat model for a resolved agent's model settings.
type ModelFactory interface {
	ChatModel(ctx context.Context, modelName string, temperature float64) (ChatModel, error)
}

// GeminiFactory builds Gemini chat models over a shared client.
type GeminiFactory struct {
	client    *genai.Client
	maxTokens int
}

// GeminiConfig holds provider-level settings shared by all agents.
type GeminiConfig struct {
	APIKey    string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL   string `envconfig:"GEMINI_BASE_URL"`
	MaxTokens int    `envconfig:"GEMINI_MAX_TOKENS" default:"2000"`
}

// NewGeminiFactory creates the shared Gemini client.
func NewGeminiFactory(ctx context.Context, cfg GeminiConfig) (*GeminiFactory, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return &GeminiFactory{client: client, maxTokens: cfg.MaxTokens}, nil
}

// ChatModel builds a model instance with the agent's settings applied.
func (f *GeminiFactory) ChatModel(ctx context.Context, modelName string, temperature float64) (ChatModel, error) {
	temp := float32(temperature)
	maxTokens := f.maxTokens
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      f.client,
		Model:       modelName,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", modelName).Msg("error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}
	return cm, nil
}

var _ ModelFactory = (*GeminiFactory)(nil)
