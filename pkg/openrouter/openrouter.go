// Package openrouter builds the two LLM clients the assistant can reason
// with: an eino chat model and a raw openai-go client, both pointed at the
// OpenRouter chat completions API.
package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config is filled from llm.Config; it is not loaded from the environment
// on its own.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// MaxCompletionToken of zero leaves the provider default.
	MaxCompletionToken int
	Temperature        float32
	Timeout            time.Duration
	SiteURL            string
	SiteName           string
	// ExcludeReasoning asks reasoning models to answer without a reasoning
	// trace, which some models otherwise return instead of tool calls.
	ExcludeReasoning bool
}

func (c Config) baseURL() string {
	if trimmed := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); trimmed != "" {
		return trimmed
	}
	return DefaultBaseURL
}

// ExtraFields returns the OpenRouter-specific request body fields.
func (c Config) ExtraFields() map[string]any {
	if !c.ExcludeReasoning {
		return nil
	}
	return map[string]any{
		"reasoning": map[string]any{
			"exclude": true,
			"effort":  "none",
		},
	}
}

// NewChatModel builds the eino tool-calling chat model.
func NewChatModel(ctx context.Context, cfg Config) (model.ToolCallingChatModel, error) {
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	temperature := cfg.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     cfg.baseURL(),
		APIKey:      strings.TrimSpace(cfg.APIKey),
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
		ExtraFields: cfg.ExtraFields(),
	}
	if cfg.MaxCompletionToken > 0 {
		maxTokens := cfg.MaxCompletionToken
		conf.MaxTokens = &maxTokens
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model: %w", err)
	}
	return m, nil
}

// NewClient creates an OpenAI SDK client pointed at OpenRouter. It returns
// nil when no api key is configured.
func NewClient(cfg Config) *openaisdk.Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL()),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if siteURL := strings.TrimSpace(cfg.SiteURL); siteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", siteURL))
	}
	if siteName := strings.TrimSpace(cfg.SiteName); siteName != "" {
		opts = append(opts, option.WithHeader("X-Title", siteName))
	}
	for key, value := range cfg.ExtraFields() {
		opts = append(opts, option.WithJSONSet(key, value))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
