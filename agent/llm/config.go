package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
	openrouterx "github.com/tanpawarit/Medicare-IDCard-Assistant/pkg/openrouter"
)

const (
	BackendEino   = "eino"
	BackendOpenAI = "openai"
)

type Config struct {
	Backend            string        `envconfig:"BACKEND" split_words:"true" default:"eino"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	ExcludeReasoning   bool          `envconfig:"EXCLUDE_REASONING" split_words:"true" default:"false"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	switch c.backend() {
	case BackendEino, BackendOpenAI:
	default:
		return fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, c.Backend)
	}
	return nil
}

func (c Config) backend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b == "" {
		return BackendEino
	}
	return b
}

func (c Config) OpenRouter() openrouterx.Config {
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: c.MaxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		ExcludeReasoning:   c.ExcludeReasoning,
	}
}

// NewCompleter builds the completer selected by cfg.Backend.
func NewCompleter(ctx context.Context, cfg Config) (contractx.Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	orCfg := cfg.OpenRouter()
	switch cfg.backend() {
	case BackendOpenAI:
		client := openrouterx.NewClient(orCfg)
		if client == nil {
			return nil, fmt.Errorf("%w: openrouter client not configured", contractx.ErrValidation)
		}
		return NewOpenAICompleter(client, orCfg), nil
	default:
		chatModel, err := openrouterx.NewChatModel(ctx, orCfg)
		if err != nil {
			return nil, err
		}
		return NewEinoCompleter(chatModel), nil
	}
}
