package adjudicate

import (
	"context"
	"fmt"

	"claimgraph/internal/config"
)

// NewFromConfig selects an Adjudicator backend by cfg.Provider.
func NewFromConfig(ctx context.Context, cfg config.AdjudicationConfig) (Adjudicator, error) {
	switch cfg.Provider {
	case "", "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("adjudicate: anthropic provider requires an api key")
		}
		return NewAnthropic(cfg), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("adjudicate: openai provider requires an api key")
		}
		return NewOpenAI(cfg), nil
	case "google":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("adjudicate: google provider requires an api key")
		}
		return NewGoogle(ctx, cfg)
	default:
		return nil, fmt.Errorf("adjudicate: unsupported provider %q", cfg.Provider)
	}
}
