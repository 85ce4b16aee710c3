package adjudicate

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"claimgraph/internal/config"
)

// AnthropicAdjudicator calls the Anthropic Messages API. Grounded on the
// teacher's llm/anthropic client, reduced to a single-turn, non-streaming
// call since adjudication needs no tool use or conversation history.
type AnthropicAdjudicator struct {
	sdk   anthropicsdk.Client
	model string
}

// NewAnthropic constructs an AnthropicAdjudicator from configuration.
func NewAnthropic(cfg config.AdjudicationConfig) *AnthropicAdjudicator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropicsdk.ModelClaude3_7SonnetLatest)
	}
	return &AnthropicAdjudicator{
		sdk:   anthropicsdk.NewClient(option.WithAPIKey(cfg.AnthropicKey)),
		model: model,
	}
}

func (a *AnthropicAdjudicator) Adjudicate(ctx context.Context, req Request) (Response, error) {
	msg, err := a.sdk.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(a.model),
		MaxTokens: 1024,
		System:    []anthropicsdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(buildUserPrompt(req))),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("adjudicate: anthropic call: %w", err)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return parseResponse(text.String())
}

var _ Adjudicator = (*AnthropicAdjudicator)(nil)
