package adjudicate

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"claimgraph/internal/config"
)

// OpenAIAdjudicator calls the Chat Completions API. Grounded on the
// teacher's llm/openai client, reduced to a single-turn, non-streaming
// call.
type OpenAIAdjudicator struct {
	sdk   openaisdk.Client
	model string
}

// NewOpenAI constructs an OpenAIAdjudicator from configuration.
func NewOpenAI(cfg config.AdjudicationConfig) *OpenAIAdjudicator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openaisdk.ChatModelGPT4o
	}
	return &OpenAIAdjudicator{
		sdk:   openaisdk.NewClient(option.WithAPIKey(cfg.OpenAIKey)),
		model: model,
	}
}

func (o *OpenAIAdjudicator) Adjudicate(ctx context.Context, req Request) (Response, error) {
	comp, err := o.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(o.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(buildUserPrompt(req)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("adjudicate: openai call: %w", err)
	}
	if len(comp.Choices) == 0 {
		return Response{}, fmt.Errorf("adjudicate: openai returned no choices")
	}
	return parseResponse(comp.Choices[0].Message.Content)
}

var _ Adjudicator = (*OpenAIAdjudicator)(nil)
