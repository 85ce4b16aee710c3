package adjudicate

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"claimgraph/internal/config"
)

// GoogleAdjudicator calls the Gemini GenerateContent API. Grounded on the
// teacher's llm/google client, reduced to a single-turn call with the
// system prompt folded into the content since adjudication needs no
// conversation history.
type GoogleAdjudicator struct {
	client *genai.Client
	model  string
}

// NewGoogle constructs a GoogleAdjudicator from configuration.
func NewGoogle(ctx context.Context, cfg config.AdjudicationConfig) (*GoogleAdjudicator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GoogleKey})
	if err != nil {
		return nil, fmt.Errorf("adjudicate: init google client: %w", err)
	}
	return &GoogleAdjudicator{client: client, model: model}, nil
}

func (g *GoogleAdjudicator) Adjudicate(ctx context.Context, req Request) (Response, error) {
	prompt := systemPrompt + "\n\n" + buildUserPrompt(req)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return Response{}, fmt.Errorf("adjudicate: google call: %w", err)
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
	}
	return parseResponse(text.String())
}

var _ Adjudicator = (*GoogleAdjudicator)(nil)
