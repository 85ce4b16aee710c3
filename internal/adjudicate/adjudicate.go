// Package adjudicate invokes an external LLM to judge the relationship
// between two claims given supporting evidence, returning a verdict, a raw
// confidence score, and a transcript of its reasoning.
package adjudicate

import (
	"context"
	"fmt"

	"claimgraph/internal/claim"
)

// Request is the input to an adjudication call: two claim texts plus a
// pool of evidence snippets gathered from both sides' nearest neighbours.
type Request struct {
	ClaimAText string
	ClaimBText string
	Evidence   []claim.EvidenceHit
}

// Response is the adjudicator's raw judgement, before calibration.
type Response struct {
	Verdict       claim.Verdict
	RawConfidence float64
	Transcript    []string
}

// Adjudicator judges a claim pair. Implementations call out to an LLM;
// errors are surfaced to the caller verbatim so the pair engine can avoid
// caching a failed adjudication.
type Adjudicator interface {
	Adjudicate(ctx context.Context, req Request) (Response, error)
}

// systemPrompt instructs the model to return strict JSON so the response
// can be parsed without a tool-calling round trip.
const systemPrompt = `You are adjudicating a pair of scientific claims extracted from research papers.
Given claim A, claim B, and a pool of evidence snippets, decide whether B refutes, supports, or extends A, or whether the relationship is uncertain.
Cite evidence by writing its bracketed id (without the brackets) in your reasoning when it supports your verdict.
Respond with a single JSON object: {"verdict": "refutes"|"supports"|"extends"|"uncertain", "confidence": <float 0..1>, "reasoning": ["step 1", "step 2", ...]}.`

func buildUserPrompt(req Request) string {
	prompt := fmt.Sprintf("Claim A: %s\nClaim B: %s\n\nEvidence pool:\n", req.ClaimAText, req.ClaimBText)
	for _, e := range req.Evidence {
		prompt += fmt.Sprintf("- [%s] %s\n", e.ClaimID, e.Text)
	}
	return prompt
}

func parseVerdict(raw string) claim.Verdict {
	switch raw {
	case "refutes":
		return claim.VerdictRefutes
	case "supports":
		return claim.VerdictSupports
	case "extends":
		return claim.VerdictExtends
	default:
		return claim.VerdictUncertain
	}
}
