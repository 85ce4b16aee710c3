package adjudicate

import (
	"encoding/json"
	"fmt"
	"regexp"
)

type verdictPayload struct {
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// jsonObjectPattern extracts the span from the first "{" to the last "}" of
// a model response, tolerating surrounding prose or markdown code fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseResponse parses a model's raw text reply into a Response, tolerating
// responses wrapped in prose or code fences.
func parseResponse(text string) (Response, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return Response{}, fmt.Errorf("adjudicate: no JSON object found in response")
	}
	var payload verdictPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return Response{}, fmt.Errorf("adjudicate: parse response: %w", err)
	}
	return Response{
		Verdict:       parseVerdict(payload.Verdict),
		RawConfidence: payload.Confidence,
		Transcript:    payload.Reasoning,
	}, nil
}
