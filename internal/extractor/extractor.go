// Package extractor defines the external collaborator that turns raw paper
// text into atomic claims, plus a simple default implementation grounded on
// extract.py's sentence-splitting ClaimExtractorV2.
package extractor

import (
	"context"
	"strings"

	"claimgraph/internal/claim"
)

// Extractor produces claims from a paper's raw text. Implementations must
// never error on well-formed text; an empty result is valid.
type Extractor interface {
	Extract(ctx context.Context, text, paperID string) ([]claim.Claim, error)
}

const (
	defaultClaimType   = claim.TypeFinding
	defaultConfidence  = 0.7
	maxClaimsPerSection = 5
	minSectionWords     = 50
	minSentenceRunes    = 20
)

// SentenceSplitter is a deterministic, dependency-free Extractor: it treats
// the whole document as a single "Main" section, takes its first five
// sentences, and turns those longer than 20 runes into findings, mirroring extract.py's fallback path
// before any LLM-backed rewrite. It never errors.
type SentenceSplitter struct{}

// NewSentenceSplitter constructs a SentenceSplitter.
func NewSentenceSplitter() *SentenceSplitter { return &SentenceSplitter{} }

func (s *SentenceSplitter) Extract(ctx context.Context, text, paperID string) ([]claim.Claim, error) {
	sections := splitSections(text)
	var claims []claim.Claim
	for name, body := range sections {
		if len(strings.Fields(body)) < minSectionWords {
			continue
		}
		claims = append(claims, extractFromSection(body, name, paperID)...)
	}
	return claims, nil
}

// splitSections is the same "no real section detection" fallback as
// extract.py's _split_sections: everything lives under "Main".
func splitSections(text string) map[string]string {
	return map[string]string{"Main": text}
}

func extractFromSection(sectionText, sectionName, paperID string) []claim.Claim {
	sentences := strings.Split(sectionText, ".")
	if len(sentences) > maxClaimsPerSection {
		sentences = sentences[:maxClaimsPerSection]
	}

	var claims []claim.Claim
	for _, raw := range sentences {
		sent := strings.TrimSpace(raw)
		if len([]rune(sent)) <= minSentenceRunes {
			continue
		}
		claims = append(claims, claim.Claim{
			ID:               claim.DeriveID(paperID, sent),
			PaperID:          paperID,
			Section:          sectionName,
			Type:             defaultClaimType,
			Text:             sent,
			Confidence:       defaultConfidence,
			EvidenceSnippets: []string{sent},
		})
	}
	return claims
}

var _ Extractor = (*SentenceSplitter)(nil)
