// Package claim defines the core data model shared by every stage of the
// pipeline: extraction, indexing, adjudication, and graph storage.
package claim

// Type enumerates the kinds of assertion an extractor can tag a claim with.
type Type string

const (
	TypeFinding     Type = "finding"
	TypeMethod      Type = "method"
	TypeImplication Type = "implication"
	TypeHypothesis  Type = "hypothesis"
)

// Claim is an atomic assertion extracted from a paper section. The
// orchestrator fills in a missing ID and Embedding before indexing a claim;
// nothing in this module changes a Claim's fields after that.
type Claim struct {
	ID               string   `json:"claim_id"`
	PaperID          string   `json:"paper_id"`
	Section          string   `json:"section"`
	Type             Type     `json:"claim_type"`
	Text             string   `json:"text"`
	Confidence       float64  `json:"confidence"`
	EvidenceSnippets []string `json:"evidence_snippets"`
	Embedding        []float32 `json:"embedding,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// EvidenceHit is a single nearest-neighbour result against the vector index.
// Evidence hits are produced on demand and are never themselves persisted.
type EvidenceHit struct {
	ClaimID    string
	Text       string
	Similarity float64
	Metadata   map[string]string
}

// Verdict is the relational label an adjudicator assigns to a claim pair.
type Verdict string

const (
	VerdictRefutes   Verdict = "refutes"
	VerdictSupports  Verdict = "supports"
	VerdictExtends   Verdict = "extends"
	VerdictUncertain Verdict = "uncertain"
)

// ConfidenceBand is the human-readable bucket a calibrated confidence falls
// into, per the cut-points {0.3, 0.6, 0.85}.
type ConfidenceBand string

const (
	BandUnrelated ConfidenceBand = "Unrelated"
	BandUncertain ConfidenceBand = "Uncertain / Likely Noise"
	BandWeak      ConfidenceBand = "Weak Evidence"
	BandModerate  ConfidenceBand = "Moderate Confidence"
	BandHigh      ConfidenceBand = "High Confidence"
)

// DebateResult is the immutable outcome of adjudicating one claim pair. It is
// stored verbatim in the adjudication cache and mirrored onto the graph edge
// that connects the two claims.
type DebateResult struct {
	Verdict              Verdict            `json:"verdict"`
	RawConfidence        float64            `json:"raw_confidence"`
	CalibratedConfidence float64            `json:"calibrated_confidence"`
	ConfidenceBand       ConfidenceBand     `json:"confidence_band"`
	Citations            []string           `json:"citations"`
	RequiresHuman        bool               `json:"requires_human"`
	Transcript           []string           `json:"transcript"`
	AgentConfidences     map[string]float64 `json:"agent_confidences,omitempty"`
}

// Edge is the graph representation of a DebateResult connecting two claims.
// Edges are directed and labelled RELATES; in practice exactly one edge
// exists per unordered claim pair because the cache key is canonical.
type Edge struct {
	FromID       string
	ToID         string
	RelationType Verdict
	Confidence   float64
	Citations    []string
	Transcript   []string
}

// Paper is the source document a set of claims was extracted from.
type Paper struct {
	ID               string
	Title            string
	Authors          []string
	Year             int
	DOI              string
	ArxivID          string
	RawText          string
	SummaryEmbedding []float32
}
