// Package paircache decides whether and how a claim pair is adjudicated,
// and caches the resulting DebateResult under a canonical symmetric key so
// (a, b) and (b, a) share a single cache entry.
package paircache

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"claimgraph/internal/adjudicate"
	"claimgraph/internal/calibration"
	"claimgraph/internal/claim"
	"claimgraph/internal/observability"
	"claimgraph/internal/vectorindex"
)

const (
	prefilterLowerDefault = 0.3
	prefilterUpperDefault = 0.95
	topKEvidence          = 3
	minEvidenceSimilarity = 0.7
	minCitationsRequired  = 2
	minEvidencePoolSize   = 3
	minAvgEvidenceQuality = 0.7
)

// Store persists DebateResult rows under a canonical key. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(key string) (claim.DebateResult, bool, error)
	Set(key string, result claim.DebateResult) error
}

// Engine runs the debate pair pipeline: cache lookup, similarity
// pre-filter, evidence retrieval, adjudication, calibration, and flagging.
type Engine struct {
	store        Store
	index        vectorindex.Index
	adjudicator  adjudicate.Adjudicator
	calibrator   *calibration.Calibrator
	lowerBound   float64
	upperBound   float64
	cosine       func(a, b []float32) float64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPrefilterBounds overrides the default {0.3, 0.95} similarity
// pre-filter cut-points.
func WithPrefilterBounds(lower, upper float64) Option {
	return func(e *Engine) { e.lowerBound, e.upperBound = lower, upper }
}

// WithCosine overrides the cosine similarity function used for the
// pre-filter and should_debate checks.
func WithCosine(fn func(a, b []float32) float64) Option {
	return func(e *Engine) { e.cosine = fn }
}

// New constructs a pair-debate Engine.
func New(store Store, index vectorindex.Index, adjudicator adjudicate.Adjudicator, calibrator *calibration.Calibrator, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		index:       index,
		adjudicator: adjudicator,
		calibrator:  calibrator,
		lowerBound:  prefilterLowerDefault,
		upperBound:  prefilterUpperDefault,
		cosine:      cosine,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// ShouldDebate returns true if b appears in the top-10 nearest neighbours
// of a's embedding with similarity > 0.6, or conservatively true when
// embeddings are unavailable.
func (e *Engine) ShouldDebate(a, b claim.Claim) bool {
	if len(a.Embedding) == 0 {
		return true
	}
	hits, err := e.index.SearchByVector(a.Embedding, 10, 0)
	if err != nil {
		return true
	}
	for _, h := range hits {
		if h.ClaimID == b.ID {
			return h.Similarity > 0.6
		}
	}
	return false
}

// DebatePair resolves the relationship between two claims, consulting the
// cache first and writing the result back on every non-error path.
func (e *Engine) DebatePair(ctx context.Context, a, b claim.Claim) (claim.DebateResult, error) {
	log := observability.LoggerWithTrace(ctx)
	key := claim.CanonicalPairKey(a.ID, b.ID)
	if cached, ok, err := e.store.Get(key); err != nil {
		return claim.DebateResult{}, err
	} else if ok {
		log.Debug().Str("pair_key", key).Msg("debate pair served from cache")
		return cached, nil
	}

	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		sim := e.cosine(a.Embedding, b.Embedding)
		if sim < e.lowerBound {
			result := claim.DebateResult{
				Verdict:              claim.VerdictUncertain,
				RawConfidence:        0,
				CalibratedConfidence: 0,
				ConfidenceBand:       claim.BandUnrelated,
				Citations:            []string{},
				RequiresHuman:        false,
				Transcript:           []string{"skipped: low similarity"},
				AgentConfidences:     map[string]float64{},
			}
			return result, e.store.Set(key, result)
		}
		if sim > e.upperBound {
			result := claim.DebateResult{
				Verdict:              claim.VerdictSupports,
				RawConfidence:        1.0,
				CalibratedConfidence: 0.99,
				ConfidenceBand:       claim.BandHigh,
				Citations:            []string{},
				RequiresHuman:        false,
				Transcript:           []string{"skipped: high similarity"},
			}
			return result, e.store.Set(key, result)
		}
	}

	evidencePool, err := e.retrieveEvidencePool(ctx, a, b)
	if err != nil {
		evidencePool = nil
	}

	resp, err := e.adjudicator.Adjudicate(ctx, adjudicate.Request{
		ClaimAText: a.Text,
		ClaimBText: b.Text,
		Evidence:   evidencePool,
	})
	if err != nil {
		log.Error().Str("pair_key", key).Err(err).Msg("adjudication call failed")
		return claim.DebateResult{}, fmt.Errorf("paircache: adjudication failed: %w", err)
	}

	citations := extractCitations(resp.Transcript, evidencePool)
	calibrated, band := e.calibrator.Calibrate(resp.RawConfidence)
	requiresHuman := shouldFlagForReview(calibrated, len(citations), evidencePool)
	log.Info().Str("pair_key", key).Str("verdict", string(resp.Verdict)).
		Float64("calibrated_confidence", calibrated).Bool("requires_human", requiresHuman).
		Msg("debate pair adjudicated")
	if raw, err := json.Marshal(resp.Transcript); err == nil {
		log.Debug().RawJSON("transcript", observability.RedactJSON(raw)).Msg("debate transcript")
	}

	result := claim.DebateResult{
		Verdict:              resp.Verdict,
		RawConfidence:        resp.RawConfidence,
		CalibratedConfidence: calibrated,
		ConfidenceBand:       band,
		Citations:            citations,
		RequiresHuman:        requiresHuman,
		Transcript:           resp.Transcript,
	}
	return result, e.store.Set(key, result)
}

// retrieveEvidencePool gathers up to topK hits for each claim's text with
// min_similarity 0.7, unioning into a pool with stable iteration order
// (a's hits first, then b's, skipping ids already present).
func (e *Engine) retrieveEvidencePool(ctx context.Context, a, b claim.Claim) ([]claim.EvidenceHit, error) {
	var pool []claim.EvidenceHit
	seen := map[string]bool{}

	for _, text := range []string{a.Text, b.Text} {
		vec, ok := embeddingFor(a, b, text)
		var hits []vectorindex.Hit
		var err error
		if ok {
			hits, err = e.index.SearchByVector(vec, topKEvidence, minEvidenceSimilarity)
		}
		if err != nil {
			return pool, err
		}
		for _, h := range hits {
			if seen[h.ClaimID] {
				continue
			}
			seen[h.ClaimID] = true
			pool = append(pool, claim.EvidenceHit{
				ClaimID:    h.ClaimID,
				Similarity: h.Similarity,
				Metadata:   h.Metadata,
			})
		}
	}
	return pool, nil
}

func embeddingFor(a, b claim.Claim, text string) ([]float32, bool) {
	if text == a.Text && len(a.Embedding) > 0 {
		return a.Embedding, true
	}
	if text == b.Text && len(b.Embedding) > 0 {
		return b.Embedding, true
	}
	return nil, false
}

// extractCitations returns the set of evidence ids that appear as a whole
// word in any transcript line: case-sensitive, word-boundary substring
// match, not a bare strings.Contains.
func extractCitations(transcript []string, pool []claim.EvidenceHit) []string {
	var out []string
	for _, e := range pool {
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(e.ClaimID) + `\b`)
		if err != nil {
			continue
		}
		for _, line := range transcript {
			if pattern.MatchString(line) {
				out = append(out, e.ClaimID)
				break
			}
		}
	}
	return out
}

// shouldFlagForReview applies the conservative four-rule policy: low
// calibrated confidence, too few citations, a thin evidence pool, or weak
// average evidence quality all force human review.
func shouldFlagForReview(calibrated float64, numCitations int, pool []claim.EvidenceHit) bool {
	if calibrated < 0.85 {
		return true
	}
	if numCitations < minCitationsRequired {
		return true
	}
	if len(pool) < minEvidencePoolSize {
		return true
	}
	if len(pool) == 0 {
		return true
	}
	var sum float64
	for _, e := range pool {
		sum += e.Similarity
	}
	if sum/float64(len(pool)) < minAvgEvidenceQuality {
		return true
	}
	return false
}
