package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"claimgraph/internal/causalgraph"
	"claimgraph/internal/claim"
	"claimgraph/internal/embedding"
	"claimgraph/internal/extractor"
	"claimgraph/internal/graphstore"
	"claimgraph/internal/observability"
	"claimgraph/internal/paircache"
	"claimgraph/internal/vectorindex"
)

const (
	defaultMaxConcurrency = 4
	neighborFetchCount    = 5
	neighborMinSimilarity = 0.6
	maxPairsPerClaim      = 2
)

// Service processes a paper as a lazy finite sequence of claims while
// fanning out adjudications, grounded on the teacher's rag/service.Service
// functional-options construction and staged, per-stage-timed pipeline.
type Service struct {
	extractor extractor.Extractor
	embedder  embedding.Provider
	index     vectorindex.Index
	graph     graphstore.GraphDB
	mirror    *causalgraph.Graph
	pairs     *paircache.Engine

	log            Logger
	metrics        Metrics
	clock          Clock
	maxConcurrency int
	dedupe         DedupeStore
	publisher      EventPublisher

	claimsMu sync.RWMutex
	claims   map[string]claim.Claim
}

// New constructs a Service wired to its collaborators.
func New(ex extractor.Extractor, embedder embedding.Provider, index vectorindex.Index, graph graphstore.GraphDB, mirror *causalgraph.Graph, pairs *paircache.Engine, opts ...Option) *Service {
	s := &Service{
		extractor:      ex,
		embedder:       embedder,
		index:          index,
		graph:          graph,
		mirror:         mirror,
		pairs:          pairs,
		log:            NoopLogger{},
		metrics:        NoopMetrics{},
		clock:          SystemClock{},
		maxConcurrency: defaultMaxConcurrency,
		dedupe:         NewMemoryDedupeStore(),
		publisher:      NoopEventPublisher{},
		claims:         map[string]claim.Claim{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ClaimHandler is invoked once per claim as it becomes indexable, in
// extraction order, mirroring spec §4.I step 4a's yield.
type ClaimHandler func(claim.Claim)

// ProcessPaperStream extracts, indexes, and yields a paper's claims while
// fanning out adjudications against each claim's nearest neighbors. It
// returns once every spawned adjudication task has completed. A paper
// fingerprint that has already been processed is skipped (returns nil, no
// handler calls) to provide at-most-once semantics across restarts.
func (s *Service) ProcessPaperStream(ctx context.Context, paperBytes []byte, paperID string, handler ClaimHandler) error {
	start := s.clock.Now()
	s.metrics.IncCounter("ingest_papers_total", map[string]string{"paper_id": paperID})

	fingerprint := paperFingerprint(paperBytes, paperID)
	if seen, err := s.dedupe.Get(ctx, fingerprint); err == nil && seen != "" {
		s.log.Debug("paper already processed, skipping", map[string]any{"paper_id": paperID})
		return nil
	}

	claims, err := s.extractor.Extract(ctx, string(paperBytes), paperID)
	if err != nil {
		return fmt.Errorf("orchestrator: extraction failed for %s: %w", paperID, err)
	}

	for i := range claims {
		if claims[i].ID == "" {
			claims[i].ID = claim.DeriveID(paperID, claims[i].Text)
		}
	}

	if err := s.embedClaims(ctx, claims); err != nil {
		s.log.Error("embedding batch failed", map[string]any{"paper_id": paperID, "error": err.Error()})
		s.metrics.IncCounter("ingest_embedding_errors_total", map[string]string{"paper_id": paperID})
	}
	s.metrics.ObserveHistogram("ingest_stage_ms", float64(ms(s.clock.Now().Sub(start))), map[string]string{"stage": "embed", "paper_id": paperID})

	for _, c := range claims {
		if err := s.index.Index(c.ID, c.Embedding, map[string]string{"paper_id": c.PaperID}); err != nil {
			s.log.Error("failed to index claim", map[string]any{"claim_id": c.ID, "error": err.Error()})
			s.metrics.IncCounter("ingest_index_errors_total", map[string]string{"paper_id": paperID})
		}
		if _, err := graphstore.AddClaim(ctx, s.graph, c); err != nil {
			s.log.Error("failed to persist claim node", map[string]any{"claim_id": c.ID, "error": err.Error()})
		}
		s.mirror.AddClaim(c)
		s.putClaim(c)
	}
	s.metrics.ObserveHistogram("ingest_stage_ms", float64(ms(s.clock.Now().Sub(start))), map[string]string{"stage": "extract_index", "paper_id": paperID})

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	for _, c := range claims {
		handler(c)

		wg.Add(1)
		sem <- struct{}{}
		go func(source claim.Claim) {
			defer wg.Done()
			defer func() { <-sem }()
			s.adjudicatePair(ctx, source, paperID)
		}(c)
	}
	wg.Wait()

	if err := s.dedupe.Set(ctx, fingerprint, paperID, 0); err != nil {
		s.log.Error("failed to record paper fingerprint", map[string]any{"paper_id": paperID, "error": err.Error()})
	}
	s.metrics.ObserveHistogram("ingest_stage_ms", float64(ms(s.clock.Now().Sub(start))), map[string]string{"stage": "total", "paper_id": paperID})
	return nil
}

// embedClaims fills in Embedding for every claim that doesn't already carry
// one, batching all of them into a single provider call per spec §4.I's
// embedding suspension point. A failed batch is retried once before the
// error is surfaced to the caller, per the transient-external retry policy.
func (s *Service) embedClaims(ctx context.Context, claims []claim.Claim) error {
	if s.embedder == nil {
		return nil
	}
	var idxs []int
	var texts []string
	for i, c := range claims {
		if len(c.Embedding) == 0 {
			idxs = append(idxs, i)
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		vecs, err = s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("orchestrator: embedding batch failed: %w", err)
		}
	}
	if len(vecs) != len(idxs) {
		return fmt.Errorf("orchestrator: embedding count mismatch: got %d, want %d", len(vecs), len(idxs))
	}
	for j, i := range idxs {
		claims[i].Embedding = vecs[j]
	}
	return nil
}

// adjudicatePair takes up to neighborFetchCount nearest neighbors of
// source's embedding at similarity >= neighborMinSimilarity, filters out
// source itself, keeps the top maxPairsPerClaim, and for each runs
// should_debate then debate_pair + add_relationship, per spec §4.I step 4b.
func (s *Service) adjudicatePair(ctx context.Context, source claim.Claim, paperID string) {
	trace := observability.LoggerWithTrace(ctx)
	if len(source.Embedding) == 0 {
		return
	}
	hits, err := s.index.SearchByVector(source.Embedding, neighborFetchCount, neighborMinSimilarity)
	if err != nil {
		s.log.Error("neighbor search failed", map[string]any{"claim_id": source.ID, "error": err.Error()})
		return
	}

	var candidates []vectorindex.Hit
	for _, h := range hits {
		if h.ClaimID == source.ID {
			continue
		}
		candidates = append(candidates, h)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if len(candidates) > maxPairsPerClaim {
		candidates = candidates[:maxPairsPerClaim]
	}

	for _, h := range candidates {
		target, ok := s.getClaim(h.ClaimID)
		if !ok {
			target = claim.Claim{ID: h.ClaimID}
		}
		if !s.pairs.ShouldDebate(source, target) {
			continue
		}
		result, err := s.pairs.DebatePair(ctx, source, target)
		if err != nil {
			trace.Error().Str("from", source.ID).Str("to", h.ClaimID).Err(err).Msg("adjudication failed")
			s.log.Error("adjudication failed", map[string]any{"from": source.ID, "to": h.ClaimID, "error": err.Error()})
			s.metrics.IncCounter("ingest_adjudication_errors_total", map[string]string{"paper_id": paperID})
			continue
		}
		if _, err := graphstore.AddRelationship(ctx, s.graph, source.ID, h.ClaimID, result); err != nil {
			s.log.Error("failed to persist relationship", map[string]any{"from": source.ID, "to": h.ClaimID, "error": err.Error()})
			continue
		}
		trace.Debug().Str("from", source.ID).Str("to", h.ClaimID).Str("verdict", string(result.Verdict)).Msg("relationship persisted")
		s.mirror.AddRelationship(source.ID, h.ClaimID, result)
		if pubErr := s.publisher.Publish(ctx, graphstore.Event{
			Kind:    graphstore.EventAddEdge,
			FromID:  source.ID,
			ToID:    h.ClaimID,
			RelType: string(result.Verdict),
		}); pubErr != nil {
			s.log.Debug("event publish failed", map[string]any{"error": pubErr.Error()})
		}
	}
}

// putClaim records a processed claim in the in-process registry so a later
// adjudication against it (as a neighbor of some other source claim) sees
// its full text and embedding rather than a bare id.
func (s *Service) putClaim(c claim.Claim) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	s.claims[c.ID] = c
}

// getClaim looks up a previously processed claim by id.
func (s *Service) getClaim(id string) (claim.Claim, bool) {
	s.claimsMu.RLock()
	defer s.claimsMu.RUnlock()
	c, ok := s.claims[id]
	return c, ok
}

// paperFingerprint derives the idempotence key from the paper id and a
// content hash, so a byte-identical resubmission under the same id is
// recognized even if the in-process claim set would otherwise differ.
func paperFingerprint(paperBytes []byte, paperID string) string {
	sum := sha256.Sum256(paperBytes)
	return "orchestrator:paper:" + paperID + ":" + hex.EncodeToString(sum[:])
}
