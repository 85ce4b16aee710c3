package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgraph/internal/adjudicate"
	"claimgraph/internal/calibration"
	"claimgraph/internal/causalgraph"
	"claimgraph/internal/claim"
	"claimgraph/internal/embedding"
	"claimgraph/internal/extractor"
	"claimgraph/internal/graphstore"
	"claimgraph/internal/paircache"
	"claimgraph/internal/vectorindex"
)

// fakeExtractor returns a fixed set of claims regardless of input text, so
// tests can drive ProcessPaperStream deterministically.
type fakeExtractor struct {
	claims []claim.Claim
}

func (f *fakeExtractor) Extract(ctx context.Context, text, paperID string) ([]claim.Claim, error) {
	out := make([]claim.Claim, len(f.claims))
	copy(out, f.claims)
	for i := range out {
		out[i].PaperID = paperID
	}
	return out, nil
}

// fakeIndex is a minimal vectorindex.Index: every vector is "similar" to
// every other vector at a fixed similarity, so neighbor fan-out is
// deterministic without a real HNSW graph.
type fakeIndex struct {
	mu   sync.Mutex
	rows []vectorindex.Hit
	vecs map[string][]float32
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{vecs: map[string][]float32{}}
}

func (f *fakeIndex) Index(id string, vector []float32, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vecs[id] = vector
	f.rows = append(f.rows, vectorindex.Hit{ClaimID: id, Similarity: 0.9, Metadata: metadata})
	return nil
}

func (f *fakeIndex) SearchByVector(vector []float32, k int, minSimilarity float64) ([]vectorindex.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vectorindex.Hit
	for _, h := range f.rows {
		if len(out) >= k {
			break
		}
		if h.Similarity >= minSimilarity {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeIndex) SearchByText(ctx context.Context, embedder embedding.Provider, text string, k int, minSimilarity float64) ([]vectorindex.Hit, error) {
	return nil, nil
}

func (f *fakeIndex) Reconstruct(id string) ([]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vecs[id]
	return v, ok
}

func (f *fakeIndex) Snapshot(path string) error { return nil }
func (f *fakeIndex) Restore(path string) error  { return nil }
func (f *fakeIndex) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vecs)
}

// fakeAdjudicator always returns a fixed supports verdict.
type fakeAdjudicator struct {
	calls int
	mu    sync.Mutex
}

func (a *fakeAdjudicator) Adjudicate(ctx context.Context, req adjudicate.Request) (adjudicate.Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return adjudicate.Response{
		Verdict:       claim.VerdictSupports,
		RawConfidence: 0.95,
		Transcript:    []string{"consistent with evidence"},
	}, nil
}

func newTestService(t *testing.T, claims []claim.Claim) (*Service, *fakeIndex, graphstore.GraphDB) {
	t.Helper()
	idx := newFakeIndex()
	log, err := graphstore.OpenEventLog("")
	require.NoError(t, err)
	graph := graphstore.NewMemory(log)
	mirror := causalgraph.New()
	store, err := paircache.NewMemoryStore("")
	require.NoError(t, err)
	engine := paircache.New(store, idx, &fakeAdjudicator{}, calibration.New(""))

	svc := New(&fakeExtractor{claims: claims}, nil, idx, graph, mirror, engine, WithMaxConcurrency(2))
	return svc, idx, graph
}

func claimWithEmbedding(id, text string, vec []float32) claim.Claim {
	return claim.Claim{
		ID:         id,
		Type:       claim.TypeFinding,
		Text:       text,
		Confidence: 0.7,
		Embedding:  vec,
	}
}

func TestProcessPaperStream_YieldsClaimsInOrder(t *testing.T) {
	claims := []claim.Claim{
		claimWithEmbedding("c1", "first claim", []float32{1, 0, 0}),
		claimWithEmbedding("c2", "second claim", []float32{0, 1, 0}),
		claimWithEmbedding("c3", "third claim", []float32{0, 0, 1}),
	}
	svc, _, _ := newTestService(t, claims)

	var seen []string
	var mu sync.Mutex
	err := svc.ProcessPaperStream(context.Background(), []byte("paper body"), "p1", func(c claim.Claim) {
		mu.Lock()
		seen = append(seen, c.ID)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3"}, seen)
}

func TestProcessPaperStream_IndexesAndPersistsEveryClaim(t *testing.T) {
	claims := []claim.Claim{
		claimWithEmbedding("c1", "first claim", []float32{1, 0, 0}),
		claimWithEmbedding("c2", "second claim", []float32{0, 1, 0}),
	}
	svc, idx, graph := newTestService(t, claims)

	err := svc.ProcessPaperStream(context.Background(), []byte("paper body"), "p1", func(claim.Claim) {})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	node, ok, err := graph.GetNode(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c1", node.Props["claim_id"])
}

func TestProcessPaperStream_IdempotentOnRepeatedBytes(t *testing.T) {
	claims := []claim.Claim{claimWithEmbedding("c1", "first claim", []float32{1, 0, 0})}
	svc, idx, _ := newTestService(t, claims)

	paper := []byte("identical paper bytes")
	var count int
	handler := func(claim.Claim) { count++ }

	require.NoError(t, svc.ProcessPaperStream(context.Background(), paper, "p1", handler))
	require.NoError(t, svc.ProcessPaperStream(context.Background(), paper, "p1", handler))

	assert.Equal(t, 1, count, "second call with identical paper bytes must be skipped")
	assert.Equal(t, 1, idx.Len(), "claim must only be indexed once")
}

func TestProcessPaperStream_AdjudicatesAndPersistsRelationship(t *testing.T) {
	claims := []claim.Claim{
		claimWithEmbedding("c1", "first claim", []float32{1, 0, 0}),
		claimWithEmbedding("c2", "second claim", []float32{0.9, 0.1, 0}),
	}
	svc, _, graph := newTestService(t, claims)

	require.NoError(t, svc.ProcessPaperStream(context.Background(), []byte("paper body"), "p1", func(claim.Claim) {}))

	edges, err := graph.Edges(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, edges, "adjudicating two mutually-neighboring claims must persist at least one edge")
}

func TestProcessPaperStream_ClaimRegistryServesNeighborLookup(t *testing.T) {
	claims := []claim.Claim{
		claimWithEmbedding("c1", "alpha finding", []float32{1, 0, 0}),
		claimWithEmbedding("c2", "beta finding", []float32{0.9, 0.1, 0}),
	}
	svc, _, _ := newTestService(t, claims)

	require.NoError(t, svc.ProcessPaperStream(context.Background(), []byte("paper body"), "p1", func(claim.Claim) {}))

	target, ok := svc.getClaim("c2")
	require.True(t, ok)
	assert.Equal(t, "beta finding", target.Text)
}

func TestProcessPaperStream_EmbedsClaimsMissingVectors(t *testing.T) {
	claims := []claim.Claim{
		{ID: "c1", Type: claim.TypeFinding, Text: "a finding with no embedding yet", Confidence: 0.7},
	}
	idx := newFakeIndex()
	log, err := graphstore.OpenEventLog("")
	require.NoError(t, err)
	graph := graphstore.NewMemory(log)
	mirror := causalgraph.New()
	store, err := paircache.NewMemoryStore("")
	require.NoError(t, err)
	engine := paircache.New(store, idx, &fakeAdjudicator{}, calibration.New(""))

	svc := New(&fakeExtractor{claims: claims}, embedding.NewDeterministic(32, 1), idx, graph, mirror, engine)
	require.NoError(t, svc.ProcessPaperStream(context.Background(), []byte("paper body"), "p1", func(claim.Claim) {}))

	stored, ok := svc.getClaim("c1")
	require.True(t, ok)
	assert.NotEmpty(t, stored.Embedding)
}

func TestProcessPaperStream_ExtractionErrorPropagates(t *testing.T) {
	idx := newFakeIndex()
	log, err := graphstore.OpenEventLog("")
	require.NoError(t, err)
	graph := graphstore.NewMemory(log)
	mirror := causalgraph.New()
	store, err := paircache.NewMemoryStore("")
	require.NoError(t, err)
	engine := paircache.New(store, idx, &fakeAdjudicator{}, calibration.New(""))

	svc := New(erroringExtractor{}, nil, idx, graph, mirror, engine)
	err = svc.ProcessPaperStream(context.Background(), []byte("x"), "p1", func(claim.Claim) {})
	assert.Error(t, err)
}

type erroringExtractor struct{}

func (erroringExtractor) Extract(ctx context.Context, text, paperID string) ([]claim.Claim, error) {
	return nil, assertErr
}

var assertErr = extractorError("boom")

type extractorError string

func (e extractorError) Error() string { return string(e) }

var _ extractor.Extractor = erroringExtractor{}
