// Package vectorindex maps claim ids to embedding vectors and answers
// approximate nearest-neighbour queries. The default backend is a
// hand-rolled HNSW graph (no HNSW library appears anywhere in the example
// corpus, so this core is stdlib-only; see
// DESIGN.md). Postgres and Qdrant backends in this package delegate to
// real client libraries instead.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"claimgraph/internal/embedding"
)

// ErrDuplicateID is returned by Index when claim_id already has a vector
// row. Invariant 1 of the data model requires a bijective id<->vector
// mapping, so a duplicate insert is a data-integrity error, not a no-op.
type ErrDuplicateID struct{ ID string }

func (e *ErrDuplicateID) Error() string { return fmt.Sprintf("vectorindex: duplicate id %q", e.ID) }

// Hit is one result of a nearest-neighbour search.
type Hit struct {
	ClaimID    string
	Similarity float64
	Metadata   map[string]string
}

// Index maps claim ids to vectors and answers top-K similarity queries.
type Index interface {
	Index(id string, vector []float32, metadata map[string]string) error
	SearchByVector(vector []float32, k int, minSimilarity float64) ([]Hit, error)
	SearchByText(ctx context.Context, embedder embedding.Provider, text string, k int, minSimilarity float64) ([]Hit, error)
	Reconstruct(id string) ([]float32, bool)
	Snapshot(path string) error
	Restore(path string) error
	Len() int
}

// Params controls the HNSW graph shape; defaults match the spec's tuned
// values (M=32, efConstruction=200, efSearch=64).
type Params struct {
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultParams returns the spec's tuned HNSW parameters.
func DefaultParams() Params {
	return Params{M: 32, EfConstruction: 200, EfSearch: 64}
}

type hnswNode struct {
	id        string
	vector    []float32
	metadata  map[string]string
	level     int
	neighbors [][]int // neighbors[layer] = node indices
}

// HNSW is a single-writer, many-reader approximate nearest-neighbour index
// over L2-derived similarity: similarity = 1/(1+L2_distance). Vectors are
// assumed already normalised; the index does not renormalise them.
type HNSW struct {
	mu sync.RWMutex

	params Params
	mL     float64
	rng    *rand.Rand

	nodes     []hnswNode
	idToIndex map[string]int
	entry     int // index of entry point, -1 if empty
}

// New constructs an empty HNSW index with the given parameters.
func New(p Params) *HNSW {
	if p.M <= 0 {
		p.M = 32
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = 200
	}
	if p.EfSearch <= 0 {
		p.EfSearch = 64
	}
	return &HNSW{
		params:    p,
		mL:        1.0 / math.Log(float64(p.M)),
		rng:       rand.New(rand.NewSource(1)),
		idToIndex: make(map[string]int),
		entry:     -1,
	}
}

func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Index appends a vector under claim_id, failing with ErrDuplicateID if the
// id is already present. The append is all-or-nothing: on ErrDuplicateID no
// metadata row is written either.
func (h *HNSW) Index(id string, vector []float32, metadata map[string]string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.idToIndex[id]; exists {
		return &ErrDuplicateID{ID: id}
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	level := h.randomLevel()
	idx := len(h.nodes)
	node := hnswNode{
		id:        id,
		vector:    vec,
		metadata:  md,
		level:     level,
		neighbors: make([][]int, level+1),
	}
	h.nodes = append(h.nodes, node)
	h.idToIndex[id] = idx

	if h.entry == -1 {
		h.entry = idx
		return nil
	}

	h.insertLinks(idx)
	if level > h.nodes[h.entry].level {
		h.entry = idx
	}
	return nil
}

func (h *HNSW) randomLevel() int {
	level := 0
	for h.rng.Float64() < 1.0/float64(h.params.M) && level < 32 {
		level++
	}
	return level
}

func (h *HNSW) insertLinks(idx int) {
	entry := h.entry
	entryLevel := h.nodes[entry].level
	nodeLevel := h.nodes[idx].level

	cur := entry
	for layer := entryLevel; layer > nodeLevel; layer-- {
		cur = h.greedyClosest(cur, h.nodes[idx].vector, layer)
	}

	maxM := h.params.M
	for layer := min(entryLevel, nodeLevel); layer >= 0; layer-- {
		candidates := h.searchLayer(cur, h.nodes[idx].vector, h.params.EfConstruction, layer)
		selected := selectNeighbors(candidates, maxM)
		h.nodes[idx].neighbors[layer] = selected
		for _, nb := range selected {
			h.link(nb, idx, layer, maxM)
		}
		if len(candidates) > 0 {
			cur = candidates[0].idx
		}
	}
}

func (h *HNSW) link(a, b, layer, maxM int) {
	h.nodes[a].neighbors[layer] = appendUnique(h.nodes[a].neighbors[layer], b)
	if len(h.nodes[a].neighbors[layer]) > maxM {
		cands := make([]candidate, 0, len(h.nodes[a].neighbors[layer]))
		for _, n := range h.nodes[a].neighbors[layer] {
			cands = append(cands, candidate{idx: n, dist: l2(h.nodes[a].vector, h.nodes[n].vector)})
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
		keep := make([]int, 0, maxM)
		for i := 0; i < maxM && i < len(cands); i++ {
			keep = append(keep, cands[i].idx)
		}
		h.nodes[a].neighbors[layer] = keep
	}
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

type candidate struct {
	idx  int
	dist float64
}

func (h *HNSW) greedyClosest(from int, target []float32, layer int) int {
	cur := from
	curDist := l2(h.nodes[cur].vector, target)
	for {
		improved := false
		for _, nb := range h.neighborsAt(cur, layer) {
			d := l2(h.nodes[nb].vector, target)
			if d < curDist {
				cur = nb
				curDist = d
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

func (h *HNSW) neighborsAt(idx, layer int) []int {
	if layer >= len(h.nodes[idx].neighbors) {
		return nil
	}
	return h.nodes[idx].neighbors[layer]
}

// searchLayer performs a best-first search bounded by ef candidates,
// returning results sorted by ascending distance.
func (h *HNSW) searchLayer(entry int, target []float32, ef, layer int) []candidate {
	visited := map[int]bool{entry: true}
	entryDist := l2(h.nodes[entry].vector, target)
	candidates := []candidate{{entry, entryDist}}
	result := []candidate{{entry, entryDist}}

	for len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
		c := candidates[0]
		candidates = candidates[1:]

		sort.Slice(result, func(i, j int) bool { return result[i].dist < result[j].dist })
		if len(result) >= ef && c.dist > result[len(result)-1].dist {
			break
		}
		for _, nb := range h.neighborsAt(c.idx, layer) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d := l2(h.nodes[nb].vector, target)
			candidates = append(candidates, candidate{nb, d})
			result = append(result, candidate{nb, d})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].dist < result[j].dist })
	if len(result) > ef {
		result = result[:ef]
	}
	return result
}

func selectNeighbors(candidates []candidate, m int) []int {
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}

func l2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func similarity(dist float64) float64 { return 1.0 / (1.0 + dist) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SearchByVector returns up to k hits with similarity >= minSimilarity,
// sorted by descending similarity.
func (h *HNSW) SearchByVector(vector []float32, k int, minSimilarity float64) ([]Hit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.nodes) == 0 {
		return nil, nil
	}
	ef := h.params.EfSearch
	if k > ef {
		ef = k
	}

	cur := h.entry
	for layer := h.nodes[h.entry].level; layer > 0; layer-- {
		cur = h.greedyClosest(cur, vector, layer)
	}
	candidates := h.searchLayer(cur, vector, ef, 0)

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		sim := similarity(c.dist)
		if sim < minSimilarity {
			continue
		}
		n := h.nodes[c.idx]
		hits = append(hits, Hit{ClaimID: n.id, Similarity: sim, Metadata: n.metadata})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ClaimID < hits[j].ClaimID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchByText embeds text via the given provider, then delegates to
// SearchByVector.
func (h *HNSW) SearchByText(ctx context.Context, embedder embedding.Provider, text string, k int, minSimilarity float64) ([]Hit, error) {
	vecs, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("vectorindex: embedding provider returned no vector")
	}
	return h.SearchByVector(vecs[0], k, minSimilarity)
}

// Reconstruct returns the stored vector for a claim id, since HNSW-flat
// supports exact reconstruction of inserted vectors.
func (h *HNSW) Reconstruct(id string) ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	idx, ok := h.idToIndex[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(h.nodes[idx].vector))
	copy(out, h.nodes[idx].vector)
	return out, true
}

var _ Index = (*HNSW)(nil)
