package causalgraph

import (
	"sort"

	"claimgraph/internal/claim"
)

const (
	pagerankDamping    = 0.85
	pagerankTolerance  = 1e-6
	pagerankMaxIter    = 100
)

// FindContradictions returns every (from, to, citations) triple where a
// refutes edge's confidence is at least minConfidence, ordered by ascending
// claim_id (from, then to) per spec §4.H's tie-break rule.
func (g *Graph) FindContradictions(minConfidence float64) []Contradiction {
	g.mu.RLock()
	if g.cacheValid && minConfidence == g.cachedMinConfidence {
		out := make([]Contradiction, len(g.contradictionCache))
		copy(out, g.contradictionCache)
		g.mu.RUnlock()
		return out
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Contradiction
	for _, fromID := range g.nodeSeq {
		for _, e := range g.outEdges[fromID] {
			if e.relation == claim.VerdictRefutes && e.confidence >= minConfidence {
				out = append(out, Contradiction{FromID: fromID, ToID: e.toID, Citations: e.citations})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromID != out[j].FromID {
			return out[i].FromID < out[j].FromID
		}
		return out[i].ToID < out[j].ToID
	})

	g.contradictionCache = out
	g.cachedMinConfidence = minConfidence
	g.cacheValid = true

	res := make([]Contradiction, len(out))
	copy(res, out)
	return res
}

// FindUnsupportedClaims returns the ids of claims with no incoming supports
// edge and total degree at least minDegree, ordered by ascending claim_id.
func (g *Graph) FindUnsupportedClaims(minDegree int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for _, id := range g.nodeSeq {
		supported := false
		for _, e := range g.inEdges[id] {
			if e.relation == claim.VerdictSupports {
				supported = true
				break
			}
		}
		if !supported && g.degree[id] >= minDegree {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// FindFrontierEdges returns low-confidence edges between well-connected
// claims, each tagged with its gap classification, ordered by ascending
// (from, to) claim_id.
func (g *Graph) FindFrontierEdges(maxConfidence float64, minDegree int) []FrontierEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []FrontierEdge
	for _, fromID := range g.nodeSeq {
		for _, e := range g.outEdges[fromID] {
			if e.confidence < maxConfidence && g.degree[fromID] >= minDegree && g.degree[e.toID] >= minDegree {
				out = append(out, FrontierEdge{
					FromID:     fromID,
					ToID:       e.toID,
					Confidence: e.confidence,
					Relation:   e.relation,
					GapType:    classifyGapType(e.relation, e.confidence),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromID != out[j].FromID {
			return out[i].FromID < out[j].FromID
		}
		return out[i].ToID < out[j].ToID
	})
	return out
}

// classifyGapType implements causal_graph.py's _classify_gap_type: a
// refuting edge below 0.7 confidence is a methodological gap; an uncertain
// edge needs validation; anything else still below the frontier threshold
// is a candidate for synthesis.
func classifyGapType(relation claim.Verdict, confidence float64) GapType {
	switch {
	case relation == claim.VerdictRefutes && confidence < 0.7:
		return GapMethodological
	case relation == claim.VerdictUncertain:
		return GapValidationNeeded
	default:
		return GapFrontierSynthesis
	}
}

// EvidencePath returns the shortest path between two claims in the
// undirected projection of the graph, or an empty slice if none exists.
func (g *Graph) EvidencePath(fromID, toID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if fromID == toID {
		if _, ok := g.nodes[fromID]; ok {
			return []string{fromID}
		}
		return nil
	}

	adjacency := g.undirectedAdjacency()
	visited := map[string]bool{fromID: true}
	parent := map[string]string{}
	queue := []string{fromID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		neighbors := adjacency[cur]
		sort.Strings(neighbors)
		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if next == toID {
				return reconstructPath(parent, fromID, toID)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func (g *Graph) undirectedAdjacency() map[string][]string {
	adj := map[string][]string{}
	for from, edges := range g.outEdges {
		for _, e := range edges {
			adj[from] = append(adj[from], e.toID)
			adj[e.toID] = append(adj[e.toID], from)
		}
	}
	return adj
}

func reconstructPath(parent map[string]string, fromID, toID string) []string {
	path := []string{toID}
	cur := toID
	for cur != fromID {
		cur = parent[cur]
		path = append(path, cur)
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ClaimImportance computes a claim's PageRank score over the directed
// mirror (damping 0.85, tolerance 1e-6, max 100 iterations), per spec
// §4.H. Returns 0 for an empty graph or an unknown claim id.
func (g *Graph) ClaimImportance(claimID string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodeSeq) == 0 {
		return 0
	}
	scores := g.pagerank()
	return scores[claimID]
}

// pagerank runs the power-iteration PageRank algorithm over the directed
// mirror. Dangling nodes (no outgoing edges) redistribute their mass
// uniformly, matching networkx.pagerank's default handling.
func (g *Graph) pagerank() map[string]float64 {
	n := len(g.nodeSeq)
	scores := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, id := range g.nodeSeq {
		scores[id] = initial
	}

	outDegree := make(map[string]int, n)
	for _, id := range g.nodeSeq {
		seen := map[string]bool{}
		for _, e := range g.outEdges[id] {
			seen[e.toID] = true
		}
		outDegree[id] = len(seen)
	}

	for iter := 0; iter < pagerankMaxIter; iter++ {
		next := make(map[string]float64, n)
		danglingMass := 0.0
		for _, id := range g.nodeSeq {
			if outDegree[id] == 0 {
				danglingMass += scores[id]
			}
		}
		base := (1 - pagerankDamping) / float64(n)
		redistributed := pagerankDamping * danglingMass / float64(n)
		for _, id := range g.nodeSeq {
			next[id] = base + redistributed
		}

		for _, id := range g.nodeSeq {
			if outDegree[id] == 0 {
				continue
			}
			seen := map[string]bool{}
			share := pagerankDamping * scores[id] / float64(outDegree[id])
			for _, e := range g.outEdges[id] {
				if seen[e.toID] {
					continue
				}
				seen[e.toID] = true
				next[e.toID] += share
			}
		}

		delta := 0.0
		for _, id := range g.nodeSeq {
			delta += abs(next[id] - scores[id])
		}
		scores = next
		if delta < pagerankTolerance {
			break
		}
	}
	return scores
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
