// Package causalgraph maintains an in-memory directed multigraph mirror of
// the persisted claim graph and answers topology queries — contradictions,
// unsupported claims, frontier edges, evidence paths, and importance — in
// interactive time. Grounded on causal_graph.py's CausalGraphV2, backed by
// a hand-rolled adjacency structure (stdlib-justified: no graph-algorithms
// library is imported by any example in the corpus).
package causalgraph

import (
	"context"
	"sync"

	"claimgraph/internal/claim"
)

// GapType classifies a frontier edge's research-gap category, per
// causal_graph.py's _classify_gap_type.
type GapType string

const (
	GapMethodological GapType = "methodological_gap"
	GapValidationNeeded GapType = "validation_needed"
	GapFrontierSynthesis GapType = "frontier_synthesis"
)

// Contradiction is one (from, to, citations) triple where a high-confidence
// refutes edge connects two claims.
type Contradiction struct {
	FromID    string
	ToID      string
	Citations []string
}

// FrontierEdge is a low-confidence relationship between two well-connected
// claims, tagged with the kind of research gap it represents.
type FrontierEdge struct {
	FromID     string
	ToID       string
	Confidence float64
	Relation   claim.Verdict
	GapType    GapType
}

type edgeRecord struct {
	toID       string
	relation   claim.Verdict
	confidence float64
	citations  []string
	transcript []string
}

// Graph is the in-memory topology mirror. Safe for concurrent use; the
// backing store's own durability is handled by the caller, which writes to
// both the graphstore.GraphDB and this mirror on every mutation.
type Graph struct {
	mu sync.RWMutex

	nodeSeq  []string
	nodes    map[string]claim.Claim
	outEdges map[string][]edgeRecord
	inEdges  map[string][]edgeRecord
	degree   map[string]int

	contradictionCache  []Contradiction
	cacheValid          bool
	cachedMinConfidence float64
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:               map[string]claim.Claim{},
		outEdges:            map[string][]edgeRecord{},
		inEdges:             map[string][]edgeRecord{},
		degree:              map[string]int{},
		cachedMinConfidence: -1,
	}
}

// AddClaim mirrors a claim node into the in-memory graph. Callers are
// expected to have already persisted it via graphstore.AddClaim.
func (g *Graph) AddClaim(c claim.Claim) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[c.ID]; !exists {
		g.nodeSeq = append(g.nodeSeq, c.ID)
	}
	g.nodes[c.ID] = c
}

// AddRelationship mirrors a debate result as a directed edge and
// invalidates the contradiction cache, per spec §4.H.
func (g *Graph) AddRelationship(fromID, toID string, result claim.DebateResult) {
	rec := edgeRecord{
		toID:       toID,
		relation:   result.Verdict,
		confidence: result.CalibratedConfidence,
		citations:  result.Citations,
		transcript: result.Transcript,
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outEdges[fromID] = append(g.outEdges[fromID], rec)
	g.inEdges[toID] = append(g.inEdges[toID], edgeRecord{
		toID: fromID, relation: result.Verdict, confidence: result.CalibratedConfidence,
		citations: result.Citations, transcript: result.Transcript,
	})
	g.degree[fromID]++
	g.degree[toID]++
	g.cacheValid = false
}

// Sync replays persisted nodes and edges (e.g. from graphstore.ReplayEvents
// or a GraphDB.Edges() scan) into a fresh mirror, used to rebuild state
// after a restart without re-running adjudication.
func Sync(ctx context.Context, g *Graph, claims []claim.Claim, edges []claim.Edge) {
	for _, c := range claims {
		g.AddClaim(c)
	}
	for _, e := range edges {
		g.AddRelationship(e.FromID, e.ToID, claim.DebateResult{
			Verdict:              e.RelationType,
			CalibratedConfidence: e.Confidence,
			Citations:            e.Citations,
			Transcript:           e.Transcript,
		})
	}
}
