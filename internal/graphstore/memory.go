package graphstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"claimgraph/internal/claim"
)

type memoryEdge struct {
	id      string
	fromID  string
	toID    string
	relType claim.Verdict
	props   map[string]any
}

// Memory is an in-process GraphDB backed by maps, grounded on the teacher's
// memoryGraph: RWMutex-guarded, edges keyed by (source, relation) the way
// memoryGraph keys on edgeKey{src, rel}, generalized to hold full edge
// metadata instead of opaque string props.
type Memory struct {
	mu       sync.RWMutex
	nodes    map[string]Node
	nodeSeq  []string // insertion order, for stable iteration
	edges    []*memoryEdge
	byFromRel map[edgeKey][]*memoryEdge
	log      *EventLog
	nextEdge int
}

type edgeKey struct {
	from string
	rel  string
}

// NewMemory constructs an in-memory GraphDB. log may be nil to disable
// event logging.
func NewMemory(log *EventLog) *Memory {
	if log == nil {
		log = &EventLog{}
	}
	return &Memory{
		nodes:     map[string]Node{},
		byFromRel: map[edgeKey][]*memoryEdge{},
		log:       log,
	}
}

func (m *Memory) AddNode(ctx context.Context, label string, props map[string]any) (string, error) {
	id, err := validatePrimaryKey(label, props)
	if err != nil {
		return "", err
	}
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}

	m.mu.Lock()
	if _, exists := m.nodes[id]; !exists {
		m.nodeSeq = append(m.nodeSeq, id)
	}
	m.nodes[id] = Node{ID: id, Label: label, Props: cp}
	m.mu.Unlock()

	return id, m.log.Append(Event{Kind: EventAddNode, NodeID: id, Label: label, Props: cp})
}

func (m *Memory) AddEdge(ctx context.Context, fromID, toID string, relType claim.Verdict, props map[string]any) (string, error) {
	m.mu.Lock()
	_, fromOK := m.nodes[fromID]
	_, toOK := m.nodes[toID]
	if !fromOK || !toOK {
		m.mu.Unlock()
		return "", ErrUnknownEndpoint
	}
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}
	m.nextEdge++
	id := fromID + "->" + toID + "#" + strconv.Itoa(m.nextEdge)
	e := &memoryEdge{id: id, fromID: fromID, toID: toID, relType: relType, props: cp}
	m.edges = append(m.edges, e)
	key := edgeKey{from: fromID, rel: string(relType)}
	m.byFromRel[key] = append(m.byFromRel[key], e)
	m.mu.Unlock()

	return id, m.log.Append(Event{
		Kind: EventAddEdge, FromID: fromID, ToID: toID, RelType: string(relType), Props: cp,
	})
}

func (m *Memory) GetNode(ctx context.Context, id string) (Node, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	return n, ok, nil
}

// GetNeighbors returns the sorted destination ids reachable from id via
// relType, mirroring memoryGraph.Neighbors. An empty relType matches edges
// of any relation type.
func (m *Memory) GetNeighbors(ctx context.Context, id string, relType string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	if relType != "" {
		for _, e := range m.byFromRel[edgeKey{from: id, rel: relType}] {
			if !seen[e.toID] {
				seen[e.toID] = true
				out = append(out, e.toID)
			}
		}
	} else {
		for _, e := range m.edges {
			if e.fromID == id && !seen[e.toID] {
				seen[e.toID] = true
				out = append(out, e.toID)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Edges returns every edge in insertion order, converted to claim.Edge.
func (m *Memory) Edges(ctx context.Context) ([]claim.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]claim.Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, edgeFromProps(e.fromID, e.toID, e.relType, e.props))
	}
	return out, nil
}

func (m *Memory) Close() error { return m.log.Close() }

var _ GraphDB = (*Memory)(nil)
