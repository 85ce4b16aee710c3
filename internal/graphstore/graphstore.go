// Package graphstore persists claim nodes and relationship edges behind a
// uniform interface, backed by an append-only JSONL event log so the graph
// can be rebuilt without re-running adjudication. Grounded on the teacher's
// persistence/databases.GraphDB and its memory/postgres implementations,
// generalized from generic Node/string props to the claim/edge domain.
package graphstore

import (
	"context"
	"errors"
	"fmt"

	"claimgraph/internal/claim"
)

// ErrMissingPrimaryKey is returned by AddNode when props lacks the label's
// primary-key field ("{label}_id").
var ErrMissingPrimaryKey = errors.New("graphstore: missing primary key field")

// ErrUnknownEndpoint is returned by AddEdge when either endpoint is absent.
var ErrUnknownEndpoint = errors.New("graphstore: unknown edge endpoint")

// Node is a persisted graph vertex. Label is typically "claim"; Props
// carries the claim's fields plus its primary key, "{label}_id".
type Node struct {
	ID     string
	Label  string
	Props  map[string]any
}

// GraphDB is the uniform storage interface every backend implements.
type GraphDB interface {
	AddNode(ctx context.Context, label string, props map[string]any) (string, error)
	AddEdge(ctx context.Context, fromID, toID string, relType claim.Verdict, props map[string]any) (string, error)
	GetNode(ctx context.Context, id string) (Node, bool, error)
	GetNeighbors(ctx context.Context, id string, relType string) ([]string, error)
	Edges(ctx context.Context) ([]claim.Edge, error)
	Close() error
}

// AddClaim writes a claim as a node, keyed by its "claim_id" primary key
// field, mirroring spec §4.H's add_claim operation.
func AddClaim(ctx context.Context, g GraphDB, c claim.Claim) (string, error) {
	props := map[string]any{
		"claim_id":   c.ID,
		"paper_id":   c.PaperID,
		"section":    c.Section,
		"claim_type": string(c.Type),
		"text":       c.Text,
		"confidence": c.Confidence,
	}
	return g.AddNode(ctx, "claim", props)
}

// AddRelationship serialises a DebateResult's citations and transcript onto
// a new edge between two claim nodes, mirroring spec §4.H's
// add_relationship operation.
func AddRelationship(ctx context.Context, g GraphDB, fromID, toID string, result claim.DebateResult) (string, error) {
	props := map[string]any{
		"confidence": result.CalibratedConfidence,
		"citations":  result.Citations,
		"transcript": result.Transcript,
	}
	return g.AddEdge(ctx, fromID, toID, result.Verdict, props)
}

func primaryKeyField(label string) string {
	return label + "_id"
}

func validatePrimaryKey(label string, props map[string]any) (string, error) {
	key := primaryKeyField(label)
	v, ok := props[key]
	if !ok {
		return "", fmt.Errorf("%w: label %q requires field %q", ErrMissingPrimaryKey, label, key)
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: label %q field %q must be a non-empty string", ErrMissingPrimaryKey, label, key)
	}
	return id, nil
}

func edgeFromProps(fromID, toID string, relType claim.Verdict, props map[string]any) claim.Edge {
	e := claim.Edge{FromID: fromID, ToID: toID, RelationType: relType}
	if conf, ok := props["confidence"].(float64); ok {
		e.Confidence = conf
	}
	if cites, ok := props["citations"].([]string); ok {
		e.Citations = cites
	}
	if tr, ok := props["transcript"].([]string); ok {
		e.Transcript = tr
	}
	return e
}
