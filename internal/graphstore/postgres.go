package graphstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"claimgraph/internal/claim"
)

// Postgres is a GraphDB backed by two tables, grounded on the teacher's
// pgGraph: best-effort DDL on construction, JSONB props, ON CONFLICT
// upsert semantics for nodes.
type Postgres struct {
	pool *pgxpool.Pool
	log  *EventLog
}

// NewPostgres constructs a Postgres-backed GraphDB, creating its tables if
// they don't already exist.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, log *EventLog) (*Postgres, error) {
	if log == nil {
		log = &EventLog{}
	}
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS claim_nodes (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  props JSONB NOT NULL DEFAULT '{}'::jsonb
);
`)
	if err != nil {
		return nil, fmt.Errorf("graphstore: create claim_nodes: %w", err)
	}
	_, err = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS claim_edges (
  id BIGSERIAL PRIMARY KEY,
  source TEXT NOT NULL,
  rel_type TEXT NOT NULL,
  target TEXT NOT NULL,
  props JSONB NOT NULL DEFAULT '{}'::jsonb
);
`)
	if err != nil {
		return nil, fmt.Errorf("graphstore: create claim_edges: %w", err)
	}
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS claim_edges_src_rel ON claim_edges(source, rel_type)`)
	return &Postgres{pool: pool, log: log}, nil
}

func (g *Postgres) AddNode(ctx context.Context, label string, props map[string]any) (string, error) {
	id, err := validatePrimaryKey(label, props)
	if err != nil {
		return "", err
	}
	_, err = g.pool.Exec(ctx, `
INSERT INTO claim_nodes(id, label, props) VALUES($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET label=EXCLUDED.label, props=EXCLUDED.props
`, id, label, props)
	if err != nil {
		return "", fmt.Errorf("graphstore: upsert node: %w", err)
	}
	return id, g.log.Append(Event{Kind: EventAddNode, NodeID: id, Label: label, Props: props})
}

func (g *Postgres) AddEdge(ctx context.Context, fromID, toID string, relType claim.Verdict, props map[string]any) (string, error) {
	var exists int
	err := g.pool.QueryRow(ctx,
		`SELECT count(*) FROM claim_nodes WHERE id = $1 OR id = $2`, fromID, toID,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("graphstore: check endpoints: %w", err)
	}
	if exists < 2 {
		return "", ErrUnknownEndpoint
	}

	var id int64
	err = g.pool.QueryRow(ctx, `
INSERT INTO claim_edges(source, rel_type, target, props) VALUES($1,$2,$3,$4) RETURNING id
`, fromID, string(relType), toID, props).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("graphstore: insert edge: %w", err)
	}
	edgeID := fmt.Sprintf("%d", id)
	return edgeID, g.log.Append(Event{
		Kind: EventAddEdge, FromID: fromID, ToID: toID, RelType: string(relType), Props: props,
	})
}

func (g *Postgres) GetNode(ctx context.Context, id string) (Node, bool, error) {
	row := g.pool.QueryRow(ctx, `SELECT label, props FROM claim_nodes WHERE id=$1`, id)
	var label string
	var props map[string]any
	if err := row.Scan(&label, &props); err != nil {
		return Node{}, false, nil
	}
	return Node{ID: id, Label: label, Props: props}, true, nil
}

func (g *Postgres) GetNeighbors(ctx context.Context, id string, relType string) ([]string, error) {
	var rows pgx.Rows
	var err error
	if relType != "" {
		rows, err = g.pool.Query(ctx, `SELECT DISTINCT target FROM claim_edges WHERE source=$1 AND rel_type=$2 ORDER BY target`, id, relType)
	} else {
		rows, err = g.pool.Query(ctx, `SELECT DISTINCT target FROM claim_edges WHERE source=$1 ORDER BY target`, id)
	}
	if err != nil {
		return nil, fmt.Errorf("graphstore: query neighbors: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (g *Postgres) Edges(ctx context.Context) ([]claim.Edge, error) {
	rows, err := g.pool.Query(ctx, `SELECT source, rel_type, target, props FROM claim_edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("graphstore: query edges: %w", err)
	}
	defer rows.Close()

	var out []claim.Edge
	for rows.Next() {
		var from, rel, to string
		var props map[string]any
		if err := rows.Scan(&from, &rel, &to, &props); err != nil {
			return nil, err
		}
		e := claim.Edge{FromID: from, ToID: to, RelationType: claim.Verdict(rel)}
		if conf, ok := props["confidence"].(float64); ok {
			e.Confidence = conf
		}
		if cites, ok := props["citations"].([]any); ok {
			e.Citations = toStringSlice(cites)
		}
		if tr, ok := props["transcript"].([]any); ok {
			e.Transcript = toStringSlice(tr)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func toStringSlice(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (g *Postgres) Close() error {
	g.pool.Close()
	return g.log.Close()
}

var _ GraphDB = (*Postgres)(nil)
