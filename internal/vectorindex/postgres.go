package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"claimgraph/internal/embedding"
)

// PostgresIndex stores claim vectors in a pgvector-backed table, for
// deployments that want the vector index durable without a separate ANN
// service. Grounded on the teacher's postgres_vector.go backend shape.
type PostgresIndex struct {
	pool       *pgxpool.Pool
	dimensions int
	metric     string
}

// NewPostgres constructs a PostgresIndex, creating the pgvector extension
// and backing table if they do not already exist.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, dimensions int, metric string) (*PostgresIndex, error) {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return nil, fmt.Errorf("vectorindex: create vector extension: %w", err)
	}
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	_, err := pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS claim_embeddings (
  claim_id TEXT PRIMARY KEY,
  vec %s,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
`, vecType))
	if err != nil {
		return nil, fmt.Errorf("vectorindex: create claim_embeddings table: %w", err)
	}
	return &PostgresIndex{pool: pool, dimensions: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}, nil
}

func (p *PostgresIndex) Index(id string, vector []float32, metadata map[string]string) error {
	ctx := context.Background()
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM claim_embeddings WHERE claim_id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("vectorindex: check existing id: %w", err)
	}
	if exists {
		return &ErrDuplicateID{ID: id}
	}
	_, err := p.pool.Exec(ctx, `INSERT INTO claim_embeddings(claim_id, vec, metadata) VALUES($1, $2::vector, $3)`,
		id, toVectorLiteral(vector), metadata)
	return err
}

func (p *PostgresIndex) SearchByVector(vector []float32, k int, minSimilarity float64) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	vecLit := toVectorLiteral(vector)
	scoreExpr := "1 - (vec <=> $1::vector)"
	op := "<=>"
	if p.metric == "l2" || p.metric == "euclidean" {
		scoreExpr = "1.0 / (1.0 + (vec <-> $1::vector))"
		op = "<->"
	}
	query := fmt.Sprintf(`SELECT claim_id, %s AS score, metadata FROM claim_embeddings ORDER BY vec %s $1::vector LIMIT $2`, scoreExpr, op)
	rows, err := p.pool.Query(context.Background(), query, vecLit, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var md map[string]string
		if err := rows.Scan(&h.ClaimID, &h.Similarity, &md); err != nil {
			return nil, err
		}
		if h.Similarity < minSimilarity {
			continue
		}
		h.Metadata = md
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p *PostgresIndex) SearchByText(ctx context.Context, embedder embedding.Provider, text string, k int, minSimilarity float64) ([]Hit, error) {
	vecs, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("vectorindex: embedding provider returned no vector")
	}
	return p.SearchByVector(vecs[0], k, minSimilarity)
}

func (p *PostgresIndex) Reconstruct(id string) ([]float32, bool) {
	var lit string
	err := p.pool.QueryRow(context.Background(), `SELECT vec::text FROM claim_embeddings WHERE claim_id=$1`, id).Scan(&lit)
	if err != nil {
		return nil, false
	}
	return parseVectorLiteral(lit), true
}

// Snapshot and Restore are no-ops for the Postgres backend: durability is
// delegated to the database itself.
func (p *PostgresIndex) Snapshot(string) error { return nil }
func (p *PostgresIndex) Restore(string) error  { return nil }

func (p *PostgresIndex) Len() int {
	var n int
	_ = p.pool.QueryRow(context.Background(), `SELECT count(*) FROM claim_embeddings`).Scan(&n)
	return n
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	b := strings.Builder{}
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(fmt.Sprintf("%g", x))
	}
	b.WriteByte(']')
	return b.String()
}

func parseVectorLiteral(lit string) []float32 {
	lit = strings.TrimPrefix(lit, "[")
	lit = strings.TrimSuffix(lit, "]")
	if lit == "" {
		return nil
	}
	parts := strings.Split(lit, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		var f float32
		fmt.Sscanf(strings.TrimSpace(p), "%g", &f)
		out = append(out, f)
	}
	return out
}

var _ Index = (*PostgresIndex)(nil)
