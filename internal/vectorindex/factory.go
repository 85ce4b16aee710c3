package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"claimgraph/internal/config"
)

// NewFromConfig selects and constructs an Index backend from configuration: memory
// (default, in-process HNSW), postgres (pgvector), or qdrant.
func NewFromConfig(ctx context.Context, cfg config.VectorIndexConfig) (Index, error) {
	switch cfg.Backend {
	case "", "memory":
		return New(Params{M: cfg.M, EfConstruction: cfg.EfConstruction, EfSearch: cfg.EfSearch}), nil
	case "postgres", "pgvector":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("vectorindex: postgres backend requires dsn")
		}
		pool, err := newPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("vectorindex: connect postgres: %w", err)
		}
		return NewPostgres(ctx, pool, cfg.Dimensions, cfg.Metric)
	case "qdrant":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("vectorindex: qdrant backend requires dsn")
		}
		return NewQdrant(cfg.DSN, cfg.Collection, cfg.Dimensions, cfg.Metric)
	default:
		return nil, fmt.Errorf("vectorindex: unsupported backend %q", cfg.Backend)
	}
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pcfg.MaxConns = 8
	pcfg.MaxConnLifetime = time.Hour
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
