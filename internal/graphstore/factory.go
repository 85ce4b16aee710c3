package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"claimgraph/internal/config"
)

// NewFromConfig selects and constructs a GraphDB backend from
// configuration: memory (default, in-process map store) or postgres.
func NewFromConfig(ctx context.Context, cfg config.GraphConfig) (GraphDB, error) {
	log, err := OpenEventLog(cfg.EventLogPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemory(log), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("graphstore: postgres backend requires dsn")
		}
		pool, err := newPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("graphstore: connect postgres: %w", err)
		}
		return NewPostgres(ctx, pool, log)
	default:
		return nil, fmt.Errorf("graphstore: unsupported backend %q", cfg.Backend)
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
