// Package storage provides the PostgreSQL storage layer for the coverage
// comparison engine.
//
// It manages two separate connection pools against the same database
// (SPEC_FULL.md §D.2): a read-only query pool used by every comparison-path
// read (Alias Index load, Policy Evidence Store, Proposal Universe reads,
// canonical registry load) and a read-write admin pool used exclusively by
// the Admin Mapping Workbench and ingestion jobs. Every connection handed
// out by the query pool starts its session in READ ONLY mode so a bug in
// the comparison path can never write back into core tables — the
// compare/resolve path is read-only by construction, not just by
// convention.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the two pools described above.
type DB struct {
	queryPool *pgxpool.Pool
	adminPool *pgxpool.Pool
	logger    *slog.Logger
}

// New opens both pools. queryDSN and adminDSN may point at the same
// database (they typically do); they are kept separate so the two pools
// can be sized, credentialed, and failed over independently.
func New(ctx context.Context, queryDSN, adminDSN string, logger *slog.Logger) (*DB, error) {
	queryCfg, err := pgxpool.ParseConfig(queryDSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parse query pool DSN: %w", err)
	}
	// Every connection on the query pool begins its session READ ONLY, so
	// even a programming error in internal/compare cannot mutate state.
	queryCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
		return err
	}

	queryPool, err := pgxpool.NewWithConfig(ctx, queryCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create query pool: %w", err)
	}
	if err := queryPool.Ping(ctx); err != nil {
		queryPool.Close()
		return nil, fmt.Errorf("storage: ping query pool: %w", err)
	}

	adminPool, err := pgxpool.New(ctx, adminDSN)
	if err != nil {
		queryPool.Close()
		return nil, fmt.Errorf("storage: create admin pool: %w", err)
	}
	if err := adminPool.Ping(ctx); err != nil {
		queryPool.Close()
		adminPool.Close()
		return nil, fmt.Errorf("storage: ping admin pool: %w", err)
	}

	return &DB{queryPool: queryPool, adminPool: adminPool, logger: logger}, nil
}

// QueryPool returns the read-only pool, for internal/aliasindex,
// internal/evidence, internal/universe, internal/scopegroup, and
// internal/canon.
func (db *DB) QueryPool() *pgxpool.Pool {
	return db.queryPool
}

// AdminPool returns the read-write pool, for internal/admin and
// internal/admin/suggest's offline reindex job.
func (db *DB) AdminPool() *pgxpool.Pool {
	return db.adminPool
}

// Ping checks connectivity on both pools.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.queryPool.Ping(ctx); err != nil {
		return fmt.Errorf("storage: ping query pool: %w", err)
	}
	if err := db.adminPool.Ping(ctx); err != nil {
		return fmt.Errorf("storage: ping admin pool: %w", err)
	}
	return nil
}

// Close shuts down both pools.
func (db *DB) Close() {
	db.queryPool.Close()
	db.adminPool.Close()
}
