package storage

import (
	"context"
	"fmt"

	"github.com/covercompare/engine/internal/canon"
)

// ListCoverageStandards satisfies canon.standardLoader: the full,
// process-wide canonical coverage_standard table, loaded once at startup
// by canon.Registry.Load.
func (db *DB) ListCoverageStandards(ctx context.Context) ([]canon.CoverageStandard, error) {
	rows, err := db.queryPool.Query(ctx, `SELECT coverage_code, coverage_name FROM coverage_standard`)
	if err != nil {
		return nil, fmt.Errorf("storage: list coverage_standard: %w", err)
	}
	defer rows.Close()

	var out []canon.CoverageStandard
	for rows.Next() {
		var s canon.CoverageStandard
		if err := rows.Scan(&s.CoverageCode, &s.CoverageName); err != nil {
			return nil, fmt.Errorf("storage: scan coverage_standard row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate coverage_standard: %w", err)
	}
	return out, nil
}
