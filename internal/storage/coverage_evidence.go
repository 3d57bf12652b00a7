package storage

import (
	"context"
	"fmt"

	"github.com/covercompare/engine/internal/model"
)

// GetCoverageEvidence satisfies compare.EvidenceReader: every coverage_evidence
// row registered against a resolved canonical code for one insurer, read
// from the read-only query pool. Ordering within a DocumentType group is
// applied by the caller (internal/compare/evidence_aggregate.go); this
// query only needs to return a stable superset.
func (db *DB) GetCoverageEvidence(ctx context.Context, insurer model.InsurerCode, canonicalCode string) ([]model.CoverageEvidence, error) {
	rows, err := db.queryPool.Query(ctx, `
		SELECT insurer_code, source_doc_type, source_doc_id, source_page, excerpt, canonical_coverage_code, evidence_type
		FROM coverage_evidence
		WHERE insurer_code = $1 AND canonical_coverage_code = $2
		ORDER BY source_page ASC
	`, string(insurer), canonicalCode)
	if err != nil {
		return nil, fmt.Errorf("storage: query coverage_evidence: %w", err)
	}
	defer rows.Close()

	var out []model.CoverageEvidence
	for rows.Next() {
		var ev model.CoverageEvidence
		if err := rows.Scan(&ev.InsurerCode, &ev.SourceDocType, &ev.SourceDocID, &ev.SourcePage, &ev.Excerpt, &ev.CanonicalCoverageCode, &ev.EvidenceType); err != nil {
			return nil, fmt.Errorf("storage: scan coverage_evidence row: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate coverage_evidence: %w", err)
	}
	return out, nil
}
