// Package evidence implements the Policy Evidence Store (spec.md §4.8):
// keyword-scored retrieval of policy document spans for cancer scope
// detection, backed by ILIKE keyword matching over the policy_span
// table.
//
// Grounded in original_source/apps/api/app/ah/policy_evidence_store.py.
package evidence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covercompare/engine/internal/cancer"
	"github.com/covercompare/engine/internal/model"
)

// cancerKeywords is the closed list of terms that mark a policy span as
// cancer-relevant (spec.md §4.8). A span must contain at least one of
// these to be eligible for recall — this is a precision guard, not a
// substitute for the deterministic scope detector in internal/cancer.
var cancerKeywords = []string{
	"암", "악성신생물", "유사암", "제자리암", "경계성종양", "기타피부암", "갑상선암", "상피내암",
}

// Store satisfies cancer.PolicyEvidenceFetcher against Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetPolicySpansForCancer retrieves up to limit policy spans for insurer,
// ranked by keyword-hit count descending then page ascending (spec.md
// §4.8: most cancer-relevant spans first, tie-broken by document order).
// Retrieval is plain keyword scoring over policy_span.span_text — no
// embeddings, no similarity search, in keeping with the constitutional
// prohibition on statistical recall in this path.
func (s *Store) GetPolicySpansForCancer(ctx context.Context, insurer model.InsurerCode, limit int) ([]cancer.PolicySpan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_id, page, span_text,
		       (
		           SELECT count(*)
		           FROM unnest($2::text[]) kw
		           WHERE span_text ILIKE '%' || kw || '%'
		       ) AS hit_count
		FROM policy_span
		WHERE insurer_code = $1
		  AND span_text ILIKE ANY (
		      SELECT '%' || kw || '%' FROM unnest($2::text[]) kw
		  )
		ORDER BY hit_count DESC, page ASC
		LIMIT $3
	`, string(insurer), cancerKeywords, limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: query policy spans: %w", err)
	}
	defer rows.Close()

	var out []cancer.PolicySpan
	for rows.Next() {
		var span cancer.PolicySpan
		var hitCount int
		if err := rows.Scan(&span.DocID, &span.Page, &span.Text, &hitCount); err != nil {
			return nil, fmt.Errorf("evidence: scan policy span: %w", err)
		}
		out = append(out, span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evidence: iterate policy spans: %w", err)
	}
	return out, nil
}
