// Package scopegroup implements the Policy Scope Group Engine (spec.md
// §4.12): disease code groups, their memberships, and the coverage
// disease-scope links the Multi-Party Overlap engine reads.
//
// Grounded in spec.md §4.12. Write-side operations are admin/ingestion
// only; the core compare path only ever reads via LoadGroupCodes.
package scopegroup

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

// insuranceConceptMarkers are label substrings that imply an insurance
// concept rather than a neutral medical classification (spec.md §4.12):
// a neutral group (insurer == nil) must never be named after one.
var insuranceConceptMarkers = []string{"유사암", "소액암"}

// Engine is the read-write surface for disease code groups.
type Engine struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool}
}

// CreateDiseaseCodeGroup implements spec.md §4.12. Refuses a neutral group
// (insurer == nil) whose label implies an insurance concept, and refuses
// an empty basis_span. Idempotent on group_id.
func (e *Engine) CreateDiseaseCodeGroup(ctx context.Context, g model.DiseaseCodeGroup) error {
	if g.Insurer == nil {
		for _, marker := range insuranceConceptMarkers {
			if strings.Contains(g.Label, marker) {
				return apperr.PolicyViolation(
					"scopegroup: neutral group label implies an insurance concept",
					map[string]any{"label": g.Label, "marker": marker},
				)
			}
		}
	}
	if strings.TrimSpace(g.BasisSpan) == "" {
		return apperr.Validation("scopegroup: basis_span must not be empty")
	}

	var insurer *string
	if g.Insurer != nil {
		s := string(*g.Insurer)
		insurer = &s
	}

	_, err := e.pool.Exec(ctx, `
		INSERT INTO disease_code_group (group_id, label, insurer_code, version_tag, basis_doc_id, basis_page, basis_span)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (group_id) DO NOTHING
	`, g.GroupID, g.Label, insurer, g.VersionTag, g.BasisDocID, g.BasisPage, g.BasisSpan)
	if err != nil {
		return fmt.Errorf("scopegroup: create disease code group: %w", err)
	}
	return nil
}

// AddDiseaseCodeGroupMember implements spec.md §4.12: exactly one of
// {single code, (code_from, code_to) range} must be set.
func (e *Engine) AddDiseaseCodeGroupMember(ctx context.Context, m model.DiseaseCodeGroupMember) error {
	isSingle := m.Code != nil
	isRange := m.CodeFrom != nil && m.CodeTo != nil
	if isSingle == isRange {
		return apperr.Validation("scopegroup: exactly one of {code, (code_from, code_to)} is required")
	}

	_, err := e.pool.Exec(ctx, `
		INSERT INTO disease_code_group_member (group_id, code, code_from, code_to)
		VALUES ($1, $2, $3, $4)
	`, m.GroupID, m.Code, m.CodeFrom, m.CodeTo)
	if err != nil {
		return fmt.Errorf("scopegroup: add disease code group member: %w", err)
	}
	return nil
}

// CreateCoverageDiseaseScope implements spec.md §4.12: links a coverage's
// mapped slots to an include (and optional exclude) disease code group.
func (e *Engine) CreateCoverageDiseaseScope(ctx context.Context, mappedID, includeGroupID string, excludeGroupID *string, spanText, extractionRuleID string) error {
	if strings.TrimSpace(spanText) == "" {
		return apperr.Validation("scopegroup: span_text must not be empty")
	}
	if includeGroupID == "" {
		return apperr.Validation("scopegroup: include_group_id is required")
	}

	_, err := e.pool.Exec(ctx, `
		INSERT INTO coverage_disease_scope (mapped_id, include_group_id, exclude_group_id, span_text, extraction_rule_id)
		VALUES ($1, $2, $3, $4, $5)
	`, mappedID, includeGroupID, excludeGroupID, spanText, extractionRuleID)
	if err != nil {
		return fmt.Errorf("scopegroup: create coverage disease scope: %w", err)
	}
	return nil
}

// UpdateProposalSlotsDiseaseScopeNorm writes only the group references
// (never raw code arrays) onto proposal_coverage_slots (spec.md §4.12).
func (e *Engine) UpdateProposalSlotsDiseaseScopeNorm(ctx context.Context, mappedID, includeGroupID string, excludeGroupID *string) error {
	_, err := e.pool.Exec(ctx, `
		UPDATE proposal_coverage_slots
		SET disease_scope_include_group_id = $2, disease_scope_exclude_group_id = $3
		WHERE mapped_id = $1
	`, mappedID, includeGroupID, excludeGroupID)
	if err != nil {
		return fmt.Errorf("scopegroup: update proposal slots disease scope norm: %w", err)
	}
	return nil
}

// LoadGroupCodes implements spec.md §4.12's read-side: returns the
// explicit code set for group_id. Ranges currently resolve to their
// endpoints only (SPEC_FULL.md Open Question #2) — full KCD-7 range
// expansion is future work, tracked against disease_code_master.
func (e *Engine) LoadGroupCodes(ctx context.Context, groupID string) ([]string, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT code, code_from, code_to FROM disease_code_group_member WHERE group_id = $1
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("scopegroup: load group codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code, codeFrom, codeTo *string
		if err := rows.Scan(&code, &codeFrom, &codeTo); err != nil {
			return nil, fmt.Errorf("scopegroup: scan group member: %w", err)
		}
		if code != nil {
			codes = append(codes, *code)
		} else if codeFrom != nil && codeTo != nil {
			codes = append(codes, *codeFrom, *codeTo)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scopegroup: iterate group members: %w", err)
	}
	return codes, nil
}
