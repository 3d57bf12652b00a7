// Package universe implements the Proposal Universe read model (spec.md
// §4.7): the Universe Lock admission gate the Compare Orchestrator uses to
// decide whether a coverage even exists for an insurer before any
// comparison logic runs.
//
// Grounded in spec.md §4.7 and §9 (universe_recall.py in original_source,
// adapted from a CSV-backed reference into the DB-backed final design).
package universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covercompare/engine/internal/model"
)

// Store is the read-only query surface over proposal_coverage_universe,
// proposal_coverage_mapped and proposal_coverage_slots. Every query here
// runs against a READ ONLY session pool (SPEC_FULL.md §D.2) — the core
// never writes through this type.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetProposalCoverage is the sole admission gate for the Compare
// Orchestrator (spec.md §4.7): returns the single matching coverage record
// joining universe + mapping + slots, or (nil, false) if none exists.
// Exactly one of canonicalCode or rawName should be non-nil; if both are,
// canonicalCode takes precedence (mirrors the orchestrator's own
// resolution order in §4.10).
func (s *Store) GetProposalCoverage(ctx context.Context, insurer model.InsurerCode, canonicalCode, rawName *string) (*model.FullCoverage, bool, error) {
	var row pgx.Row
	switch {
	case canonicalCode != nil:
		row = s.pool.QueryRow(ctx, fullCoverageQuery+` WHERE u.insurer_code = $1 AND m.canonical_coverage_code = $2`,
			string(insurer), *canonicalCode)
	case rawName != nil:
		row = s.pool.QueryRow(ctx, fullCoverageQuery+` WHERE u.insurer_code = $1 AND u.normalized_name = $2`,
			string(insurer), *rawName)
	default:
		return nil, false, fmt.Errorf("universe: get proposal coverage: one of canonicalCode or rawName is required")
	}

	fc, err := scanFullCoverage(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("universe: get proposal coverage: %w", err)
	}
	return fc, true, nil
}

const fullCoverageQuery = `
	SELECT
		u.universe_id, u.insurer_code, u.proposal_id, u.raw_coverage_name, u.normalized_name,
		u.currency, u.amount_value, u.payout_amount_unit, u.source_page, u.span_text, u.content_hash,
		m.canonical_coverage_code, m.status, m.mapping_evidence,
		s.mapped_id, s.event_type, s.disease_scope_raw, s.disease_scope_include_group_id,
		s.disease_scope_exclude_group_id, s.waiting_period_days, s.renewal_flag,
		s.renewal_period_years, s.source_confidence, s.qualification_suffix
	FROM proposal_coverage_universe u
	JOIN proposal_coverage_mapped m ON m.universe_id = u.universe_id
	LEFT JOIN proposal_coverage_slots s ON s.mapped_id = m.universe_id AND m.status = 'MAPPED'
`

func scanFullCoverage(row pgx.Row) (*model.FullCoverage, error) {
	var fc model.FullCoverage
	var mapping model.CoverageMapping
	var slots model.CoverageSlots
	var slotsMappedID *string
	var includeGroupID, excludeGroupID *string

	err := row.Scan(
		&fc.Universe.UniverseID, &fc.Universe.Insurer, &fc.Universe.ProposalID,
		&fc.Universe.RawCoverageName, &fc.Universe.NormalizedName,
		&fc.Universe.Currency, &fc.Universe.AmountValue, &fc.Universe.PayoutAmountUnit,
		&fc.Universe.SourcePage, &fc.Universe.SpanText, &fc.Universe.ContentHash,
		&mapping.CanonicalCoverageCode, &mapping.Status, &mapping.MappingEvidence,
		&slotsMappedID, &slots.EventType, &slots.DiseaseScopeRaw, &includeGroupID,
		&excludeGroupID, &slots.WaitingPeriodDays, &slots.RenewalFlag,
		&slots.RenewalPeriodYears, &slots.SourceConfidence, &slots.QualificationSuffix,
	)
	if err != nil {
		return nil, err
	}

	mapping.UniverseID = fc.Universe.UniverseID
	fc.Mapping = mapping

	if slotsMappedID != nil {
		slots.MappedID = *slotsMappedID
		if includeGroupID != nil {
			slots.DiseaseScopeNorm = &model.DiseaseScopeNorm{IncludeGroupID: *includeGroupID, ExcludeGroupID: excludeGroupID}
		}
		fc.Slots = &slots
	}
	return &fc, nil
}
