// Package compare implements the Compare Orchestrator (spec.md §4.10): the
// two/N-insurer decision tree that turns a compiled request into a
// ComparisonResult, with evidence grouped by document-type priority.
//
// Grounded in spec.md §4.10-§4.11 and the comparison/{overlap,explainer,
// evidence_order}.py modules in original_source.
package compare

import (
	"context"
	"fmt"

	"github.com/covercompare/engine/internal/canon"
	"github.com/covercompare/engine/internal/model"
)

// UniverseReader is the Universe Lock admission gate (implemented by
// internal/universe.Store).
type UniverseReader interface {
	GetProposalCoverage(ctx context.Context, insurer model.InsurerCode, canonicalCode, rawName *string) (*model.FullCoverage, bool, error)
}

// EvidenceReader fetches registered coverage evidence spans for a resolved
// coverage, keyed by canonical code (implemented by internal/storage).
type EvidenceReader interface {
	GetCoverageEvidence(ctx context.Context, insurer model.InsurerCode, canonicalCode string) ([]model.CoverageEvidence, error)
}

// AliasResolver recalls canonical codes for a raw query, with the cancer
// guardrail applied (spec.md §4.2, implemented by internal/aliasindex.Index).
// Optional: an Orchestrator built without one falls back to the small
// well-known-query map below, which only covers the four cancer canonicals
// verbatim.
type AliasResolver interface {
	ResolveQuery(query string, applyCancerGuardrail bool) []string
}

// queryToCanonical is the small deterministic query->canonical map spec.md
// §4.10 step 1 calls for. Extend as new well-known queries are added; this
// is intentionally not derived from the Alias Index, which resolves
// insurer-specific aliases rather than canonical user-facing queries.
var queryToCanonical = map[string]string{
	"일반암진단비":   string(model.CancerGeneral),
	"유사암진단비":   string(model.CancerSimilar),
	"제자리암진단비":  string(model.CancerInSitu),
	"경계성종양진단비": string(model.CancerBorderline),
}

// ComparisonResult is the orchestrator's output (spec.md §4.10).
type ComparisonResult struct {
	Query          string
	ResolvedCode   string // canonical code if resolved; "" if raw-query fallback
	CoverageA      *model.FullCoverage
	CoverageB      *model.FullCoverage
	State          model.ComparisonState
	NextAction     model.NextAction
	UXMessageCode  model.UXMessageCode
	EvidenceGroups map[model.DocumentType][]model.CoverageEvidence
}

// Orchestrator runs the Compare decision tree.
type Orchestrator struct {
	universe UniverseReader
	evidence EvidenceReader
	alias    AliasResolver
}

// New builds an Orchestrator. alias is optional (variadic so existing
// callers that only need the four well-known cancer queries need not
// change); pass internal/aliasindex.Index to recall canonical codes for
// arbitrary insurer-aliased queries instead.
func New(universe UniverseReader, evidence EvidenceReader, alias ...AliasResolver) *Orchestrator {
	o := &Orchestrator{universe: universe, evidence: evidence}
	if len(alias) > 0 {
		o.alias = alias[0]
	}
	return o
}

// Compare implements spec.md §4.10 for up to two insurers. 3+ insurer
// overlap is computed separately by the pure functions in overlap.go
// (PairwiseState, AggregateOverlap, OverlapToComparisonState) over
// disease scopes the caller supplies; Compare does not call them.
func (o *Orchestrator) Compare(ctx context.Context, query string, insurerA model.InsurerCode, insurerB *model.InsurerCode) (ComparisonResult, error) {
	canonicalCode, resolved := o.resolveQuery(query)

	covA, err := o.fetch(ctx, insurerA, canonicalCode, query)
	if err != nil {
		return ComparisonResult{}, err
	}

	var covB *model.FullCoverage
	if insurerB != nil {
		covB, err = o.fetch(ctx, *insurerB, canonicalCode, query)
		if err != nil {
			return ComparisonResult{}, err
		}
	}

	result := decide(query, canonicalCode, resolved, covA, covB)

	if err := canon.ValidateTriple(result.State, result.NextAction, result.UXMessageCode); err != nil {
		return ComparisonResult{}, err
	}

	groups, err := o.aggregateEvidence(ctx, insurerA, insurerB, covA, covB, result.ResolvedCode)
	if err != nil {
		return ComparisonResult{}, err
	}
	result.EvidenceGroups = groups

	return result, nil
}

// resolveQuery implements spec.md §4.10 step 1: recall a single canonical
// code for query, if the Alias Index (or, absent one, the well-known-query
// map) resolves it unambiguously. Multiple recalled codes means the query
// is ambiguous at this layer — that falls through to the raw-query path
// rather than guessing, matching §4.6's constitutional rule that an
// undecided/ambiguous recall never silently picks a candidate.
func (o *Orchestrator) resolveQuery(query string) (code string, resolved bool) {
	if o.alias != nil {
		switch codes := o.alias.ResolveQuery(query, true); len(codes) {
		case 1:
			return codes[0], true
		case 0:
			return "", false
		default:
			return "", false
		}
	}
	if c, ok := queryToCanonical[query]; ok {
		return c, true
	}
	return "", false
}

func (o *Orchestrator) fetch(ctx context.Context, insurer model.InsurerCode, canonicalCode string, query string) (*model.FullCoverage, error) {
	var fc *model.FullCoverage
	var found bool
	var err error
	if canonicalCode != "" {
		fc, found, err = o.universe.GetProposalCoverage(ctx, insurer, &canonicalCode, nil)
	} else {
		fc, found, err = o.universe.GetProposalCoverage(ctx, insurer, nil, &query)
	}
	if err != nil {
		return nil, fmt.Errorf("compare: fetch proposal coverage: %w", err)
	}
	if !found {
		return nil, nil
	}
	return fc, nil
}

// decide implements the two-insurer decision table from spec.md §4.10.
func decide(query, canonicalCode string, resolved bool, covA, covB *model.FullCoverage) ComparisonResult {
	result := ComparisonResult{Query: query, ResolvedCode: canonicalCode}

	if covA == nil {
		result.State = model.StateOutOfUniverse
		result.NextAction = model.ActionRequestMoreInfo
		result.UXMessageCode = model.UXCoverageNotInUniverse
		return result
	}

	if covB == nil {
		scopeNormSeen := covA.Slots != nil && covA.Slots.DiseaseScopeNorm != nil
		mappingUnmapped := covA.Mapping.Status != model.MappingMapped
		switch {
		case mappingUnmapped:
			result.State = model.StateUnmapped
			result.NextAction = model.ActionRequestMoreInfo
			result.UXMessageCode = model.UXCoverageUnmapped
		case scopeNormSeen:
			result.State = model.StatePolicyRequired
			result.NextAction = model.ActionVerifyPolicy
			result.UXMessageCode = model.UXDiseaseScopeVerificationRequired
		default:
			result.State = model.StateComparable
			result.NextAction = model.ActionCompare
			result.UXMessageCode = model.UXCoverageFoundSingleInsurer
		}
		result.CoverageA = covA
		return result
	}

	result.CoverageA = covA
	result.CoverageB = covB

	if covA.Mapping.Status != model.MappingMapped || covB.Mapping.Status != model.MappingMapped {
		result.State = model.StateUnmapped
		result.NextAction = model.ActionRequestMoreInfo
		result.UXMessageCode = model.UXCoverageUnmapped
		return result
	}

	codesEqual := covA.Mapping.CanonicalCoverageCode != nil && covB.Mapping.CanonicalCoverageCode != nil &&
		*covA.Mapping.CanonicalCoverageCode == *covB.Mapping.CanonicalCoverageCode

	scopeNormSeen := (covA.Slots != nil && covA.Slots.DiseaseScopeNorm != nil) ||
		(covB.Slots != nil && covB.Slots.DiseaseScopeNorm != nil)

	switch {
	case !codesEqual:
		result.State = model.StateNonComparable
		result.NextAction = model.ActionRequestMoreInfo
		result.UXMessageCode = model.UXCoverageTypeMismatch
	case scopeNormSeen:
		result.State = model.StateComparableWithGaps
		result.NextAction = model.ActionVerifyPolicy
		result.UXMessageCode = model.UXCoverageComparableWithGaps
	default:
		result.State = model.StateComparable
		result.NextAction = model.ActionCompare
		result.UXMessageCode = model.UXCoverageMatchComparable
	}
	return result
}
