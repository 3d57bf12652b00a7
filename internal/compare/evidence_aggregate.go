package compare

import (
	"context"
	"fmt"
	"sort"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

// docTypeOrder is the fixed evidence-grouping priority order (spec.md
// §4.10, §3: PROPOSAL < PRODUCT_SUMMARY < BUSINESS_METHOD < POLICY).
var docTypeOrder = []model.DocumentType{
	model.DocProposal, model.DocProductSummary, model.DocBusinessMethod, model.DocPolicy,
}

// aggregateEvidence implements spec.md §4.10's evidence aggregation: group
// by DocumentType in fixed priority order, suppress POLICY evidence unless
// disease_scope_norm was observed on either coverage, sort within group by
// (page ASC, excerpt ASC), and require at least one PROPOSAL span since
// proposals are the SSOT.
func (o *Orchestrator) aggregateEvidence(ctx context.Context, insurerA model.InsurerCode, insurerB *model.InsurerCode, covA, covB *model.FullCoverage, canonicalCode string) (map[model.DocumentType][]model.CoverageEvidence, error) {
	if covA == nil {
		return nil, nil
	}

	var all []model.CoverageEvidence
	evA, err := o.evidence.GetCoverageEvidence(ctx, insurerA, canonicalCode)
	if err != nil {
		return nil, fmt.Errorf("compare: get coverage evidence: %w", err)
	}
	all = append(all, evA...)

	if insurerB != nil && covB != nil {
		evB, err := o.evidence.GetCoverageEvidence(ctx, *insurerB, canonicalCode)
		if err != nil {
			return nil, fmt.Errorf("compare: get coverage evidence: %w", err)
		}
		all = append(all, evB...)
	}

	scopeNormSeen := (covA.Slots != nil && covA.Slots.DiseaseScopeNorm != nil) ||
		(covB != nil && covB.Slots != nil && covB.Slots.DiseaseScopeNorm != nil)

	groups := make(map[model.DocumentType][]model.CoverageEvidence)
	for _, ev := range all {
		if ev.SourceDocType == model.DocPolicy && !scopeNormSeen {
			continue
		}
		groups[ev.SourceDocType] = append(groups[ev.SourceDocType], ev)
	}

	for _, dt := range docTypeOrder {
		sort.Slice(groups[dt], func(i, j int) bool {
			g := groups[dt]
			if g[i].SourcePage != g[j].SourcePage {
				return g[i].SourcePage < g[j].SourcePage
			}
			return g[i].Excerpt < g[j].Excerpt
		})
	}

	if len(groups[model.DocProposal]) == 0 {
		return nil, apperr.DataInsufficient("compare: proposal evidence required", map[string]any{"canonical_code": canonicalCode})
	}

	return groups, nil
}
