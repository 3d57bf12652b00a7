package viewmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/model"
)

// ComparisonDetailLookup resolves an optional human-authored comparison
// description, keyed by (template_id, insurer_coverage_name). Template
// isolation invariant (spec.md §4.13): a description from one template_id
// must never be attached to a row assembled under a different one.
type ComparisonDetailLookup interface {
	Lookup(templateID, insurerCoverageName string) (description, source string, ok bool)
}

// Assembler builds a ViewModel from a ComparisonResult.
type Assembler struct {
	details ComparisonDetailLookup
}

func NewAssembler(details ComparisonDetailLookup) *Assembler {
	return &Assembler{details: details}
}

var docTypeShort = map[model.DocumentType]string{
	model.DocProposal:       "prop",
	model.DocProductSummary: "psum",
	model.DocBusinessMethod: "bmeth",
	model.DocPolicy:         "pol",
}

// Assemble implements spec.md §4.13. templateID scopes the
// comparison-detail join; pass "" when no template applies.
func (a *Assembler) Assemble(userQuery, normalizedQuery, templateID string, result compare.ComparisonResult) (ViewModel, error) {
	vm := ViewModel{
		Header: Header{UserQuery: userQuery, NormalizedQuery: strings.TrimSpace(normalizedQuery)},
	}

	basis := result.ResolvedCode
	if basis == "" && result.CoverageA != nil {
		basis = result.CoverageA.Universe.RawCoverageName
	}
	vm.Snapshot.ComparisonBasis = basis

	for _, cov := range nonNilCoverages(result.CoverageA, result.CoverageB) {
		snap := InsurerSnapshot{Insurer: string(cov.Universe.Insurer), Status: string(result.State)}
		if amt := formatManwon(cov.Universe.AmountValue); amt != "" {
			snap.HeadlineAmount = &amt
		}
		vm.Snapshot.PerInsurer = append(vm.Snapshot.PerInsurer, snap)
	}

	hasPolicyEvidence := len(result.EvidenceGroups[model.DocPolicy]) > 0
	for _, cov := range nonNilCoverages(result.CoverageA, result.CoverageB) {
		row := FactRow{
			Insurer:       string(cov.Universe.Insurer),
			CoverageTitle: cov.Universe.RawCoverageName,
			RowStatus:     deriveRowStatus(cov.Mapping.Status, result.State, hasPolicyEvidence),
		}
		row.NoteText = noteTextFor(cov.Mapping.Status)

		if a.details != nil {
			if desc, src, ok := a.details.Lookup(templateID, cov.Universe.RawCoverageName); ok {
				row.ComparisonDescription = &desc
				row.ComparisonDescriptionSource = &src
			}
		}
		vm.FactTable = append(vm.FactTable, row)
	}
	sort.Slice(vm.FactTable, func(i, j int) bool {
		if vm.FactTable[i].Insurer != vm.FactTable[j].Insurer {
			return vm.FactTable[i].Insurer < vm.FactTable[j].Insurer
		}
		return vm.FactTable[i].CoverageTitle < vm.FactTable[j].CoverageTitle
	})

	panels, err := buildEvidencePanels(result.EvidenceGroups)
	if err != nil {
		return ViewModel{}, err
	}
	vm.EvidencePanels = panels

	return vm, nil
}

func nonNilCoverages(a, b *model.FullCoverage) []*model.FullCoverage {
	var out []*model.FullCoverage
	if a != nil {
		out = append(out, a)
	}
	if b != nil {
		out = append(out, b)
	}
	return out
}

// deriveRowStatus is the closed function spec.md §4.13 calls for, mapping
// (mapping_status, comparison_state, policy_evidence) to a row status.
func deriveRowStatus(mapping model.MappingStatus, state model.ComparisonState, hasPolicyEvidence bool) string {
	switch mapping {
	case model.MappingUnmapped:
		return "UNMAPPED"
	case model.MappingAmbiguous:
		return "AMBIGUOUS"
	}
	switch state {
	case model.StateComparable:
		return "MATCHED"
	case model.StateComparableWithGaps:
		if hasPolicyEvidence {
			return "MATCHED_VERIFIED_GAP"
		}
		return "MATCHED_UNVERIFIED_GAP"
	case model.StateNonComparable:
		return "TYPE_MISMATCH"
	case model.StatePolicyRequired:
		return "POLICY_REQUIRED"
	default:
		return "MATCHED"
	}
}

func noteTextFor(status model.MappingStatus) *string {
	switch status {
	case model.MappingUnmapped:
		s := "(UNMAPPED)"
		return &s
	case model.MappingAmbiguous:
		s := "(AMBIGUOUS - 수동 매핑 필요)"
		return &s
	default:
		return nil
	}
}

// formatManwon converts a KRW amount to a 만원-denominated display string
// with thousands separators (spec.md §4.13). Returns "" for non-positive
// amounts (nothing to display).
func formatManwon(amountKRW int64) string {
	if amountKRW <= 0 {
		return ""
	}
	manwon := amountKRW / 10_000
	return addThousandsSeparators(manwon) + "만원"
}

func addThousandsSeparators(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func buildEvidencePanels(groups map[model.DocumentType][]model.CoverageEvidence) ([]EvidencePanel, error) {
	var panels []EvidencePanel
	for docType, evidences := range groups {
		short, ok := docTypeShort[docType]
		if !ok {
			return nil, apperr.Internal("viewmodel: unknown document type in evidence group", nil)
		}
		counter := make(map[string]int)
		for _, ev := range evidences {
			excerpt := clampExcerpt(ev.Excerpt)
			insurerLower := strings.ToLower(string(ev.InsurerCode))
			counter[insurerLower]++
			id := fmt.Sprintf("ev_%s_%s_%03d", insurerLower, short, counter[insurerLower])
			panels = append(panels, EvidencePanel{
				ID:      id,
				Insurer: string(ev.InsurerCode),
				DocType: string(docType),
				Excerpt: excerpt,
			})
		}
	}
	sort.Slice(panels, func(i, j int) bool {
		if panels[i].Insurer != panels[j].Insurer {
			return panels[i].Insurer < panels[j].Insurer
		}
		if panels[i].DocType != panels[j].DocType {
			return panels[i].DocType < panels[j].DocType
		}
		return panels[i].ID < panels[j].ID
	})
	return panels, nil
}

// clampExcerpt enforces the upper bound of the [25, 400] excerpt length
// contract (spec.md §4.13). Excerpts shorter than 25 runes are left as-is
// and caught by the schema guard instead — that's a source-data defect,
// not something this package should paper over.
func clampExcerpt(excerpt string) string {
	r := []rune(excerpt)
	if len(r) > 400 {
		return string(r[:400])
	}
	return excerpt
}
