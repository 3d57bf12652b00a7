package compare

import (
	"github.com/covercompare/engine/internal/model"
)

// DiseaseScope is one insurer's resolved disease-code scope (spec.md
// §4.11): include/exclude group references plus their expanded code sets
// (loaded via internal/scopegroup.LoadGroupCodes).
type DiseaseScope struct {
	IncludeGroupID string
	ExcludeGroupID string
	IncludeCodes   []string
	ExcludeCodes   []string
}

// PairwiseOverlap is the closed pairwise state (spec.md §4.11).
type PairwiseOverlap string

const (
	OverlapUnknown        PairwiseOverlap = "UNKNOWN"
	OverlapFullMatch      PairwiseOverlap = "FULL_MATCH"
	OverlapNoOverlap      PairwiseOverlap = "NO_OVERLAP"
	OverlapPartialOverlap PairwiseOverlap = "PARTIAL_OVERLAP"
)

// PairwiseState computes the overlap state between two insurers' disease
// scopes (spec.md §4.11).
func PairwiseState(a, b DiseaseScope) PairwiseOverlap {
	if a.IncludeGroupID == "" || b.IncludeGroupID == "" || a.IncludeCodes == nil || b.IncludeCodes == nil {
		return OverlapUnknown
	}
	if a.IncludeGroupID == b.IncludeGroupID && a.ExcludeGroupID == b.ExcludeGroupID {
		return OverlapFullMatch
	}

	effectiveA := subtract(a.IncludeCodes, a.ExcludeCodes)
	effectiveB := subtract(b.IncludeCodes, b.ExcludeCodes)

	if len(intersect(effectiveA, effectiveB)) == 0 {
		return OverlapNoOverlap
	}
	if sameSet(effectiveA, effectiveB) {
		return OverlapFullMatch
	}
	return OverlapPartialOverlap
}

// AggregateOverlap combines all pairwise states for 3+ insurers (spec.md
// §4.11): any UNKNOWN wins, else any NO_OVERLAP wins, else all FULL_MATCH,
// else PARTIAL_OVERLAP.
func AggregateOverlap(pairwise []PairwiseOverlap) PairwiseOverlap {
	sawNoOverlap := false
	allFullMatch := true
	for _, p := range pairwise {
		if p == OverlapUnknown {
			return OverlapUnknown
		}
		if p == OverlapNoOverlap {
			sawNoOverlap = true
		}
		if p != OverlapFullMatch {
			allFullMatch = false
		}
	}
	if sawNoOverlap {
		return OverlapNoOverlap
	}
	if allFullMatch {
		return OverlapFullMatch
	}
	return OverlapPartialOverlap
}

// OverlapToComparisonState maps the aggregated overlap to a comparison
// state (spec.md §4.11).
func OverlapToComparisonState(o PairwiseOverlap) model.ComparisonState {
	switch o {
	case OverlapFullMatch:
		return model.StateComparable
	case OverlapPartialOverlap:
		return model.StateComparableWithGaps
	case OverlapNoOverlap:
		return model.StateNonComparable
	default:
		return model.StateComparableWithGaps
	}
}

func subtract(include, exclude []string) []string {
	excluded := make(map[string]bool, len(exclude))
	for _, c := range exclude {
		excluded[c] = true
	}
	var out []string
	for _, c := range include {
		if !excluded[c] {
			out = append(out, c)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	var out []string
	for _, c := range b {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}
