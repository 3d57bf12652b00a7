package cancer

import (
	"sort"
	"strings"

	"github.com/covercompare/engine/internal/model"
)

// SplitMethod records which path produced a split result — "policy_evidence"
// is constitutional, "heuristic" is explicitly non-constitutional and must
// be reported in debug (spec.md §4.5).
type SplitMethod string

const (
	SplitMethodPolicyEvidence SplitMethod = "policy_evidence"
	SplitMethodHeuristic      SplitMethod = "heuristic"
)

// PolicySpan is one policy document span supplied to SplitCoverage.
type PolicySpan struct {
	DocID string
	Page  int
	Text  string
}

// SplitResult is the outcome of splitting one raw coverage name into a set
// of cancer canonical codes.
type SplitResult struct {
	OriginalCoverageName string
	CanonicalCodes       []model.CancerCanonicalCode
	Evidence             []ScopeEvidence
	SplitMethod          SplitMethod
}

// IsAmbiguous reports whether the split yielded more than one canonical
// code (spec.md §4.5: "set of canonical codes (possibly empty = unmapped;
// or multi = ambiguous)").
func (r SplitResult) IsAmbiguous() bool { return len(r.CanonicalCodes) > 1 }

// IsUnmapped reports whether the split yielded no canonical code.
func (r SplitResult) IsUnmapped() bool { return len(r.CanonicalCodes) == 0 }

// GetPrimaryCanonicalCode returns the first canonical code in sorted order,
// or ("", false) if unmapped. Used only for display — ambiguity must still
// be surfaced to the caller via IsAmbiguous, never silently collapsed.
func (r SplitResult) GetPrimaryCanonicalCode() (model.CancerCanonicalCode, bool) {
	if len(r.CanonicalCodes) == 0 {
		return "", false
	}
	return r.CanonicalCodes[0], true
}

// SplitCoverage implements spec.md §4.5: given a raw coverage name and
// optionally policy spans, decide which cancer canonical codes apply.
//
// Priority: if spans are provided, build evidence over every span via
// DetectScopeFromText, aggregate include flags by OR, and collect every
// evidence span with a surviving flag. If the aggregate confidence is
// evidence_strong, split by projecting each surviving flag to its
// canonical — method = policy_evidence.
//
// Otherwise falls back to the name-only heuristic: detect cancer-type
// keywords directly in the raw name, with an exclusion rewrite when
// "유사암제외" appears — method = heuristic, explicitly non-constitutional.
func SplitCoverage(rawName string, spans []PolicySpan) SplitResult {
	if len(spans) > 0 {
		var general, similar, inSitu, borderline bool
		var evidences []ScopeEvidence
		for _, span := range spans {
			ev, kept, err := DetectScopeFromText(span.DocID, span.Page, span.Text)
			if err != nil || !kept {
				continue
			}
			general = general || ev.IncludeGeneral
			similar = similar || ev.IncludeSimilar
			inSitu = inSitu || ev.IncludeInSitu
			borderline = borderline || ev.IncludeBorderline
			evidences = append(evidences, ev)
		}
		if general || similar || inSitu || borderline {
			codes := projectFlags(general, similar, inSitu, borderline)
			return SplitResult{
				OriginalCoverageName: rawName,
				CanonicalCodes:       codes,
				Evidence:             evidences,
				SplitMethod:          SplitMethodPolicyEvidence,
			}
		}
	}

	return heuristicSplit(rawName)
}

func heuristicSplit(rawName string) SplitResult {
	compact := strings.ReplaceAll(rawName, " ", "")
	excludeSimilar := strings.Contains(compact, "유사암제외")
	normalized := rawName
	if excludeSimilar {
		normalized = strings.ReplaceAll(compact, "유사암제외", "")
	}

	var general, similar, inSitu, borderline bool
	switch {
	case strings.Contains(normalized, "유사암"):
		similar = true
	case strings.Contains(normalized, "제자리암"):
		inSitu = true
	case strings.Contains(normalized, "경계성종양"):
		borderline = true
	case strings.Contains(normalized, "암진단") || strings.Contains(normalized, "일반암"):
		general = true
	}
	if excludeSimilar {
		similar = false
	}

	return SplitResult{
		OriginalCoverageName: rawName,
		CanonicalCodes:       projectFlags(general, similar, inSitu, borderline),
		SplitMethod:          SplitMethodHeuristic,
	}
}

func projectFlags(general, similar, inSitu, borderline bool) []model.CancerCanonicalCode {
	var codes []model.CancerCanonicalCode
	if general {
		codes = append(codes, model.CancerGeneral)
	}
	if similar {
		codes = append(codes, model.CancerSimilar)
	}
	if inSitu {
		codes = append(codes, model.CancerInSitu)
	}
	if borderline {
		codes = append(codes, model.CancerBorderline)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// SplitReport aggregates per-run statistics over a batch of SplitResults
// (SPEC_FULL.md §D.1, grounded in canonical_split_mapper.py's
// generate_split_report). A debug/reporting helper: no CLI command calls
// it, and the compare path never consults it.
type SplitReport struct {
	Total          int
	Mapped         int
	Ambiguous      int
	Unmapped       int
	HeuristicCount int
}

// GenerateSplitReport tallies a batch of split results.
func GenerateSplitReport(results []SplitResult) SplitReport {
	var r SplitReport
	r.Total = len(results)
	for _, res := range results {
		switch {
		case res.IsUnmapped():
			r.Unmapped++
		case res.IsAmbiguous():
			r.Ambiguous++
		default:
			r.Mapped++
		}
		if res.SplitMethod == SplitMethodHeuristic {
			r.HeuristicCount++
		}
	}
	return r
}
