// Package cancer implements the Cancer Canonical Decision pipeline:
// evidence typing, scope detection, canonical splitting, and the
// query+insurer decision integration (spec.md §4.3-§4.6).
//
// Grounded in original_source/apps/api/app/ah/cancer_evidence_typer.py,
// cancer_scope_detector.py, canonical_split_mapper.py, compare_integration.py.
package cancer

import (
	"strings"

	"github.com/covercompare/engine/internal/model"
)

// EvidenceTypeResult is the classification of one policy span.
type EvidenceTypeResult struct {
	Type            model.CancerEvidenceType
	Confidence      float64
	MatchedPattern  string
}

// Priority-ordered pattern groups, highest priority first (spec.md §4.3).
// All matched after whitespace stripping — ClassifyEvidence removes every
// whitespace run from its input first, so patterns don't need to tolerate spacing.
var (
	separateBenefitPatterns = []string{
		"별도담보", "별도지급", "별도로지급", "독립담보", "독립적으로", "구분하여지급",
	}
	exclusionPatterns = []string{
		"제외", "않는", "해당하지", "대상이아님", "지급하지않", "면책",
	}
	definitionIncludedPatterns = []string{
		"포함", "정의", "해당", "분류", "다음과같다", "아래와같다",
	}
)

// ClassifyEvidence strips all whitespace from a policy span, then types it
// via the fixed priority order: SEPARATE_BENEFIT, then EXCLUSION, then
// DEFINITION_INCLUDED, else UNKNOWN with confidence 0.
//
// Contract: purely pattern-based — the same input string always produces
// the same classification.
func ClassifyEvidence(strippedSpan string) EvidenceTypeResult {
	strippedSpan = strings.Join(strings.Fields(strippedSpan), "")
	if pattern, ok := firstMatch(strippedSpan, separateBenefitPatterns); ok {
		return EvidenceTypeResult{Type: model.EvidenceSeparateBenefit, Confidence: 1, MatchedPattern: pattern}
	}
	if pattern, ok := firstMatch(strippedSpan, exclusionPatterns); ok {
		return EvidenceTypeResult{Type: model.EvidenceExclusion, Confidence: 1, MatchedPattern: pattern}
	}
	if pattern, ok := firstMatch(strippedSpan, definitionIncludedPatterns); ok {
		return EvidenceTypeResult{Type: model.EvidenceDefinitionIncluded, Confidence: 1, MatchedPattern: pattern}
	}
	return EvidenceTypeResult{Type: model.EvidenceUnknown, Confidence: 0}
}

func firstMatch(s string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return p, true
		}
	}
	return "", false
}
