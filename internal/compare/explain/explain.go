// Package explain assembles the Korean-text multi-party overlap
// explanation (spec.md §4.11, §7) from fixed templates and blocks a closed
// list of subjective/recommendation phrases before the text is returned.
//
// Grounded in spec.md Scenario E and src/policy_scope/comparison/
// explainer.py in original_source (SPEC_FULL.md §D.1: the original blocks
// eight phrases, not the five spec.md's Scenario E lists).
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/model"
)

// forbiddenPhrases is the closed eight-phrase list (SPEC_FULL.md §D.1).
var forbiddenPhrases = []string{
	"가장 넓은", "가장 유리", "추천", "더 나은", "더 좋은", "최고", "최선", "우수",
}

// InsurerFinding is one insurer's contribution to the explanation: its
// overlap participation and, when evidence is missing, a note naming the
// gap (spec.md Scenario E: "explanation text mentions DB's missing policy
// definition").
type InsurerFinding struct {
	Insurer           model.InsurerCode
	HasPolicyEvidence bool
}

// Explain builds the fixed-template explanation text for an aggregated
// multi-party overlap. Every participating insurer must appear in the
// output (spec.md §4.11) — the template iterates findings rather than
// summarizing, so no insurer can be silently dropped.
func Explain(canonicalCode string, aggregate compare.PairwiseOverlap, findings []InsurerFinding) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 비교 결과: 전체 중첩 상태는 %s입니다.\n", canonicalCode, overlapLabel(aggregate))

	sorted := make([]InsurerFinding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Insurer < sorted[j].Insurer })

	for _, f := range sorted {
		if f.HasPolicyEvidence {
			fmt.Fprintf(&b, "- %s: 약관상 질병 범위 정의가 확인되었습니다.\n", f.Insurer)
		} else {
			fmt.Fprintf(&b, "- %s: 약관상 질병 범위 정의를 확인할 수 없습니다.\n", f.Insurer)
		}
	}

	text := b.String()
	if err := validateNoProhibitedPhrases(text); err != nil {
		return "", err
	}
	return text, nil
}

// validateNoProhibitedPhrases rejects any of the eight forbidden phrases.
// A violation is a policy_violation — the explainer must never ship
// subjective or recommendation language (spec.md §7).
func validateNoProhibitedPhrases(text string) error {
	for _, phrase := range forbiddenPhrases {
		if strings.Contains(text, phrase) {
			return apperr.PolicyViolation("explain: generated text contains forbidden phrase", map[string]any{"phrase": phrase})
		}
	}
	return nil
}

func overlapLabel(o compare.PairwiseOverlap) string {
	switch o {
	case compare.OverlapFullMatch:
		return "완전 일치"
	case compare.OverlapPartialOverlap:
		return "부분 중첩"
	case compare.OverlapNoOverlap:
		return "중첩 없음"
	default:
		return "확인 불가"
	}
}
