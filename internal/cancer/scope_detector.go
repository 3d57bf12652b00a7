package cancer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

// ScopeEvidenceRuleID identifies the detection rule that produced a
// CancerScopeEvidence, for audit reproducibility (spec.md §4.4 step 5).
const ScopeEvidenceRuleID = "cancer_scope_detector_v2_ah4"

// ScopeEvidence is the constructor-guarded record from spec.md §4.4.
// Invariant (enforced by NewScopeEvidence, not by direct struct literal
// construction): Confidence == unknown implies every Include* flag is
// false. Violations return a PolicyViolation error rather than silently
// normalizing the flags away.
type ScopeEvidence struct {
	IncludeGeneral    bool
	IncludeSimilar    bool
	IncludeInSitu     bool
	IncludeBorderline bool
	Confidence        model.ScopeConfidence
	DocID             string
	Page              int
	SpanText          string
	RuleID            string
	EvidenceType       model.CancerEvidenceType
	MatchedPattern     string
}

// NewScopeEvidence constructs a ScopeEvidence, enforcing the AH-3-style
// constitutional invariant at construction time: confidence == unknown
// cannot coexist with any include flag set to true.
func NewScopeEvidence(
	includeGeneral, includeSimilar, includeInSitu, includeBorderline bool,
	confidence model.ScopeConfidence,
	docID string, page int, spanText string,
	evidenceType model.CancerEvidenceType, matchedPattern string,
) (ScopeEvidence, error) {
	anyInclude := includeGeneral || includeSimilar || includeInSitu || includeBorderline
	if confidence == model.ConfidenceUnknown && anyInclude {
		return ScopeEvidence{}, apperr.PolicyViolation(
			"cancer: confidence=unknown but an include flag is true",
			map[string]any{
				"include_general":    includeGeneral,
				"include_similar":    includeSimilar,
				"include_in_situ":    includeInSitu,
				"include_borderline": includeBorderline,
			},
		)
	}
	return ScopeEvidence{
		IncludeGeneral:    includeGeneral,
		IncludeSimilar:    includeSimilar,
		IncludeInSitu:     includeInSitu,
		IncludeBorderline: includeBorderline,
		Confidence:        confidence,
		DocID:             docID,
		Page:              page,
		SpanText:          spanText,
		RuleID:            ScopeEvidenceRuleID,
		EvidenceType:      evidenceType,
		MatchedPattern:    matchedPattern,
	}, nil
}

// GetCanonicalCode projects a ScopeEvidence to exactly one canonical code
// when exactly one include flag is true; returns ("", false) for zero or
// multiple flags (ambiguous/unknown — spec.md §4.4).
func (e ScopeEvidence) GetCanonicalCode() (model.CancerCanonicalCode, bool) {
	var code model.CancerCanonicalCode
	count := 0
	if e.IncludeGeneral {
		code, count = model.CancerGeneral, count+1
	}
	if e.IncludeSimilar {
		code, count = model.CancerSimilar, count+1
	}
	if e.IncludeInSitu {
		code, count = model.CancerInSitu, count+1
	}
	if e.IncludeBorderline {
		code, count = model.CancerBorderline, count+1
	}
	if count != 1 {
		return "", false
	}
	return code, true
}

// Cancer-type detection regex families (spec.md §4.4 step 2).
var (
	generalPattern    = regexp.MustCompile(`일반암|악성신생물|C00\s*[-~]\s*C97`)
	similarPattern    = regexp.MustCompile(`유사암|갑상선암|기타피부암|C73|C44`)
	inSituPattern     = regexp.MustCompile(`제자리암|상피내암|D0[0-9]`)
	borderlinePattern = regexp.MustCompile(`경계성종양|D[34][0-9]`)

	separateBenefitProximity = regexp.MustCompile(`별도[^제외]*(유사암|일반암)`)
	exclusionClause          = regexp.MustCompile(`[^)]*제외`)
	separateProximityMarker  = regexp.MustCompile(`별도`)
)

// DetectScopeFromText implements the full spec.md §4.4 algorithm: type the
// span, detect each cancer-type family, rewrite flags by evidence type, and
// compute confidence. Returns (evidence, false) when no flag remains true
// after rewriting (confidence collapses to unknown and no evidence span is
// emitted, per step 5: "if any flag remains true, emit exactly one
// evidence span").
func DetectScopeFromText(docID string, page int, spanText string) (ScopeEvidence, bool, error) {
	typed := ClassifyEvidence(spanText)

	general := generalPattern.MatchString(spanText)
	similar := similarPattern.MatchString(spanText)
	inSitu := inSituPattern.MatchString(spanText)
	borderline := borderlinePattern.MatchString(spanText)

	switch typed.Type {
	case model.EvidenceDefinitionIncluded:
		if similar {
			// Subsumed by the similar definition, not separate benefits.
			inSitu = false
			borderline = false
		}
	case model.EvidenceSeparateBenefit:
		if separateBenefitProximity.MatchString(spanText) {
			similar = false
			general = false
		}
	case model.EvidenceExclusion:
		for _, clause := range exclusionClause.FindAllString(spanText, -1) {
			if similarPattern.MatchString(clause) {
				similar = false
			}
			if generalPattern.MatchString(clause) {
				general = false
			}
			if inSituPattern.MatchString(clause) {
				inSitu = false
			}
			if borderlinePattern.MatchString(clause) {
				borderline = false
			}
		}
	case model.EvidenceUnknown:
		if separateProximityMarker.MatchString(spanText) {
			similar = false
			general = false
		}
	}

	confidence := model.ConfidenceUnknown
	if general || similar || inSitu || borderline {
		confidence = model.ConfidenceEvidenceStrong
	} else {
		// No flag survives rewriting: the invariant requires every include
		// flag to be false, which they already are here.
		evidence, err := NewScopeEvidence(false, false, false, false, model.ConfidenceUnknown,
			docID, page, spanText, typed.Type, typed.MatchedPattern)
		return evidence, false, err
	}

	evidence, err := NewScopeEvidence(general, similar, inSitu, borderline, confidence,
		docID, page, spanText, typed.Type, typed.MatchedPattern)
	if err != nil {
		return ScopeEvidence{}, false, fmt.Errorf("cancer: detect scope: %w", err)
	}
	return evidence, true, nil
}

// ExtractHintFromCoverageName detects a single cancer-type hint directly
// from a raw coverage name (used by the name-only heuristic split path,
// spec.md §4.5 step 2), without requiring policy evidence.
func ExtractHintFromCoverageName(name string) (model.CancerCanonicalCode, bool) {
	switch {
	case strings.Contains(name, "유사암"):
		return model.CancerSimilar, true
	case strings.Contains(name, "제자리암"):
		return model.CancerInSitu, true
	case strings.Contains(name, "경계성종양"):
		return model.CancerBorderline, true
	case strings.Contains(name, "암진단") || strings.Contains(name, "일반암"):
		return model.CancerGeneral, true
	default:
		return "", false
	}
}
