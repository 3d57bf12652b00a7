package cancer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/covercompare/engine/internal/model"
)

// DecisionMethod records how a Decision reached its status, for audit and
// debug (spec.md §4.6).
type DecisionMethod string

const (
	MethodNoPolicyEvidence    DecisionMethod = "no_policy_evidence"
	MethodPolicyEvidence      DecisionMethod = "policy_evidence"
	MethodInsufficientEvidence DecisionMethod = "insufficient_evidence"
)

// Decision is the transient CancerCanonicalDecision from spec.md §3.
//
// Invariant (AH-5, constitutional): GetCanonicalCodesForCompare returns
// DecidedCanonicalCodes when Status is DECIDED, and the empty set when
// Status is UNDECIDED — RecalledCandidates are never used for comparison,
// only for display/debug. This is enforced by the method below, not by
// caller discipline.
type Decision struct {
	Insurer               model.InsurerCode
	RawQuery              string
	RecalledCandidates    []model.CancerCanonicalCode
	DecidedCanonicalCodes []model.CancerCanonicalCode
	Status                model.DecisionStatus
	Method                DecisionMethod
	EvidenceSpans         []ScopeEvidence
}

// GetCanonicalCodesForCompare is the sole sanctioned accessor for
// comparison purposes. The UNDECIDED path never falls back to
// RecalledCandidates, enforced here rather than left to caller discipline
// (spec.md §4.6, Testable Property #1).
func (d Decision) GetCanonicalCodesForCompare() []model.CancerCanonicalCode {
	if d.Status != model.StatusDecided {
		return nil
	}
	return d.DecidedCanonicalCodes
}

// AliasRecaller resolves a query to a candidate canonical code set, with
// the cancer guardrail applied (implemented by internal/aliasindex).
type AliasRecaller interface {
	ResolveQuery(query string, applyCancerGuardrail bool) []string
}

// PolicyEvidenceFetcher fetches cancer-relevant policy spans for an insurer
// (implemented by internal/evidence).
type PolicyEvidenceFetcher interface {
	GetPolicySpansForCancer(ctx context.Context, insurer model.InsurerCode, limit int) ([]PolicySpan, error)
}

// Integration implements the Query -> (recalled, decided, UNDECIDED)
// pipeline for one (query, insurer) pair (spec.md §4.6).
type Integration struct {
	recaller AliasRecaller
	evidence PolicyEvidenceFetcher
}

func NewIntegration(recaller AliasRecaller, evidence PolicyEvidenceFetcher) *Integration {
	return &Integration{recaller: recaller, evidence: evidence}
}

// maxEvidenceSpans caps the evidence fetch per request (spec.md §4.6 step 2).
const maxEvidenceSpans = 50

// Decide runs the full pipeline for one (query, insurer) pair.
func (in *Integration) Decide(ctx context.Context, query string, insurer model.InsurerCode) (Decision, error) {
	recalledRaw := in.recaller.ResolveQuery(query, true)
	recalled := intersectCancerCanonicals(recalledRaw)

	spans, err := in.evidence.GetPolicySpansForCancer(ctx, insurer, maxEvidenceSpans)
	if err != nil {
		return Decision{}, fmt.Errorf("cancer: fetch policy evidence: %w", err)
	}

	if len(spans) == 0 {
		return Decision{
			Insurer:            insurer,
			RawQuery:           query,
			RecalledCandidates: recalled,
			Status:             model.StatusUndecided,
			Method:             MethodNoPolicyEvidence,
		}, nil
	}

	var decided []model.CancerCanonicalCode
	var keptSpans []ScopeEvidence
	for _, span := range spans {
		typed := ClassifyEvidence(span.Text)
		switch typed.Type {
		case model.EvidenceSeparateBenefit:
			if strings.Contains(span.Text, "제자리암") && strings.Contains(span.Text, "진단") {
				decided = appendUnique(decided, model.CancerInSitu)
			}
			if strings.Contains(span.Text, "경계성종양") && strings.Contains(span.Text, "진단") {
				decided = appendUnique(decided, model.CancerBorderline)
			}
		case model.EvidenceDefinitionIncluded:
			if strings.Contains(span.Text, "유사암") {
				decided = appendUnique(decided, model.CancerSimilar)
			} else if strings.Contains(span.Text, "일반암") || strings.Contains(span.Text, "암") {
				decided = appendUnique(decided, model.CancerGeneral)
			}
		}
		if typed.Type == model.EvidenceDefinitionIncluded || typed.Type == model.EvidenceSeparateBenefit || typed.Type == model.EvidenceExclusion {
			ev, err := NewScopeEvidence(
				false, false, false, false, model.ConfidenceUnknown,
				span.DocID, span.Page, span.Text, typed.Type, typed.MatchedPattern,
			)
			if err == nil {
				keptSpans = append(keptSpans, ev)
			}
		}
	}

	if len(decided) == 0 {
		return Decision{
			Insurer:            insurer,
			RawQuery:           query,
			RecalledCandidates: recalled,
			Status:             model.StatusUndecided,
			Method:             MethodInsufficientEvidence,
		}, nil
	}

	sort.Slice(decided, func(i, j int) bool { return decided[i] < decided[j] })
	return Decision{
		Insurer:               insurer,
		RawQuery:              query,
		RecalledCandidates:    recalled,
		DecidedCanonicalCodes: decided,
		Status:                model.StatusDecided,
		Method:                MethodPolicyEvidence,
		EvidenceSpans:         keptSpans,
	}, nil
}

func intersectCancerCanonicals(raw []string) []model.CancerCanonicalCode {
	seen := make(map[model.CancerCanonicalCode]bool)
	var out []model.CancerCanonicalCode
	for _, code := range raw {
		if model.IsCancerCanonicalCode(code) {
			c := model.CancerCanonicalCode(code)
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func appendUnique(codes []model.CancerCanonicalCode, code model.CancerCanonicalCode) []model.CancerCanonicalCode {
	for _, c := range codes {
		if c == code {
			return codes
		}
	}
	return append(codes, code)
}
