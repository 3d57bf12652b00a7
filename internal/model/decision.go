package model

// CancerEvidenceType classifies a policy span (spec.md §4.3).
type CancerEvidenceType string

const (
	EvidenceDefinitionIncluded CancerEvidenceType = "DEFINITION_INCLUDED"
	EvidenceExclusion          CancerEvidenceType = "EXCLUSION"
	EvidenceSeparateBenefit    CancerEvidenceType = "SEPARATE_BENEFIT"
	EvidenceUnknown            CancerEvidenceType = "UNKNOWN"
)

// ScopeConfidence is the confidence tag on CancerScopeEvidence.
type ScopeConfidence string

const (
	ConfidenceEvidenceStrong ScopeConfidence = "evidence_strong"
	ConfidenceEvidenceWeak   ScopeConfidence = "evidence_weak"
	ConfidenceUnknown        ScopeConfidence = "unknown"
)

// DecisionStatus is DECIDED vs UNDECIDED (spec.md §3, GLOSSARY).
type DecisionStatus string

const (
	StatusDecided   DecisionStatus = "DECIDED"
	StatusUndecided DecisionStatus = "UNDECIDED"
)

// ComparisonState is the closed comparison state machine (spec.md §3, §4.14).
type ComparisonState string

const (
	StateComparable           ComparisonState = "comparable"
	StateComparableWithGaps   ComparisonState = "comparable_with_gaps"
	StateNonComparable        ComparisonState = "non_comparable"
	StateUnmapped             ComparisonState = "unmapped"
	StateOutOfUniverse        ComparisonState = "out_of_universe"
	StatePolicyRequired       ComparisonState = "policy_required"
)

// NextAction is the closed next_action set (spec.md §4.14).
type NextAction string

const (
	ActionCompare        NextAction = "COMPARE"
	ActionRequestMoreInfo NextAction = "REQUEST_MORE_INFO"
	ActionVerifyPolicy   NextAction = "VERIFY_POLICY"
)

// UXMessageCode is the closed UX message registry (spec.md §4.10).
type UXMessageCode string

const (
	UXCoverageMatchComparable           UXMessageCode = "COVERAGE_MATCH_COMPARABLE"
	UXCoverageUnmapped                  UXMessageCode = "COVERAGE_UNMAPPED"
	UXDiseaseScopeVerificationRequired  UXMessageCode = "DISEASE_SCOPE_VERIFICATION_REQUIRED"
	UXCoverageNotInUniverse             UXMessageCode = "COVERAGE_NOT_IN_UNIVERSE"
	UXCoverageTypeMismatch              UXMessageCode = "COVERAGE_TYPE_MISMATCH"
	UXCoverageComparableWithGaps        UXMessageCode = "COVERAGE_COMPARABLE_WITH_GAPS"
	UXCoverageFoundSingleInsurer        UXMessageCode = "COVERAGE_FOUND_SINGLE_INSURER"
)
