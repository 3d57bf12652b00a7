package model

import "time"

// ProposalCoverage is a row in proposal_coverage_universe: immutable after
// ingestion, owned exclusively by the ingestion layer, read-only to the
// core. (insurer, normalized_name) is the Universe Lock key (spec.md §3).
type ProposalCoverage struct {
	UniverseID       string
	Insurer          InsurerCode
	ProposalID       string
	RawCoverageName  string
	NormalizedName   string
	Currency         string
	AmountValue      int64
	PayoutAmountUnit string
	SourcePage       int
	SpanText         string
	ContentHash      string
}

// CoverageMapping is attached 1-to-1 to a ProposalCoverage (proposal_coverage_mapped).
type CoverageMapping struct {
	UniverseID           string
	CanonicalCoverageCode *string // non-nil iff Status == MappingMapped
	Status               MappingStatus
	MappingEvidence      map[string]any
}

// PayoutLimit is a small tagged record (spec.md §3): {type, count?, period?}.
type PayoutLimitType string

const (
	PayoutOnce      PayoutLimitType = "once"
	PayoutMultiple  PayoutLimitType = "multiple"
	PayoutUnlimited PayoutLimitType = "unlimited"
)

type PayoutLimit struct {
	Type   PayoutLimitType
	Count  *int
	Period *string
}

// DiseaseScopeNorm is a pair of group references, never raw code arrays
// (spec.md GLOSSARY).
type DiseaseScopeNorm struct {
	IncludeGroupID string
	ExcludeGroupID *string
}

// CoverageSlots is attached 1-to-1 to a MAPPED CoverageMapping.
type CoverageSlots struct {
	MappedID            string
	EventType            string
	DiseaseScopeRaw       string
	DiseaseScopeNorm      *DiseaseScopeNorm
	WaitingPeriodDays     int
	ReductionPeriods      []ReductionPeriod
	PayoutLimit           *PayoutLimit
	TreatmentMethod       []string
	HospitalizationExclusions []string
	RenewalFlag           bool
	RenewalPeriodYears    *int
	SourceConfidence      SourceConfidence
	QualificationSuffix   string
	Evidence              map[string]any
}

type ReductionPeriod struct {
	Years       int
	PercentPaid int
}

// FullCoverage is the single joined-row shape spec.md §9 asks for (universe
// ↔ mapped ↔ slots in one query), keeping the Universe Lock explicit at the
// type level instead of three ORM-style fetches.
type FullCoverage struct {
	Universe ProposalCoverage
	Mapping  CoverageMapping
	Slots    *CoverageSlots // nil unless Mapping.Status == MappingMapped
}

// CoverageEvidence is a keyword-recallable policy span (coverage_evidence),
// read-only to the core.
type CoverageEvidence struct {
	InsurerCode          InsurerCode
	SourceDocType        DocumentType
	SourceDocID          string
	SourcePage           int
	Excerpt              string
	CanonicalCoverageCode *string
	EvidenceType          *string
}

// DiseaseCodeGroup is a named set of KCD-7 codes (disease_code_group).
type DiseaseCodeGroup struct {
	GroupID    string
	Label      string
	Insurer    *InsurerCode // nil only for neutral medical ranges
	VersionTag string
	BasisDocID string
	BasisPage  int
	BasisSpan  string
}

// DiseaseCodeGroupMember is a group membership: single code, or a range.
type DiseaseCodeGroupMember struct {
	GroupID  string
	Code     *string // single-code member; FK to disease_code_master
	CodeFrom *string // range member
	CodeTo   *string
}

// MappingEventState is the lifecycle state of a MappingEvent.
type MappingEventState string

const (
	EventOpen     MappingEventState = "OPEN"
	EventApproved MappingEventState = "APPROVED"
	EventRejected MappingEventState = "REJECTED"
	EventSnoozed  MappingEventState = "SNOOZED"
)

// ResolutionType is how an APPROVED MappingEvent was resolved.
type ResolutionType string

const (
	ResolutionAlias   ResolutionType = "ALIAS"
	ResolutionNameMap ResolutionType = "NAME_MAP"
)

// MappingEvent is an UNMAPPED/AMBIGUOUS event captured by the compare
// pipeline and durably resolved by the admin workbench.
type MappingEvent struct {
	EventID          string
	Insurer          InsurerCode
	RawCoverageTitle string
	QueryText        string
	NormalizedQuery  string
	DetectedStatus   MappingStatus
	CandidateCodes   []string
	EvidenceRefIDs   []string
	State            MappingEventState
	ResolutionType   *ResolutionType
	ResolvedCode     *string
	ResolvedBy       *string
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AuditLogEntry is an append-only record of admin actions.
type AuditLogEntry struct {
	EntryID        string
	Actor          string
	Action         string
	Target         string
	Before         map[string]any
	After          map[string]any
	EvidenceRefIDs []string
	CreatedAt      time.Time
}
