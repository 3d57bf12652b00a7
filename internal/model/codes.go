// Package model holds the domain entities shared across the comparison
// engine: canonical coverage codes, insurer and document-type registries,
// proposal universe rows, cancer canonical decisions, and the transient
// comparison/view-model shapes assembled per request.
package model

import (
	"fmt"
	"strings"
	"unicode"
)

// InsurerCode is a closed finite set (spec.md §3).
type InsurerCode string

const (
	InsurerSamsung  InsurerCode = "SAMSUNG"
	InsurerHanwha   InsurerCode = "HANWHA"
	InsurerLotte    InsurerCode = "LOTTE"
	InsurerMeritz   InsurerCode = "MERITZ"
	InsurerKB       InsurerCode = "KB"
	InsurerHyundai  InsurerCode = "HYUNDAI"
	InsurerHeungkuk InsurerCode = "HEUNGKUK"
	InsurerDB       InsurerCode = "DB"
)

var allInsurers = []InsurerCode{
	InsurerSamsung, InsurerHanwha, InsurerLotte, InsurerMeritz,
	InsurerKB, InsurerHyundai, InsurerHeungkuk, InsurerDB,
}

// Valid reports whether code is a member of the closed insurer set.
func (c InsurerCode) Valid() bool {
	for _, ins := range allInsurers {
		if ins == c {
			return true
		}
	}
	return false
}

// AllInsurers returns the closed insurer set, in registry order.
func AllInsurers() []InsurerCode {
	out := make([]InsurerCode, len(allInsurers))
	copy(out, allInsurers)
	return out
}

// DocumentType is a closed finite set with a fixed evidence priority order
// (spec.md §3): PROPOSAL < PRODUCT_SUMMARY < BUSINESS_METHOD < POLICY.
type DocumentType string

const (
	DocProposal       DocumentType = "PROPOSAL"
	DocProductSummary DocumentType = "PRODUCT_SUMMARY"
	DocBusinessMethod DocumentType = "BUSINESS_METHOD"
	DocPolicy         DocumentType = "POLICY"
)

// docTypePriority fixes the ordering contract used by evidence grouping
// (spec.md §4.10): the index is the sort key, lower sorts first.
var docTypePriority = map[DocumentType]int{
	DocProposal:       0,
	DocProductSummary: 1,
	DocBusinessMethod: 2,
	DocPolicy:         3,
}

// Priority returns the fixed ordering rank of d, or -1 if d is not a
// registered document type.
func (d DocumentType) Priority() int {
	p, ok := docTypePriority[d]
	if !ok {
		return -1
	}
	return p
}

func (d DocumentType) Valid() bool {
	_, ok := docTypePriority[d]
	return ok
}

// CancerCanonicalCode is the closed, constitutional set of cancer canonical
// codes (spec.md §3). Modifying this set requires an explicit schema
// amendment — it is never derived or inferred at runtime.
type CancerCanonicalCode string

const (
	CancerGeneral    CancerCanonicalCode = "CA_DIAG_GENERAL"
	CancerSimilar    CancerCanonicalCode = "CA_DIAG_SIMILAR"
	CancerInSitu     CancerCanonicalCode = "CA_DIAG_IN_SITU"
	CancerBorderline CancerCanonicalCode = "CA_DIAG_BORDERLINE"
)

var allCancerCanonicals = []CancerCanonicalCode{
	CancerGeneral, CancerSimilar, CancerInSitu, CancerBorderline,
}

// AllCancerCanonicals returns the four constitutional cancer canonicals.
func AllCancerCanonicals() []CancerCanonicalCode {
	out := make([]CancerCanonicalCode, len(allCancerCanonicals))
	copy(out, allCancerCanonicals)
	return out
}

// IsCancerCanonicalCode reports whether code is one of the four
// constitutional cancer canonicals.
func IsCancerCanonicalCode(code string) bool {
	for _, c := range allCancerCanonicals {
		if string(c) == code {
			return true
		}
	}
	return false
}

// cancerDisplayNames mirrors cancer_canonical.py's CANONICAL_DISPLAY_NAMES.
var cancerDisplayNames = map[CancerCanonicalCode]string{
	CancerGeneral:    "일반암진단비",
	CancerSimilar:    "유사암진단비",
	CancerInSitu:     "제자리암진단비",
	CancerBorderline: "경계성종양진단비",
}

// CancerDisplayName returns the Korean display name for a cancer canonical
// code. Returns an empty string for anything outside the closed set.
func CancerDisplayName(code CancerCanonicalCode) string {
	return cancerDisplayNames[code]
}

// LegacyToCanonical maps retired/legacy cancer code spellings — carried over
// from older Excel workbook revisions or older policy text — to the current
// four constitutional canonicals. Consulted by the Alias Index
// (SPEC_FULL.md §D.1); never by the compare path
// directly, since by the time a code reaches the compare path it has
// already been resolved through this map.
var LegacyToCanonical = map[string]CancerCanonicalCode{
	"CA001":       CancerGeneral,
	"CA_GENERAL":  CancerGeneral,
	"CA002":       CancerSimilar,
	"CA_SIMILAR":  CancerSimilar,
	"CA_SKIN_ETC": CancerSimilar,
	"CA003":       CancerInSitu,
	"CA_INSITU":   CancerInSitu,
	"CA004":       CancerBorderline,
	"CA_BORDERLINE_TUMOR": CancerBorderline,
}

// MappingStatus is the status of a CoverageMapping (spec.md §3).
type MappingStatus string

const (
	MappingMapped    MappingStatus = "MAPPED"
	MappingUnmapped  MappingStatus = "UNMAPPED"
	MappingAmbiguous MappingStatus = "AMBIGUOUS"
)

// SourceConfidence is the confidence tag on CoverageSlots.source_confidence.
type SourceConfidence string

const (
	SourceProposalConfirmed SourceConfidence = "proposal_confirmed"
	SourcePolicyRequired    SourceConfidence = "policy_required"
	SourceUnknown           SourceConfidence = "unknown"
)

// CanonicalCode validation error helper: a non-cancer canonical code is a
// validated string drawn from coverage_standard (loaded at startup); this
// type marks the boundary where an unvalidated string becomes trusted.
type CanonicalCode string

// ValidateCanonicalCode checks the shape of a canonical code. Callers
// needing DB-loaded registries should use canon.Registry instead; this
// helper only validates shape (non-empty, no whitespace).
func ValidateCanonicalCode(code string) error {
	if code == "" {
		return fmt.Errorf("model: canonical code must not be empty")
	}
	if strings.IndexFunc(code, unicode.IsSpace) >= 0 {
		return fmt.Errorf("model: canonical code must not contain whitespace")
	}
	return nil
}
