// Package canon holds the closed contract registries (spec.md §4.14) and the
// process-wide canonical coverage code registry (spec.md §5 — loaded once
// from the database, read-only thereafter). Naming convention: comparison
// result values are lower_snake_case; next_action and ux_message_code
// values are UPPER_SNAKE_CASE.
package canon

import (
	"fmt"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

// AllowedComparisonResults is the closed set from spec.md §4.10/§4.14.
var AllowedComparisonResults = map[model.ComparisonState]bool{
	model.StateComparable:         true,
	model.StateComparableWithGaps: true,
	model.StateNonComparable:      true,
	model.StateUnmapped:           true,
	model.StateOutOfUniverse:      true,
	model.StatePolicyRequired:     true,
}

// AllowedNextActions is the closed set from spec.md §4.14.
var AllowedNextActions = map[model.NextAction]bool{
	model.ActionCompare:         true,
	model.ActionRequestMoreInfo: true,
	model.ActionVerifyPolicy:    true,
}

// AllowedUXMessageCodes is the closed set enumerated in spec.md §4.10. Any
// code a caller needs that is absent here is a deliberate registry change,
// never an ad hoc string (SPEC_FULL.md Open Questions §3).
var AllowedUXMessageCodes = map[model.UXMessageCode]bool{
	model.UXCoverageMatchComparable:          true,
	model.UXCoverageUnmapped:                 true,
	model.UXDiseaseScopeVerificationRequired: true,
	model.UXCoverageNotInUniverse:            true,
	model.UXCoverageTypeMismatch:             true,
	model.UXCoverageComparableWithGaps:       true,
	model.UXCoverageFoundSingleInsurer:       true,
}

// ValidateComparisonState raises InvalidCode (as apperr.KindInternal, per
// spec.md §4.10 — "unknown code is a fatal runtime error, not a warning")
// on unknown values.
func ValidateComparisonState(s model.ComparisonState) error {
	if !AllowedComparisonResults[s] {
		return apperr.Internal(fmt.Sprintf("canon: unknown comparison_result %q", s), nil)
	}
	return nil
}

func ValidateNextAction(a model.NextAction) error {
	if !AllowedNextActions[a] {
		return apperr.Internal(fmt.Sprintf("canon: unknown next_action %q", a), nil)
	}
	return nil
}

func ValidateUXMessageCode(c model.UXMessageCode) error {
	if !AllowedUXMessageCodes[c] {
		return apperr.Internal(fmt.Sprintf("canon: unknown ux_message_code %q", c), nil)
	}
	return nil
}

// ValidateTriple validates state, action, and message together — the usual
// call shape at the orchestrator boundary (spec.md Testable Property #2).
func ValidateTriple(s model.ComparisonState, a model.NextAction, c model.UXMessageCode) error {
	if err := ValidateComparisonState(s); err != nil {
		return err
	}
	if err := ValidateNextAction(a); err != nil {
		return err
	}
	return ValidateUXMessageCode(c)
}
