// Package compiler implements the Deterministic Compiler (spec.md §4.9):
// turns a free-text user request into a compiled comparison request plus a
// reproducible decision trace. No network, no timer, no randomness —
// identical input always yields byte-identical output.
//
// Grounded in spec.md §4.9 (compiler.py / rules.py / schemas.py in
// original_source).
package compiler

import (
	"sort"
	"strings"

	"github.com/covercompare/engine/internal/model"
)

// RuleVersion is bumped whenever the compilation rules below change; it
// travels in CompilerDebug so golden-snapshot tests can detect drift.
const RuleVersion = "compiler_rules_v1"

// domainKeywords maps a query substring to the domain it signals (spec.md
// §4.9 step 2). Checked in slice order; first match wins.
var domainKeywords = []struct {
	keyword string
	domain  string
}{
	{"암진단비", "cancer"},
	{"암진단금", "cancer"},
	{"수술비", "surgery"},
	{"입원비", "hospitalization"},
	{"사망보험금", "death"},
}

// mainCoveragePriority lists each domain's main-coverage query, in
// priority order, used as comparison_basis when none was explicitly
// selected (spec.md §4.9 step 2).
var mainCoveragePriority = map[string][]string{
	"cancer":          {"일반암진단비", "유사암진단비", "제자리암진단비", "경계성종양진단비"},
	"surgery":         {"암수술비", "질병수술비", "상해수술비"},
	"hospitalization": {"질병입원일당", "상해입원일당"},
	"death":           {"일반사망보험금", "질병사망보험금"},
}

var allowedSurgeryMethods = map[string]bool{"da_vinci": true, "robot": true, "laparoscopic": true, "any": true}

var allowedCancerSubtypes = map[string]bool{"제자리암": true, "경계성종양": true, "유사암": true, "일반암": true}

var allowedComparisonFocus = map[string]bool{"amount": true, "definition": true, "condition": true}

// Options mirrors the request's optional refinement slots.
type Options struct {
	SurgeryMethod    string
	CancerSubtypes   []string
	ComparisonFocus  string
}

// Request is the compiler's input (spec.md §4.9).
type Request struct {
	UserQuery              string
	SelectedInsurers       []model.InsurerCode
	SelectedComparisonBasis string
	Options                Options
}

// CompiledRequest is what the Compare Orchestrator consumes.
type CompiledRequest struct {
	Query               string
	InsurerA             *model.InsurerCode
	InsurerB             *model.InsurerCode
	IncludePolicyEvidence bool
}

// CompilerDebug is the reproducible decision trace (spec.md §4.9 step 4).
type CompilerDebug struct {
	RuleVersion    string
	SelectedSlots  map[string]any
	DecisionTrace  []string
	Warnings       []string
}

// Result bundles the compiled request with its debug trace.
type Result struct {
	CompiledRequest CompiledRequest
	CompilerDebug   CompilerDebug
}

// Compile implements spec.md §4.9 steps 1-4.
func Compile(req Request) Result {
	var trace []string
	var warnings []string
	slots := make(map[string]any)

	trace = append(trace, "record selected insurers")
	if len(req.SelectedInsurers) < 2 {
		warnings = append(warnings, "fewer than 2 insurers selected")
	}

	basis := req.SelectedComparisonBasis
	if basis != "" {
		trace = append(trace, "comparison_basis explicitly selected")
	} else {
		domain, ok := detectDomain(req.UserQuery)
		if ok {
			priority := mainCoveragePriority[domain]
			if len(priority) > 0 {
				basis = priority[0]
			}
			trace = append(trace, "comparison_basis detected from domain keyword map: "+domain)
		} else {
			warnings = append(warnings, "no basis detected")
			trace = append(trace, "no domain keyword matched")
		}
	}

	if req.Options.SurgeryMethod != "" {
		if allowedSurgeryMethods[req.Options.SurgeryMethod] {
			slots["surgery_method"] = req.Options.SurgeryMethod
			trace = append(trace, "normalized surgery_method")
		} else {
			warnings = append(warnings, "unrecognized surgery_method: "+req.Options.SurgeryMethod)
		}
	}

	if len(req.Options.CancerSubtypes) > 0 {
		var recognized []string
		for _, st := range req.Options.CancerSubtypes {
			if allowedCancerSubtypes[st] {
				recognized = append(recognized, st)
			} else {
				warnings = append(warnings, "unrecognized cancer_subtype: "+st)
			}
		}
		sort.Strings(recognized)
		if len(recognized) > 0 {
			slots["cancer_subtypes"] = recognized
			trace = append(trace, "normalized cancer_subtypes")
		}
	}

	if req.Options.ComparisonFocus != "" {
		if allowedComparisonFocus[req.Options.ComparisonFocus] {
			slots["comparison_focus"] = req.Options.ComparisonFocus
			trace = append(trace, "normalized comparison_focus")
		} else {
			warnings = append(warnings, "unrecognized comparison_focus: "+req.Options.ComparisonFocus)
		}
	}

	query := basis
	if query == "" {
		query = req.UserQuery
	}

	var insurerA, insurerB *model.InsurerCode
	if len(req.SelectedInsurers) > 0 {
		a := req.SelectedInsurers[0]
		insurerA = &a
	}
	if len(req.SelectedInsurers) > 1 {
		b := req.SelectedInsurers[1]
		insurerB = &b
	}

	return Result{
		CompiledRequest: CompiledRequest{
			Query:                 query,
			InsurerA:              insurerA,
			InsurerB:              insurerB,
			IncludePolicyEvidence: true,
		},
		CompilerDebug: CompilerDebug{
			RuleVersion:   RuleVersion,
			SelectedSlots: slots,
			DecisionTrace: trace,
			Warnings:      warnings,
		},
	}
}

func detectDomain(query string) (string, bool) {
	for _, dk := range domainKeywords {
		if strings.Contains(query, dk.keyword) {
			return dk.domain, true
		}
	}
	return "", false
}

// RequiredSelection describes one thing the UI must ask the user next
// (spec.md §4.9: detect_clarification_needed).
type RequiredSelection struct {
	Field  string
	Reason string
}

// DetectClarificationNeeded implements spec.md §4.9's clarification check.
func DetectClarificationNeeded(query string, insurers []model.InsurerCode) []RequiredSelection {
	var out []RequiredSelection

	if len(insurers) < 2 {
		out = append(out, RequiredSelection{Field: "selected_insurers", Reason: "fewer than 2 insurers selected"})
	}

	if strings.Contains(query, "로봇") && strings.Contains(query, "복강경") {
		out = append(out, RequiredSelection{Field: "surgery_method", Reason: "ambiguous surgery_method"})
	}

	subtypeHits := 0
	for st := range allowedCancerSubtypes {
		if strings.Contains(query, st) {
			subtypeHits++
		}
	}
	if subtypeHits > 1 {
		out = append(out, RequiredSelection{Field: "cancer_subtypes", Reason: "multiple cancer subtypes in query"})
	}

	if _, ok := detectDomain(query); !ok {
		out = append(out, RequiredSelection{Field: "comparison_focus", Reason: "unclear focus"})
	}

	return out
}
