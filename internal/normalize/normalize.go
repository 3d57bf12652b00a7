// Package normalize implements the deterministic text-to-match-key
// transformation used by both the Alias Index (at ingestion) and compare
// queries (at request time). It must never drift between the two call
// sites — the same function backs both (spec.md §4.1, Testable Property #7).
//
// Grounded in original_source/apps/api/app/ah/alias_normalizer.py.
package normalize

import (
	"regexp"
	"strings"
)

// bracketPattern strips any bracketed substring in ASCII parentheses or
// square brackets; full-width bracket pairs are not matched.
var bracketPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

// romanNumeralPattern strips the Unicode Roman numeral glyphs (Ⅰ-Ⅴ) used
// as coverage-name version markers in real proposal text, e.g. "암보장특약Ⅱ".
var romanNumeralPattern = regexp.MustCompile(`[ⅠⅡⅢⅣⅤ]+`)

// digitDaePattern strips the Korean ordinal marker pattern "<digit>대"
// (e.g. "5대", "3대") used to denote coverage-bundle versions.
var digitDaePattern = regexp.MustCompile(`\d+대`)

// whitespacePattern collapses any run of whitespace, including the
// no-break space (U+00A0) which shows up in some Excel exports.
var whitespacePattern = regexp.MustCompile(`[\s\x{00A0}]+`)

// Normalize applies the five ordered rules from spec.md §4.1:
//  1. trim outer whitespace
//  2. remove bracketed substrings
//  3. strip Roman numeral / "<digit>대" version markers
//  4. collapse all internal whitespace to nothing
//  5. lowercase
//
// Pure function: empty input yields empty output, and the same input
// always yields the same output (no locale, no time, no randomness).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = bracketPattern.ReplaceAllString(s, "")
	s = romanNumeralPattern.ReplaceAllString(s, "")
	s = digitDaePattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	return s
}

// Metadata carries side-channel flags extracted during normalization.
// These flags feed policy-evidence extraction; they are never part of the
// match key produced by Normalize.
type Metadata struct {
	MatchKey      string
	HasExclusion  bool
	HasPayoutRate bool
}

var (
	exclusionClausePattern  = regexp.MustCompile(`\([^)]*제외[^)]*\)`)
	payoutRatePattern       = regexp.MustCompile(`\(\s*\d+\s*년\s*\d+\s*%\s*\)`)
)

// NormalizeWithMetadata runs Normalize and additionally extracts conditional
// clauses — exclusions like "(유사암 제외)" and payout-rate markers like
// "(1년50%)" — into a side channel, matching alias_normalizer.py's
// normalize_with_metadata.
func NormalizeWithMetadata(raw string) Metadata {
	return Metadata{
		MatchKey:      Normalize(raw),
		HasExclusion:  exclusionClausePattern.MatchString(raw),
		HasPayoutRate: payoutRatePattern.MatchString(raw),
	}
}

// cancerFillerSuffixes are stripped by NormalizeCancerQuery in addition to
// the five generic rules, so phrasing variants like "암진단금" and
// "암진단비" both resolve to the same cancer query key. This is a
// supplemental pass (SPEC_FULL.md §D.1) with no caller outside its tests;
// the Alias Index's cancer guardrail does not use it, and it never replaces
// Normalize for the generic match key.
var cancerFillerSuffixes = []string{"진단금", "진단비", "진단특약", "특약"}

// NormalizeCancerQuery normalizes raw the same way Normalize does, then
// additionally strips trailing cancer-query filler suffixes so that
// "일반암진단금" and "일반암진단비" both normalize to "일반암".
func NormalizeCancerQuery(raw string) string {
	s := Normalize(raw)
	for _, suffix := range cancerFillerSuffixes {
		s = strings.TrimSuffix(s, strings.ToLower(suffix))
	}
	return s
}
