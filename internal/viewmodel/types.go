// Package viewmodel implements the ViewModel Assembler + Schema Guard
// (spec.md §4.13): turns a ComparisonResult into the UI-facing ViewModel.
// Assemble does not run the JSON Schema check; Validate (schema.go) is a
// separate call, and nothing in the repository calls it on the compare path.
//
// Grounded in spec.md §4.13 (view_model/assembler.py in original_source).
package viewmodel

// Header carries the raw and normalized query (spec.md §4.13).
type Header struct {
	UserQuery       string `json:"user_query"`
	NormalizedQuery string `json:"normalized_query"`
}

// InsurerSnapshot is one insurer's row in the Snapshot.
type InsurerSnapshot struct {
	Insurer             string  `json:"insurer"`
	HeadlineAmount      *string `json:"headline_amount,omitempty"`
	Status              string  `json:"status"`
}

// Snapshot summarizes the comparison basis and per-insurer headline state.
type Snapshot struct {
	ComparisonBasis string            `json:"comparison_basis"`
	PerInsurer      []InsurerSnapshot `json:"per_insurer"`
}

// FactRow is one row of the fact table (spec.md §4.13).
type FactRow struct {
	Insurer                     string  `json:"insurer"`
	CoverageTitle                string  `json:"coverage_title"`
	RowStatus                    string  `json:"row_status"`
	NoteText                     *string `json:"note_text,omitempty"`
	ComparisonDescription        *string `json:"comparison_description,omitempty"`
	ComparisonDescriptionSource  *string `json:"comparison_description_source,omitempty"`
}

// EvidencePanel is a registered evidence excerpt, referenced by ID from
// fact table rows and amounts (spec.md §4.13).
type EvidencePanel struct {
	ID      string `json:"id"`
	Insurer string `json:"insurer"`
	DocType string `json:"doc_type"`
	Excerpt string `json:"excerpt"`
}

// Debug carries optional resolved-code and retrieval diagnostics.
type Debug struct {
	ResolvedCoverageCodes []string       `json:"resolved_coverage_codes,omitempty"`
	RetrievalInfo         map[string]any `json:"retrieval_info,omitempty"`
	Warnings              []string       `json:"warnings,omitempty"`
}

// ViewModel is the complete UI-facing output of one comparison request.
type ViewModel struct {
	Header         Header          `json:"header"`
	Snapshot       Snapshot        `json:"snapshot"`
	FactTable      []FactRow       `json:"fact_table"`
	EvidencePanels []EvidencePanel `json:"evidence_panels"`
	Debug          *Debug          `json:"debug,omitempty"`
}
