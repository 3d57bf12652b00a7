// Package aliasindex builds and serves the Excel-backed alias index
// (spec.md §4.2): a map from normalized alias to the set of canonical
// codes it can resolve to, plus the cancer guardrail expansion.
//
// Grounded in original_source/apps/api/app/ah/alias_index.py. Modeled as
// initialize-then-freeze state (spec.md §5, §9 Design Notes): Load is a
// one-shot constructor; every other method is read-only thereafter.
// Concurrent cold-start callers are deduplicated with singleflight so a
// burst of requests during startup triggers exactly one Excel parse.
package aliasindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/qax-os/excelize/v2"
	"golang.org/x/sync/singleflight"

	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/normalize"
)

// Expected Excel column headers (spec.md §6, exact names).
const (
	colInsurerCode    = "ins_cd"
	colInsurerName    = "보험사명"
	colCanonicalCode  = "cre_cvr_cd"
	colCanonicalName  = "신정원코드명"
	colRawAlias       = "담보명(가입설계서)"
)

// cancerKeywords triggers the cancer guardrail during ResolveQuery (spec.md §4.2).
var cancerKeywords = []string{"암진단", "일반암", "유사암", "제자리암", "경계성종양", "기타피부암", "갑상선암"}

// Index is the immutable, process-wide alias index. Zero value is not
// usable — construct with New and populate with Load.
type Index struct {
	mu          sync.RWMutex
	loaded      bool
	aliasToCode map[string]map[string]bool // normalized alias -> set of canonical codes
	displayName map[string]string          // canonical code -> display name
	group       singleflight.Group
}

func New() *Index {
	return &Index{aliasToCode: make(map[string]map[string]bool), displayName: make(map[string]string)}
}

// Load reads the alias workbook from path and freezes the index. If the
// Excel source is absent, construction fails and downstream components
// must refuse to proceed (spec.md §4.2) — this is a fatal startup error,
// not a lazily-retried one.
func (idx *Index) Load(_ context.Context, path string) error {
	_, err, _ := idx.group.Do("load", func() (any, error) {
		return nil, idx.loadFromExcel(path)
	})
	return err
}

func (idx *Index) loadFromExcel(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("aliasindex: open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("aliasindex: read rows: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("aliasindex: workbook %s has no rows", path)
	}

	colIdx, err := headerIndex(rows[0])
	if err != nil {
		return err
	}

	aliasToCode := make(map[string]map[string]bool)
	displayName := make(map[string]string)

	for _, row := range rows[1:] {
		canonicalCode := cellAt(row, colIdx[colCanonicalCode])
		canonicalName := cellAt(row, colIdx[colCanonicalName])
		rawAlias := cellAt(row, colIdx[colRawAlias])
		if canonicalCode == "" || rawAlias == "" {
			continue
		}
		if mapped, ok := model.LegacyToCanonical[canonicalCode]; ok {
			canonicalCode = string(mapped)
		}

		key := normalize.Normalize(rawAlias)
		if key == "" {
			continue
		}
		if aliasToCode[key] == nil {
			aliasToCode[key] = make(map[string]bool)
		}
		aliasToCode[key][canonicalCode] = true
		if canonicalName != "" {
			displayName[canonicalCode] = canonicalName
		}
	}

	idx.mu.Lock()
	idx.aliasToCode = aliasToCode
	idx.displayName = displayName
	idx.loaded = true
	idx.mu.Unlock()
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, required := range []string{colInsurerCode, colInsurerName, colCanonicalCode, colCanonicalName, colRawAlias} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("aliasindex: missing required column %q", required)
		}
	}
	return idx, nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ResolveQuery returns a sorted, deduplicated list of canonical codes for
// query. If the query is cancer-related and applyCancerGuardrail is true,
// the result is unioned with all four cancer canonicals (over-recall by
// design — every insurer carrying any cancer canonical is included in
// recall; see spec.md §4.2).
func (idx *Index) ResolveQuery(query string, applyCancerGuardrail bool) []string {
	key := normalize.Normalize(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)
	for code := range idx.aliasToCode[key] {
		seen[code] = true
	}

	if applyCancerGuardrail && isCancerQuery(query) {
		for _, c := range model.AllCancerCanonicals() {
			seen[string(c)] = true
		}
	}

	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func isCancerQuery(query string) bool {
	stripped := strings.ReplaceAll(query, " ", "")
	for _, kw := range cancerKeywords {
		if strings.Contains(stripped, kw) {
			return true
		}
	}
	return false
}

// GetDisplayName returns the canonical code's display name, or "" if not
// present in the workbook (cancer canonicals use model.CancerDisplayName
// instead, since their names are fixed, not workbook-sourced).
func (idx *Index) GetDisplayName(code string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.displayName[code]
}

// Stats reports basic index size for diagnostics.
type Stats struct {
	AliasCount   int
	Loaded       bool
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{AliasCount: len(idx.aliasToCode), Loaded: idx.loaded}
}
