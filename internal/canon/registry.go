package canon

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/covercompare/engine/internal/model"
)

// CoverageStandard is one row of the canonical master table
// (coverage_standard, spec.md §6) — read-only to the core, never written.
type CoverageStandard struct {
	CoverageCode string
	CoverageName string
}

// standardLoader is satisfied by *storage.DB without importing storage here
// (canon sits below storage in the dependency graph).
type standardLoader interface {
	ListCoverageStandards(ctx context.Context) ([]CoverageStandard, error)
}

// Registry is the process-wide canonical coverage code registry (spec.md
// §5: "process-wide read-only map loaded from a migration"). It is
// initialize-then-freeze: Load populates it once, and every other method is
// read-only. Changes are picked up only by calling Load again, which
// replaces the snapshot — nothing reloads it automatically.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string // coverage_code -> coverage_name
}

func New() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Load fetches the full coverage_standard table and freezes it into the
// registry. Safe to call once at startup; calling it again replaces the
// frozen snapshot atomically.
func (r *Registry) Load(ctx context.Context, loader standardLoader) error {
	rows, err := loader.ListCoverageStandards(ctx)
	if err != nil {
		return fmt.Errorf("canon: load coverage_standard: %w", err)
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.CoverageCode] = row.CoverageName
	}
	r.mu.Lock()
	r.names = names
	r.mu.Unlock()
	return nil
}

// Exists reports whether code is a known canonical coverage code — either a
// non-cancer code from coverage_standard, or one of the four constitutional
// cancer canonicals (which are fixed in code, not loaded from the table).
func (r *Registry) Exists(code string) bool {
	if model.IsCancerCanonicalCode(code) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[code]
	return ok
}

// DisplayName returns the canonical coverage's display name, or the cancer
// canonical's fixed Korean display name, or "" if code is unknown.
func (r *Registry) DisplayName(code string) string {
	if model.IsCancerCanonicalCode(code) {
		return model.CancerDisplayName(model.CancerCanonicalCode(code))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[code]
}

// Size returns the number of loaded non-cancer canonical codes, for
// diagnostics.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Codes returns a sorted snapshot of all loaded non-cancer canonical codes.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for code := range r.names {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
