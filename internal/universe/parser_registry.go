package universe

import (
	"context"
	"sort"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

// ProposalRow is one parsed line from a proposal PDF (spec.md §6): a raw
// coverage name, an amount after unit-explosion (만원 → ×10_000, 억 →
// ×100_000_000), and an optional qualifier.
type ProposalRow struct {
	RawCoverageName string
	AmountValue     int64
	Qualifier       string
	SourcePage      int
	SpanText        string
}

// Parser is the ingestion-time contract for turning one insurer's proposal
// PDF into ProposalRow values. PDF parsing and LLM-assisted extraction are
// out of scope (spec.md Non-goals) — this interface exists so the registry
// pattern itself is preserved and callers get a structured NotImplemented
// error rather than a missing-method compile break when an insurer has no
// registered parser yet.
type Parser interface {
	ParseProposal(ctx context.Context, path string) ([]ProposalRow, error)
}

// ParserRegistry is a tagged map from insurer to parsing capability
// (spec.md §9 Design Notes: "keep the registry pattern"). Unregistered
// insurers fail closed with a NotImplemented error listing what is
// supported, rather than silently no-op'ing.
type ParserRegistry struct {
	parsers map[model.InsurerCode]Parser
}

func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[model.InsurerCode]Parser)}
}

// Register binds a Parser to an insurer. Intended to be called once per
// insurer at startup by whatever ingestion binary owns PDF parsing.
func (r *ParserRegistry) Register(insurer model.InsurerCode, p Parser) {
	r.parsers[insurer] = p
}

// Get returns the registered parser for insurer, or a NotImplemented
// apperr naming the insurers that do have one.
func (r *ParserRegistry) Get(insurer model.InsurerCode) (Parser, error) {
	p, ok := r.parsers[insurer]
	if !ok {
		supported := make([]string, 0, len(r.parsers))
		for ins := range r.parsers {
			supported = append(supported, string(ins))
		}
		sort.Strings(supported)
		return nil, apperr.NotImplemented("universe: no proposal parser registered for insurer "+string(insurer), supported)
	}
	return p, nil
}
