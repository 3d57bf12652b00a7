package viewmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/viewmodel"
)

type fakeDetails struct{}

func (fakeDetails) Lookup(templateID, insurerCoverageName string) (string, string, bool) {
	if templateID == "cancer-v1" && insurerCoverageName == "일반암진단비" {
		return "3대 진단비 항목", "manual_review", true
	}
	return "", "", false
}

func coverage(insurer model.InsurerCode, amount int64, mappingStatus model.MappingStatus) *model.FullCoverage {
	code := "CA_DIAG_GENERAL"
	return &model.FullCoverage{
		Universe: model.ProposalCoverage{Insurer: insurer, RawCoverageName: "일반암진단비", AmountValue: amount},
		Mapping:  model.CoverageMapping{CanonicalCoverageCode: &code, Status: mappingStatus},
	}
}

func TestAssembleSortsFactTableAndPopulatesSnapshot(t *testing.T) {
	a := viewmodel.NewAssembler(fakeDetails{})
	result := compare.ComparisonResult{
		Query:        "일반암진단비",
		ResolvedCode: "CA_DIAG_GENERAL",
		CoverageA:    coverage(model.InsurerKB, 30_000_000, model.MappingMapped),
		CoverageB:    coverage(model.InsurerDB, 50_000_000, model.MappingMapped),
		State:        model.StateComparable,
		EvidenceGroups: map[model.DocumentType][]model.CoverageEvidence{
			model.DocProposal: {
				{InsurerCode: model.InsurerKB, SourceDocType: model.DocProposal, SourcePage: 1, Excerpt: "일반암진단비로 삼천만원을 지급합니다 관련 약관 참조"},
			},
		},
	}

	vm, err := a.Assemble("일반암진단비", " 일반암진단비 ", "cancer-v1", result)
	require.NoError(t, err)

	assert.Equal(t, "일반암진단비", vm.Header.NormalizedQuery)
	require.Len(t, vm.FactTable, 2)
	assert.Equal(t, string(model.InsurerDB), vm.FactTable[0].Insurer, "DB sorts before KB")
	require.NotNil(t, vm.FactTable[1].ComparisonDescription)
	assert.Equal(t, "3대 진단비 항목", *vm.FactTable[1].ComparisonDescription)

	require.Len(t, vm.EvidencePanels, 1)
	assert.Regexp(t, `^ev_kb_prop_\d{3}$`, vm.EvidencePanels[0].ID)
}

func TestAssembleNoteTextForUnmappedAndAmbiguous(t *testing.T) {
	a := viewmodel.NewAssembler(nil)
	unmapped := coverage(model.InsurerKB, 0, model.MappingUnmapped)
	result := compare.ComparisonResult{
		CoverageA: unmapped,
		State:     model.StateUnmapped,
		EvidenceGroups: map[model.DocumentType][]model.CoverageEvidence{
			model.DocProposal: {{InsurerCode: model.InsurerKB, SourceDocType: model.DocProposal, SourcePage: 1, Excerpt: "충분히 긴 발췌문입니다 이상입니다 감사합니다"}},
		},
	}
	vm, err := a.Assemble("q", "q", "", result)
	require.NoError(t, err)
	require.NotNil(t, vm.FactTable[0].NoteText)
	assert.Equal(t, "(UNMAPPED)", *vm.FactTable[0].NoteText)
}

func TestFormatManwonViaSnapshot(t *testing.T) {
	a := viewmodel.NewAssembler(nil)
	result := compare.ComparisonResult{
		CoverageA: coverage(model.InsurerKB, 12_340_000, model.MappingMapped),
		State:     model.StateComparable,
		EvidenceGroups: map[model.DocumentType][]model.CoverageEvidence{
			model.DocProposal: {{InsurerCode: model.InsurerKB, SourceDocType: model.DocProposal, SourcePage: 1, Excerpt: "충분히 긴 발췌문입니다 이상입니다 감사합니다"}},
		},
	}
	vm, err := a.Assemble("q", "q", "", result)
	require.NoError(t, err)
	require.NotNil(t, vm.Snapshot.PerInsurer[0].HeadlineAmount)
	assert.Equal(t, "1,234만원", *vm.Snapshot.PerInsurer[0].HeadlineAmount)
}
