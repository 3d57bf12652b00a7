package viewmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/viewmodel"
)

func TestValidateAcceptsWellFormedViewModel(t *testing.T) {
	vm := viewmodel.ViewModel{
		Header:   viewmodel.Header{UserQuery: "q", NormalizedQuery: "q"},
		Snapshot: viewmodel.Snapshot{ComparisonBasis: "CA_DIAG_GENERAL", PerInsurer: []viewmodel.InsurerSnapshot{{Insurer: "DB", Status: "comparable"}}},
		FactTable: []viewmodel.FactRow{
			{Insurer: "DB", CoverageTitle: "일반암진단비", RowStatus: "MATCHED"},
		},
		EvidencePanels: []viewmodel.EvidencePanel{
			{ID: "ev_db_prop_001", Insurer: "DB", DocType: "PROPOSAL", Excerpt: "충분히 긴 발췌문입니다 이상입니다 감사합니다 충분히"},
		},
	}
	require.NoError(t, viewmodel.Validate(vm))
}

func TestValidateRejectsShortExcerpt(t *testing.T) {
	vm := viewmodel.ViewModel{
		Header:   viewmodel.Header{UserQuery: "q", NormalizedQuery: "q"},
		Snapshot: viewmodel.Snapshot{ComparisonBasis: "CA_DIAG_GENERAL", PerInsurer: []viewmodel.InsurerSnapshot{{Insurer: "DB", Status: "comparable"}}},
		FactTable: []viewmodel.FactRow{
			{Insurer: "DB", CoverageTitle: "일반암진단비", RowStatus: "MATCHED"},
		},
		EvidencePanels: []viewmodel.EvidencePanel{
			{ID: "ev_db_prop_001", Insurer: "DB", DocType: "PROPOSAL", Excerpt: "too short"},
		},
	}
	err := viewmodel.Validate(vm)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchemaInvalid, apperr.KindOf(err))
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	vm := viewmodel.ViewModel{}
	err := viewmodel.Validate(vm)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchemaInvalid, apperr.KindOf(err))
}
