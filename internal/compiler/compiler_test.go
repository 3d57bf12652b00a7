package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/compiler"
	"github.com/covercompare/engine/internal/model"
)

func TestCompileDetectsDomainAndMainCoverage(t *testing.T) {
	result := compiler.Compile(compiler.Request{
		UserQuery:        "삼성 암진단비 비교해줘",
		SelectedInsurers: []model.InsurerCode{model.InsurerSamsung, model.InsurerDB},
	})
	assert.Equal(t, "일반암진단비", result.CompiledRequest.Query)
	assert.True(t, result.CompiledRequest.IncludePolicyEvidence)
	assert.Empty(t, result.CompilerDebug.Warnings)
}

func TestCompileExplicitBasisTakesPrecedenceOverDomainDetection(t *testing.T) {
	result := compiler.Compile(compiler.Request{
		UserQuery:               "암진단비",
		SelectedComparisonBasis: "유사암진단비",
		SelectedInsurers:        []model.InsurerCode{model.InsurerDB, model.InsurerKB},
	})
	assert.Equal(t, "유사암진단비", result.CompiledRequest.Query)
}

func TestCompileWarnsWhenFewerThanTwoInsurers(t *testing.T) {
	result := compiler.Compile(compiler.Request{
		UserQuery:        "암진단비",
		SelectedInsurers: []model.InsurerCode{model.InsurerDB},
	})
	assert.Contains(t, result.CompilerDebug.Warnings, "fewer than 2 insurers selected")
}

func TestCompileWarnsWhenNoBasisDetected(t *testing.T) {
	result := compiler.Compile(compiler.Request{
		UserQuery:        "환급금 문의",
		SelectedInsurers: []model.InsurerCode{model.InsurerDB, model.InsurerKB},
	})
	assert.Contains(t, result.CompilerDebug.Warnings, "no basis detected")
}

func TestCompileNormalizesRecognizedOptionsIntoSelectedSlots(t *testing.T) {
	result := compiler.Compile(compiler.Request{
		UserQuery:        "수술비 비교",
		SelectedInsurers: []model.InsurerCode{model.InsurerDB, model.InsurerKB},
		Options: compiler.Options{
			SurgeryMethod:   "robot",
			CancerSubtypes:  []string{"유사암", "존재하지않음"},
			ComparisonFocus: "amount",
		},
	})
	assert.Equal(t, "robot", result.CompilerDebug.SelectedSlots["surgery_method"])
	assert.Equal(t, []string{"유사암"}, result.CompilerDebug.SelectedSlots["cancer_subtypes"])
	assert.Equal(t, "amount", result.CompilerDebug.SelectedSlots["comparison_focus"])
	assert.Contains(t, result.CompilerDebug.Warnings, "unrecognized cancer_subtype: 존재하지않음")
}

func TestCompileIsDeterministic(t *testing.T) {
	req := compiler.Request{
		UserQuery:        "암진단비",
		SelectedInsurers: []model.InsurerCode{model.InsurerDB, model.InsurerKB},
		Options:          compiler.Options{CancerSubtypes: []string{"유사암", "일반암"}},
	}
	first := compiler.Compile(req)
	second := compiler.Compile(req)
	require.Equal(t, first, second)
}

func TestDetectClarificationNeededFewerThanTwoInsurers(t *testing.T) {
	reqs := compiler.DetectClarificationNeeded("암진단비", []model.InsurerCode{model.InsurerDB})
	var fields []string
	for _, r := range reqs {
		fields = append(fields, r.Field)
	}
	assert.Contains(t, fields, "selected_insurers")
}

func TestDetectClarificationNeededMultipleCancerSubtypes(t *testing.T) {
	reqs := compiler.DetectClarificationNeeded("유사암 일반암 진단비", []model.InsurerCode{model.InsurerDB, model.InsurerKB})
	var fields []string
	for _, r := range reqs {
		fields = append(fields, r.Field)
	}
	assert.Contains(t, fields, "cancer_subtypes")
}

func TestDetectClarificationNeededUnclearFocus(t *testing.T) {
	reqs := compiler.DetectClarificationNeeded("환급금 문의", []model.InsurerCode{model.InsurerDB, model.InsurerKB})
	var fields []string
	for _, r := range reqs {
		fields = append(fields, r.Field)
	}
	assert.Contains(t, fields, "comparison_focus")
}
