package aliasindex_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/qax-os/excelize/v2"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/aliasindex"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []string{"ins_cd", "보험사명", "cre_cvr_cd", "신정원코드명", "담보명(가입설계서)"}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	rows := [][]any{
		{"SAMSUNG", "삼성화재", "CA_DIAG_GENERAL", "일반암진단비", "일반암진단비(I)"},
		{"DB", "DB손해보험", "CA_DIAG_SIMILAR", "유사암진단비", "유사암진단비"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "aliases.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadFromExcelAndResolveQuery(t *testing.T) {
	path := writeFixture(t)
	idx := aliasindex.New()
	require.NoError(t, idx.Load(context.Background(), path))

	codes := idx.ResolveQuery("일반암진단비(I)", false)
	require.Equal(t, []string{"CA_DIAG_GENERAL"}, codes)
	require.Equal(t, "일반암진단비", idx.GetDisplayName("CA_DIAG_GENERAL"))
}

func TestResolveQueryCancerGuardrailUnionsAllCancerCanonicals(t *testing.T) {
	path := writeFixture(t)
	idx := aliasindex.New()
	require.NoError(t, idx.Load(context.Background(), path))

	codes := idx.ResolveQuery("암진단특약", true)
	require.Contains(t, codes, "CA_DIAG_GENERAL")
	require.Contains(t, codes, "CA_DIAG_SIMILAR")
	require.Contains(t, codes, "CA_DIAG_IN_SITU")
	require.Contains(t, codes, "CA_DIAG_BORDERLINE")
}

func TestResolveQueryNoGuardrailWithoutMatchIsEmpty(t *testing.T) {
	path := writeFixture(t)
	idx := aliasindex.New()
	require.NoError(t, idx.Load(context.Background(), path))

	codes := idx.ResolveQuery("실손의료비", false)
	require.Empty(t, codes)
}

func TestLoadMissingFileFailsClosed(t *testing.T) {
	idx := aliasindex.New()
	err := idx.Load(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	require.False(t, idx.Stats().Loaded)
}

func TestLoadMissingRequiredColumnFails(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "ins_cd"))
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))

	idx := aliasindex.New()
	err := idx.Load(context.Background(), path)
	require.Error(t, err)
}
