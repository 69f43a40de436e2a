package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestService_WorkbookXLSX(t *testing.T) {
	svc := NewService(nil)

	t.Run("Success case - only documents with records get a sheet", func(t *testing.T) {
		outcomes := []entity.ExtractionOutcome{
			{Seq: 0, SourceName: "A", Records: []entity.ChildRecord{{
				No: "1", Nama: "SITI AMINAH", NIK: "3201234567890001", NoKK: "3201987654321000",
			}}},
			{Seq: 1, SourceName: "B", Records: []entity.ChildRecord{}},
			{Seq: 2, SourceName: "C", FailureReason: constants.ReasonGeneric},
		}

		data, err := svc.WorkbookXLSX(outcomes)
		require.NoError(t, err)

		f := openWorkbook(t, data)
		assert.Equal(t, []string{"A"}, f.GetSheetList())

		rows, err := f.GetRows("A")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, constants.RecordColumns, rows[0])
		assert.Equal(t, "SITI AMINAH", rows[1][1])
		assert.Equal(t, "3201234567890001", rows[1][2])
		assert.Equal(t, "3201987654321000", rows[1][16])
	})

	t.Run("Success case - sheets follow outcome order", func(t *testing.T) {
		rec := []entity.ChildRecord{{Nama: "X"}}
		data, err := svc.WorkbookXLSX([]entity.ExtractionOutcome{
			{SourceName: "kk-02", Records: rec},
			{SourceName: "kk-01", Records: rec},
			{SourceName: "KK-02", Records: rec},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"kk-02", "kk-01", "KK-02 (2)"}, openWorkbook(t, data).GetSheetList())
	})

	t.Run("Error case - nothing to export", func(t *testing.T) {
		data, err := svc.WorkbookXLSX([]entity.ExtractionOutcome{
			{SourceName: "B", Records: []entity.ChildRecord{}},
			{SourceName: "C", FailureReason: constants.ReasonRateLimited},
		})
		assert.ErrorIs(t, err, ErrNothingToExport)
		assert.Nil(t, data)
	})

	t.Run("Error case - no outcomes at all", func(t *testing.T) {
		_, err := svc.WorkbookXLSX(nil)
		assert.ErrorIs(t, err, ErrNothingToExport)
	})
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "KK Budi", "KK Budi"},
		{"forbidden characters", "KK: 01/02 [scan]?*\\", "KK 0102 scan"},
		{"quotes trimmed", "'KK'", "KK"},
		{"truncated", strings.Repeat("a", 40), strings.Repeat("a", 31)},
		{"multibyte truncated by rune", strings.Repeat("é", 35), strings.Repeat("é", 31)},
		{"only forbidden", "[]", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSheetName(tt.in))
		})
	}
}

func TestSheetNamer(t *testing.T) {
	n := newSheetNamer()
	long := strings.Repeat("b", 40)

	assert.Equal(t, "doc", n.next("doc"))
	assert.Equal(t, "DOC (2)", n.next("DOC"))
	assert.Equal(t, "doc (3)", n.next("doc"))
	assert.Equal(t, "Sheet4", n.next("???"))
	assert.Equal(t, strings.Repeat("b", 31), n.next(long))

	dup := n.next(long)
	assert.Equal(t, strings.Repeat("b", 27)+" (2)", dup)
	assert.LessOrEqual(t, len([]rune(dup)), 31)
}
