package export

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// ErrNothingToExport is returned when no outcome has records to write.
var ErrNothingToExport = errors.New("nothing to export")

const maxSheetNameLen = 31

// Service turns extraction outcomes into an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WorkbookXLSX returns a workbook with one sheet per successful outcome, in
// outcome order. Failed and empty outcomes are skipped.
func (s *Service) WorkbookXLSX(outcomes []entity.ExtractionOutcome) ([]byte, error) {
	start := time.Now()

	var sheets []entity.ExtractionOutcome
	for _, o := range outcomes {
		if o.Succeeded() {
			sheets = append(sheets, o)
		}
	}
	if len(sheets) == 0 {
		return nil, ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	names := newSheetNamer()
	rows := 0
	for i, o := range sheets {
		sheet := names.next(o.SourceName)
		if i == 0 {
			// reuse the default sheet so the workbook has no blank first tab
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, o.Records); err != nil {
			return nil, err
		}
		rows += len(o.Records)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheets", len(sheets),
		"rows", rows,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, records []entity.ChildRecord) error {
	for i, h := range constants.RecordColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", sheet, err)
		}
	}
	for r, rec := range records {
		for c, v := range rec.Values() {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			// strings keep 16-digit NIK / No. KK values exact
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d of %q: %w", r+1, sheet, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 6)  // No.
	_ = f.SetColWidth(sheet, "B", "P", 22) // names, places, dates
	_ = f.SetColWidth(sheet, "C", "C", 20) // NIK
	_ = f.SetColWidth(sheet, "P", "P", 60) // address
	_ = f.SetColWidth(sheet, "Q", "Q", 20) // No. KK
	return nil
}

// SanitizeSheetName removes characters Excel rejects in sheet names and
// truncates to 31 characters. An empty result is returned as "".
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '*', '?', ':', '[', ']', '/', '\\':
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(strings.Trim(name, "'"))
	return truncateRunes(name, maxSheetNameLen)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:n]), " '")
}

// sheetNamer hands out unique sheet names; Excel compares them case-insensitively.
type sheetNamer struct {
	used  map[string]struct{}
	count int
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: map[string]struct{}{}}
}

func (n *sheetNamer) next(source string) string {
	n.count++
	base := SanitizeSheetName(source)
	if base == "" {
		base = fmt.Sprintf("Sheet%d", n.count)
	}
	name := base
	for i := 2; n.taken(name); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetNameLen-utf8.RuneCountInString(suffix)) + suffix
	}
	n.used[strings.ToLower(name)] = struct{}{}
	return name
}

func (n *sheetNamer) taken(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}
