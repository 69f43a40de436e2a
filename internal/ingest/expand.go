package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

type inputKind int

const (
	kindOther inputKind = iota
	kindPDF
	kindZIP
)

func classify(in entity.Input) inputKind {
	switch {
	case constants.IsZIPType(in.MIMEType) || constants.IsZIPName(in.Name):
		return kindZIP
	case strings.EqualFold(strings.TrimSpace(in.MIMEType), constants.MIMETypePDF):
		return kindPDF
	case constants.IsUntyped(in.MIMEType) && constants.IsPDFName(in.Name):
		return kindPDF
	default:
		return kindOther
	}
}

// Expander flattens user inputs into an ordered list of PDF units.
type Expander struct {
	logger *slog.Logger
}

func NewExpander(logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{logger: logger}
}

// Expand turns inputs into DocumentUnits: standalone PDFs pass through, ZIP
// archives contribute every .pdf entry in archive order, anything else is
// dropped. Each input is expanded in isolation; an unreadable archive is
// reported in Errors and does not affect its siblings. Seq is assigned over
// the concatenated result.
func (e *Expander) Expand(ctx context.Context, inputs []entity.Input) Expansion {
	var out Expansion
	for _, in := range inputs {
		if ctx.Err() != nil {
			out.Errors = append(out.Errors, entity.InputError{Name: in.Name, Reason: ctx.Err().Error()})
			continue
		}
		switch classify(in) {
		case kindZIP:
			units, err := expandZIP(in)
			if err != nil {
				e.logger.Warn("ingest.expand.archive_failed", "name", in.Name, "error", err)
				out.Errors = append(out.Errors, entity.InputError{Name: in.Name, Reason: err.Error()})
				continue
			}
			e.logger.Info("ingest.expand.archive", "name", in.Name, "pdfs", len(units))
			out.Units = append(out.Units, units...)
		case kindPDF:
			out.Units = append(out.Units, newUnit(in.Name, in.Content))
		default:
			e.logger.Debug("ingest.expand.skipped", "name", in.Name, "mime_type", in.MIMEType)
		}
	}

	for i := range out.Units {
		out.Units[i].Seq = i
	}
	return out
}

func expandZIP(in entity.Input) ([]entity.DocumentUnit, error) {
	zr, err := zip.NewReader(bytes.NewReader(in.Content), int64(len(in.Content)))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip archive %q: %w", in.Name, err)
	}

	var units []entity.DocumentUnit
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if !constants.IsPDFName(f.Name) {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q from zip archive %q: %w", f.Name, in.Name, err)
		}
		units = append(units, newUnit(baseName(f.Name), content))
	}
	return units, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func newUnit(name string, content []byte) entity.DocumentUnit {
	return entity.DocumentUnit{
		Name:     name,
		MIMEType: constants.MIMETypePDF,
		Content:  content,
		Checksum: Checksum(content),
	}
}
