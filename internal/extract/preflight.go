package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFPreflight rejects documents pdfcpu cannot open before any model call.
type PDFPreflight struct {
	conf *model.Configuration
}

func NewPDFPreflight() *PDFPreflight {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFPreflight{conf: conf}
}

// Check returns the page count of content.
func (p *PDFPreflight) Check(content []byte) (int, error) {
	if len(content) == 0 {
		return 0, errors.New("empty document")
	}
	pages, err := api.PageCount(bytes.NewReader(content), p.conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if pages == 0 {
		return 0, errors.New("pdf has no pages")
	}
	return pages, nil
}
