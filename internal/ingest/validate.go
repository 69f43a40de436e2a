package ingest

import (
	"strings"

	"github.com/joseph-ayodele/kk-extractor/constants"
	"github.com/joseph-ayodele/kk-extractor/internal/common"
	"github.com/joseph-ayodele/kk-extractor/internal/entity"
)

// ValidateInputs checks every input for type and size and returns all
// violations at once as common.ValidationErrors. An empty batch is invalid.
func ValidateInputs(inputs []entity.Input, maxBytes int64) error {
	v := common.NewValidator()
	if len(inputs) == 0 {
		v.Field("files", nil, common.Required)
		return v.Error()
	}

	sizeRule := common.MaxBytes(maxBytes)
	typeRule := common.Predicate(func(value interface{}) bool {
		in, ok := value.(entity.Input)
		return ok && AcceptedType(in)
	}, "only PDF or ZIP files are allowed")

	for _, in := range inputs {
		name := in.Name
		if strings.TrimSpace(name) == "" {
			name = "(unnamed)"
		}
		v.Field(name, in, typeRule)
		v.Field(name, inputSize(in), sizeRule)
	}
	return v.Error()
}

// AcceptedType reports whether in is declared (or named) as a PDF or ZIP.
func AcceptedType(in entity.Input) bool {
	mt := strings.ToLower(strings.TrimSpace(in.MIMEType))
	switch {
	case mt == constants.MIMETypePDF, constants.IsZIPType(mt), constants.IsZIPName(in.Name):
		return true
	case constants.IsUntyped(mt):
		return constants.IsPDFName(in.Name) || constants.IsZIPName(in.Name)
	default:
		return false
	}
}

func inputSize(in entity.Input) int64 {
	if in.Size > 0 {
		return in.Size
	}
	return int64(len(in.Content))
}
