package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/kk-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf/zip).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// MIMETypeForName guesses a declared type for files read from disk.
func MIMETypeForName(name string) string {
	switch {
	case constants.IsPDFName(name):
		return constants.MIMETypePDF
	case constants.IsZIPName(name):
		return constants.MIMETypeZIP
	default:
		return constants.MIMETypeOctetStream
	}
}

// baseName strips any archive directory prefix, accepting either separator.
func baseName(entryName string) string {
	return entryName[strings.LastIndexAny(entryName, `/\`)+1:]
}
