package constants

import (
	"path/filepath"
	"strings"
)

// Declared MIME types accepted as batch inputs.
const (
	MIMETypePDF         = "application/pdf"
	MIMETypeZIP         = "application/zip"
	MIMETypeZIPLegacy   = "application/x-zip-compressed"
	MIMETypeOctetStream = "application/octet-stream"
	MIMETypeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// MaxUploadMBDefault caps every single input file.
const MaxUploadMBDefault = 50

// DefaultExportFileName is the workbook name offered for download.
const DefaultExportFileName = "HASIL_EKSTRAK_KK.xlsx"

// AllowedExtensions holds the extensions a batch may contain (lowercased, sans '.').
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"zip": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFName reports whether name carries a .pdf extension (case-insensitive).
func IsPDFName(name string) bool {
	return NormalizeExt(filepath.Ext(name)) == "pdf"
}

// IsZIPName reports whether name carries a .zip extension (case-insensitive).
func IsZIPName(name string) bool {
	return NormalizeExt(filepath.Ext(name)) == "zip"
}

// IsZIPType reports whether a declared MIME type denotes a ZIP archive.
func IsZIPType(mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case MIMETypeZIP, MIMETypeZIPLegacy:
		return true
	}
	return false
}

// IsUntyped reports whether a declared MIME type carries no information.
func IsUntyped(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return mt == "" || mt == MIMETypeOctetStream
}
