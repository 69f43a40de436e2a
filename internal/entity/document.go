package entity

import (
	"path/filepath"
	"strings"
)

// Input is one user-selected file, before archive expansion.
type Input struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Content  []byte `json:"-"`
}

// DocumentUnit is one PDF to be extracted. Seq is its position in the
// flattened batch order and is carried through to the outcome.
type DocumentUnit struct {
	Seq      int    `json:"seq"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Checksum string `json:"checksum"`
	Content  []byte `json:"-"`
}

// Title returns the unit name with its extension stripped.
func (u DocumentUnit) Title() string {
	return StripExt(u.Name)
}

// InputError reports an input that could not be expanded into units.
type InputError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (e InputError) Error() string {
	return e.Name + ": " + e.Reason
}

// StripExt drops the final extension from a file name ("a.b.pdf" -> "a.b").
func StripExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
