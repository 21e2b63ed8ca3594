package model

import (
	"path/filepath"
	"strings"
	"time"
)

type Document struct {
	ID          string    `db:"id"`
	AccountID   string    `db:"account_id"`
	Name        string    `db:"name"`
	Extension   string    `db:"extension"`
	MimeType    string    `db:"mime_type"`
	Size        int64     `db:"size"`
	StoragePath string    `db:"storage_path"`
	CreatedAt   time.Time `db:"created_at"`

	// Loaded from storage on download only
	Content []byte `db:"-"`
}

// FileName joins name and extension back into the uploaded file name.
func (d *Document) FileName() string {
	if d.Extension == "" {
		return d.Name
	}
	return d.Name + "." + d.Extension
}

// SplitFileName splits a file name at its last '.' into base name and
// extension. Directory components are discarded. A name without a dot, or
// whose only dot is the leading character, has an empty extension.
func SplitFileName(filename string) (name, extension string) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return "", ""
	}
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return base, ""
	}
	return base[:idx], base[idx+1:]
}
