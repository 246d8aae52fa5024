package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// Eligible reports whether a directory entry name is a candidate document.
func Eligible(name string) bool {
	return !IsHidden(name) && constants.IsPDF(name)
}
