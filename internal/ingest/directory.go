package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// ListDocuments returns the names of the PDF files directly inside dir, in
// lexical order. Subdirectories are not descended into and hidden files are
// skipped. Symlinks count when they resolve to a regular file. The extension match is case-insensitive.
func ListDocuments(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, common.NewAppError(common.CodeEnumerate, "input directory is required", common.ErrEnumeration)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.NewEnumerationError(fmt.Sprintf("read %s", dir), err)
	}

	var names []string
	for _, e := range entries {
		if !Eligible(e.Name()) {
			continue
		}
		if !isRegular(dir, e) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isRegular(dir string, e os.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
