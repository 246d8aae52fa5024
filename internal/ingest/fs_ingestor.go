package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
)

// Loaded is a document read from the input directory.
type Loaded struct {
	extract.Document
	Path    string
	Size    int64
	HashHex string
}

// FSLoader reads documents from the local filesystem.
type FSLoader struct {
	logger *slog.Logger
}

func NewFSLoader(logger *slog.Logger) *FSLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{logger: logger}
}

// Load reads dir/name fully and hashes it. The pipeline needs the bytes for
// extraction and the hash for the run journal.
func (l *FSLoader) Load(dir, name string) (Loaded, error) {
	var out Loaded
	path := filepath.Join(dir, name)

	f, err := os.Open(path)
	if err != nil {
		l.logger.Error("ingest.open_failed", "path", path, "error", err)
		return out, fmt.Errorf("open %s: %w", name, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			l.logger.Warn("ingest.close_failed", "path", path, "error", err)
		}
	}(f)

	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		l.logger.Error("ingest.read_failed", "path", path, "error", err)
		return out, fmt.Errorf("read %s: %w", name, err)
	}

	out = Loaded{
		Document: extract.Document{Name: name, Data: data},
		Path:     path,
		Size:     int64(len(data)),
		HashHex:  hex.EncodeToString(h.Sum(nil)),
	}
	l.logger.Debug("ingest.loaded", "path", path, "bytes", out.Size, "sha256", out.HashHex)
	return out, nil
}
