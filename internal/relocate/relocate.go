// Package relocate moves documents with a copy, verify, then delete sequence.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// Stage names the step a relocation failed in.
type Stage string

const (
	StageCopy   Stage = "copy"
	StageVerify Stage = "verify"
	StageRemove Stage = "remove"
)

// Error is returned for every relocation failure; it matches common.ErrRelocation.
type Error struct {
	Stage Stage
	Src   string
	Dst   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Stage, e.Src, e.Dst, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{common.ErrRelocation, e.Err}
}

// ErrEmptyCopy means the destination had zero bytes after copying.
var ErrEmptyCopy = errors.New("destination is empty after copy")

// CopyFunc copies src to dst, creating dst.
type CopyFunc func(ctx context.Context, src, dst string) error

// Relocator copies a document to its destination and removes the source only
// after the copy has been verified.
type Relocator struct {
	copy   CopyFunc
	logger *slog.Logger
}

func New(logger *slog.Logger) *Relocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relocator{copy: CopyFile, logger: logger}
}

// WithCopier swaps the copy step, e.g. to simulate a truncated copy.
func (r *Relocator) WithCopier(fn CopyFunc) *Relocator {
	r.copy = fn
	return r
}

// Relocate moves src to dst. The source is never removed unless dst exists and
// is non-empty. A destination left behind by a failed verification is removed.
func (r *Relocator) Relocate(ctx context.Context, src, dst string) error {
	start := time.Now()

	if err := r.copy(ctx, src, dst); err != nil {
		r.logger.Error("relocate.copy_failed", "src", src, "dst", dst, "error", err)
		return &Error{Stage: StageCopy, Src: src, Dst: dst, Err: err}
	}

	info, err := os.Stat(dst)
	if err == nil && info.Size() == 0 {
		err = ErrEmptyCopy
	}
	if err != nil {
		r.logger.Error("relocate.verify_failed", "src", src, "dst", dst, "error", err)
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warn("relocate.cleanup_failed", "dst", dst, "error", rmErr)
		}
		return &Error{Stage: StageVerify, Src: src, Dst: dst, Err: err}
	}

	if err := os.Remove(src); err != nil {
		// the verified copy stays; the document now exists twice
		r.logger.Error("relocate.remove_source_failed", "src", src, "dst", dst, "error", err)
		return &Error{Stage: StageRemove, Src: src, Dst: dst, Err: err}
	}

	r.logger.Debug("relocate.ok",
		"src", src,
		"dst", dst,
		"bytes", info.Size(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// CopyFile copies src to a new file dst. It refuses to overwrite an existing
// dst and flushes the copy to disk before returning.
func CopyFile(ctx context.Context, src, dst string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(in)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()
	defer func(f *os.File) {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}(out)

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
