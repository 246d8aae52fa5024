package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, err := e.runner.Run(ctx, Command{Name: e.cfg.Pdftotext, Args: []string{"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-"}})
	if err != nil {
		return "", 0, []string{stderrOf(err)}, err
	}
	text = string(out)
	// form feed terminates every page
	pages = strings.Count(text, constants.PageBreak)
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "invoice-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "path", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	if _, err := e.runner.Run(ctx, Command{Name: e.cfg.Pdftoppm, Args: []string{"-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix}}); err != nil {
		return "", 0, []string{stderrOf(err)}, err
	}

	// prefix-1.png, prefix-2.png, ... (zero padded for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	texts := make([]string, 0, len(matches))
	var warns []string
	failed := 0
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, err.Error())
			failed++
			txt = ""
		}
		texts = append(texts, txt)
	}
	if failed == len(matches) {
		return "", len(matches), warns, ErrOCRFailed
	}
	return strings.Join(texts, constants.PageBreak), len(matches), warns, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, err := e.runner.Run(ctx, Command{Name: e.cfg.Tesseract, Args: args})
	if err != nil {
		return "", []string{stderrOf(err)}, fmt.Errorf("tesseract: %w", err)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}
