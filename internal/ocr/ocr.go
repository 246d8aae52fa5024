// Package ocr extracts text from PDFs with poppler's pdftotext, falling back
// to pdftoppm + tesseract for scans without a text layer.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "deu+eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit

	// MinTextChars is the shortest text layer accepted before falling back to OCR.
	MinTextChars int
}

const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
)

type ExtractionResult struct {
	Text       string
	Pages      int
	Method     string // MethodPDFText | MethodPDFOCR
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// ErrOCRFailed is returned when tesseract failed on every rendered page.
var ErrOCRFailed = errors.New("ocr failed on every page")

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "deu+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 20
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner replaces the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract stages data in a temporary file and reads its text layer.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (ExtractionResult, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "file", name, "bytes", len(data))

	tmpDir, err := os.MkdirTemp("", "invoice-scan-*")
	if err != nil {
		return ExtractionResult{}, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "path", path, "error", err)
		}
	}(tmpDir)

	path := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ExtractionResult{}, err
	}

	res, err := e.extractPDF(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"file", name,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	text, pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		return ExtractionResult{Warnings: warns}, fmt.Errorf("pdftotext: %w", err)
	}
	text = Normalize(text)
	if len([]rune(strings.TrimSpace(text))) >= e.cfg.MinTextChars {
		return ExtractionResult{
			Text:       text,
			Pages:      pages,
			Method:     MethodPDFText,
			Warnings:   warns,
			Confidence: heuristicConfidence(text),
		}, nil
	}

	e.logger.Info("ocr.fallback", "chars", len(text), "min_chars", e.cfg.MinTextChars)
	ocrText, ocrPages, ocrWarns, err := e.pdfToOCR(ctx, path)
	warns = append(warns, ocrWarns...)
	if err != nil {
		return ExtractionResult{Warnings: warns}, fmt.Errorf("ocr fallback: %w", err)
	}
	ocrText = Normalize(ocrText)
	return ExtractionResult{
		Text:       ocrText,
		Pages:      ocrPages,
		Method:     MethodPDFOCR,
		Language:   e.cfg.TesseractLang,
		Warnings:   warns,
		Confidence: heuristicConfidence(ocrText),
	}, nil
}
