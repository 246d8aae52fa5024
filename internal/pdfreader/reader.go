// Package pdfreader is a rule-based PDF reader: it walks pages with pdfcpu
// and emits the text runs of each page's content stream as items.
package pdfreader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// ItemKind tells page boundaries from text.
type ItemKind int

const (
	ItemPage ItemKind = iota + 1
	ItemText
)

// Item is one structural element of a document. Page is 1-based.
type Item struct {
	Kind ItemKind
	Page int
	Text string
}

// Source yields items until it returns io.EOF.
type Source interface {
	Next() (Item, error)
}

// Stream reads items page by page from a parsed document.
type Stream struct {
	ctx     *model.Context
	page    int
	pending []string
}

// Open parses and validates data in relaxed mode.
func Open(data []byte) (*Stream, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	return &Stream{ctx: ctx}, nil
}

// Pages is the number of pages in the document.
func (s *Stream) Pages() int { return s.ctx.PageCount }

// Next returns the next page or text item, or io.EOF after the last page.
func (s *Stream) Next() (Item, error) {
	if len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		return Item{Kind: ItemText, Page: s.page, Text: t}, nil
	}
	if s.page >= s.ctx.PageCount {
		return Item{}, io.EOF
	}
	s.page++

	r, err := pdfcpu.ExtractPageContent(s.ctx, s.page)
	if err != nil {
		return Item{}, fmt.Errorf("page %d content: %w", s.page, err)
	}
	if r != nil {
		content, err := io.ReadAll(r)
		if err != nil {
			return Item{}, fmt.Errorf("page %d content: %w", s.page, err)
		}
		s.pending = textRuns(content)
	}
	return Item{Kind: ItemPage, Page: s.page}, nil
}

// Collect drains src. Text items are joined with single spaces and a
// page-break marker is inserted before every page after the first.
func Collect(ctx context.Context, src Source) (string, int, error) {
	var parts []string
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		it, err := src.Next()
		if errors.Is(err, io.EOF) {
			return strings.Join(parts, " "), pages, nil
		}
		if err != nil {
			return "", pages, err
		}
		switch it.Kind {
		case ItemPage:
			pages++
			if it.Page > 1 {
				parts = append(parts, constants.PageBreak)
			}
		case ItemText:
			if it.Text != "" {
				parts = append(parts, it.Text)
			}
		}
	}
}

// Result is the text of one document.
type Result struct {
	Text     string
	Pages    int
	Duration time.Duration
}

type Reader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Extract reads every page of data.
func (r *Reader) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	s, err := Open(data)
	if err != nil {
		r.logger.Error("pdfreader.open_failed", "file", name, "error", err)
		return Result{}, err
	}
	text, pages, err := Collect(ctx, s)
	res := Result{Text: text, Pages: pages, Duration: time.Since(start)}
	if err != nil {
		r.logger.Error("pdfreader.read_failed", "file", name, "page", s.page, "error", err)
		return res, err
	}
	if strings.TrimSpace(strings.ReplaceAll(text, constants.PageBreak, "")) == "" {
		// scans carry no text runs; the empty text still goes on to field extraction
		r.logger.Warn("pdfreader.no_text", "file", name, "pages", pages)
	}
	r.logger.Info("pdfreader.ok",
		"file", name,
		"pages", pages,
		"chars", len(text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
