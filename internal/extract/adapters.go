package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/mistral"
	"github.com/joseph-ayodele/invoice-scanner/internal/ocr"
	"github.com/joseph-ayodele/invoice-scanner/internal/pdfreader"
)

// LibraryAdapter extracts the text layer with pdftotext and falls back to
// tesseract for scanned documents.
type LibraryAdapter struct {
	e *ocr.Extractor
}

func NewLibraryAdapter(e *ocr.Extractor) *LibraryAdapter {
	return &LibraryAdapter{e: e}
}

func (a *LibraryAdapter) Extract(ctx context.Context, doc Document) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		return TextExtractionResult{}, common.NewExtractionError(fmt.Sprintf("%s: %s", constants.MethodLibraryParse, doc.Name), err)
	}
	return TextExtractionResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   r.Method,
		Duration: r.Duration,
		Warnings: r.Warnings,
	}, nil
}

// ReaderAdapter walks the content streams in page order.
type ReaderAdapter struct {
	r *pdfreader.Reader
}

func NewReaderAdapter(r *pdfreader.Reader) *ReaderAdapter {
	return &ReaderAdapter{r: r}
}

func (a *ReaderAdapter) Extract(ctx context.Context, doc Document) (TextExtractionResult, error) {
	r, err := a.r.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		return TextExtractionResult{}, common.NewExtractionError(fmt.Sprintf("%s: %s", constants.MethodRuleReader, doc.Name), err)
	}
	return TextExtractionResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   string(constants.MethodRuleReader),
		Duration: r.Duration,
	}, nil
}

// RemoteOCRAdapter sends the document to the OCR service.
type RemoteOCRAdapter struct {
	c *mistral.Client
}

func NewRemoteOCRAdapter(c *mistral.Client) *RemoteOCRAdapter {
	return &RemoteOCRAdapter{c: c}
}

func (a *RemoteOCRAdapter) Extract(ctx context.Context, doc Document) (TextExtractionResult, error) {
	r, err := a.c.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		return TextExtractionResult{}, common.NewExtractionError(fmt.Sprintf("%s: %s", constants.MethodRemoteOCR, doc.Name), err)
	}
	return TextExtractionResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   string(constants.MethodRemoteOCR),
		Duration: r.Duration,
	}, nil
}

// Func adapts a plain function, handy for tests and wiring.
type Func func(ctx context.Context, doc Document) (TextExtractionResult, error)

func (f Func) Extract(ctx context.Context, doc Document) (TextExtractionResult, error) {
	return f(ctx, doc)
}

// Logged wraps an extractor with start/finish log lines.
func Logged(next TextExtractor, method constants.ExtractionMethod, logger *slog.Logger) TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(ctx context.Context, doc Document) (TextExtractionResult, error) {
		log := logger.With("run_id", common.RunIDFromContext(ctx), "file", doc.Name, "method", string(method))
		log.Debug("extract.start", "bytes", len(doc.Data))
		res, err := next.Extract(ctx, doc)
		if err != nil {
			log.Error("extract.failed", "error", err)
			return res, err
		}
		log.Info("extract.ok", "pages", res.Pages, "chars", len(res.Text), "engine", res.Method, "elapsed_ms", res.Duration.Milliseconds())
		return res, nil
	})
}
