// Package bootstrap turns a validated Config into the pipeline's collaborators.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/events"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/journal"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm/vertex"
	"github.com/joseph-ayodele/invoice-scanner/internal/mistral"
	"github.com/joseph-ayodele/invoice-scanner/internal/ocr"
	"github.com/joseph-ayodele/invoice-scanner/internal/pdfreader"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

// App holds what one process needs to run the pipeline.
type App struct {
	Config    *common.Config
	Processor *pipeline.Processor
	Journal   *journal.Journal // nil when no DSN is configured
	closers   []func() error
	logger    *slog.Logger
}

// Close releases clients and the journal.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("bootstrap.close_failed", "error", err)
		}
	}
	a.closers = nil
}

// NewTextExtractor builds the strategy selected by extraction.method.
func NewTextExtractor(cfg *common.Config, logger *slog.Logger) (extract.TextExtractor, constants.ExtractionMethod, error) {
	if err := cfg.ValidateExtraction(); err != nil {
		return nil, "", err
	}
	method, _ := cfg.Method()

	var tx extract.TextExtractor
	switch method {
	case constants.MethodLibraryParse:
		tx = extract.NewLibraryAdapter(ocr.NewExtractor(ocr.Config{
			Pdftotext:     cfg.OCR.Pdftotext,
			Pdftoppm:      cfg.OCR.Pdftoppm,
			Tesseract:     cfg.OCR.Tesseract,
			TesseractLang: cfg.OCR.Lang,
			TessdataDir:   cfg.OCR.TessdataDir,
			DPI:           cfg.OCR.DPI,
			MinTextChars:  cfg.OCR.MinTextChars,
		}, logger))
	case constants.MethodRuleReader:
		tx = extract.NewReaderAdapter(pdfreader.New(logger))
	case constants.MethodRemoteOCR:
		tx = extract.NewRemoteOCRAdapter(mistral.NewClient(mistral.Config{
			APIKey:        cfg.Mistral.APIKey,
			BaseURL:       cfg.Mistral.BaseURL,
			Model:         cfg.Mistral.Model,
			Timeout:       cfg.Mistral.Timeout,
			AnnotationDir: cfg.Paths.Output,
		}, logger))
	default:
		return nil, "", common.NewConfigError(fmt.Sprintf("unsupported extraction method %q", method))
	}
	return extract.Logged(tx, method, logger), method, nil
}

// NewFieldExtractor builds the configured field extraction backend. The
// returned close func is never nil.
func NewFieldExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.FieldExtractor, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case common.ProviderOpenAI, "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger), noop, nil
	case common.ProviderVertex:
		c, err := vertex.NewClient(ctx, vertex.Config{
			Project:     cfg.Vertex.Project,
			Region:      cfg.Vertex.Region,
			Model:       cfg.Vertex.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, common.NewConfigError(fmt.Sprintf("unknown llm provider %q", cfg.LLM.Provider))
	}
}

// Build validates cfg and wires a processor. Nothing touches the input
// directory here; a configuration problem is reported before any document.
func Build(ctx context.Context, cfg *common.Config, sink events.Sink, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, logger: logger}

	tx, method, err := NewTextExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	fx, closeFx, err := NewFieldExtractor(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeFx)

	opts := []pipeline.Option{pipeline.WithSink(sink)}
	if strings.TrimSpace(cfg.Journal.DSN) != "" {
		j, err := journal.Open(ctx, journal.Config{DSN: cfg.Journal.DSN}, logger)
		if err != nil {
			// the journal is optional history; a run goes ahead without it
			logger.Warn("bootstrap.journal_unavailable", "error", err)
		} else {
			app.Journal = j
			app.closers = append(app.closers, func() error { j.Close(); return nil })
			opts = append(opts, pipeline.WithJournal(j))
		}
	}

	app.Processor = pipeline.NewProcessor(pipeline.Config{
		InputDir:   cfg.Paths.Input,
		OutputDir:  cfg.Paths.Output,
		LedgerPath: cfg.Paths.Ledger,
		Method:     method,
	}, tx, fx, logger, opts...)

	logger.Info("bootstrap.ready",
		"method", string(method),
		"provider", cfg.LLM.Provider,
		"journal", app.Journal != nil,
	)
	return app, nil
}
