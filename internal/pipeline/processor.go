package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/events"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/journal"
	"github.com/joseph-ayodele/invoice-scanner/internal/ledger"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
	"github.com/joseph-ayodele/invoice-scanner/internal/relocate"
)

// Config is the per-run input the processor needs.
type Config struct {
	InputDir   string
	OutputDir  string
	LedgerPath string
	Method     constants.ExtractionMethod
}

type Loader interface {
	Load(dir, name string) (ingest.Loaded, error)
}

type Relocator interface {
	Relocate(ctx context.Context, src, dst string) error
}

type LedgerWriter interface {
	Append(ctx context.Context, path string, rows []ledger.Row) error
}

// Journal records run history. Its errors are logged and otherwise ignored.
type Journal interface {
	StartRun(ctx context.Context, r journal.Run) error
	RecordEntry(ctx context.Context, e journal.Entry) error
	FinishRun(ctx context.Context, r journal.Run) error
}

// Processor drives one run at a time: text extraction, field extraction,
// naming, relocation, then a single ledger append.
type Processor struct {
	cfg       Config
	text      extract.TextExtractor
	fields    llm.FieldExtractor
	loader    Loader
	relocator Relocator
	ledger    LedgerWriter
	journal   Journal
	sink      events.Sink
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Processor)

func WithSink(s events.Sink) Option {
	return func(p *Processor) {
		if s != nil {
			p.sink = s
		}
	}
}

func WithJournal(j Journal) Option {
	return func(p *Processor) { p.journal = j }
}

func WithRelocator(r Relocator) Option {
	return func(p *Processor) {
		if r != nil {
			p.relocator = r
		}
	}
}

func WithLedger(l LedgerWriter) Option {
	return func(p *Processor) {
		if l != nil {
			p.ledger = l
		}
	}
}

func WithLoader(l Loader) Option {
	return func(p *Processor) {
		if l != nil {
			p.loader = l
		}
	}
}

// WithClock fixes the time used for unprocessed names and the ledger date.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(cfg Config, text extract.TextExtractor, fields llm.FieldExtractor, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = constants.DefaultMethod
	}
	p := &Processor{
		cfg:       cfg,
		text:      text,
		fields:    fields,
		loader:    ingest.NewFSLoader(logger),
		relocator: relocate.New(logger),
		ledger:    ledger.New(logger),
		sink:      events.Discard{},
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run processes every PDF currently in the input directory, in name order.
// Only a failure to prepare the output directory or to list the input
// directory aborts the run; document failures become outcomes. A ledger
// failure is returned alongside the complete result. On cancellation the
// run stops before the next document, still writes the ledger for what
// succeeded, and returns the partial result with ctx.Err().
func (p *Processor) Run(ctx context.Context) (Result, error) {
	runID := p.newID()
	ctx = common.WithRunID(ctx, runID)
	log := p.logger.With("run_id", runID)
	started := p.now()

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		log.Error("pipeline.output_dir_failed", "dir", p.cfg.OutputDir, "error", err)
		return Result{RunID: runID}, common.NewAppError(common.CodeConfig,
			fmt.Sprintf("prepare output directory %s", p.cfg.OutputDir), errors.Join(common.ErrConfiguration, err))
	}

	names, err := ingest.ListDocuments(p.cfg.InputDir)
	if err != nil {
		log.Error("pipeline.enumerate_failed", "dir", p.cfg.InputDir, "error", err)
		return Result{RunID: runID}, err
	}

	total := len(names)
	res := Result{RunID: runID, Total: total, Outcomes: make([]Outcome, 0, total)}
	em := events.NewEmitter(p.sink, runID)

	log.Info("pipeline.run.start", "documents", total, "method", string(p.cfg.Method), "input", p.cfg.InputDir, "output", p.cfg.OutputDir)
	em.Emit(events.Event{Kind: events.KindRunStart, Total: total,
		Message: fmt.Sprintf("Found %d PDF files to process", total)})
	p.journalStart(ctx, runID, started)

	var cancelErr error
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			log.Warn("pipeline.run.cancelled", "processed", i, "remaining", total-i, "error", err)
			break
		}
		o := p.processDocument(ctx, em, i+1, total, name)
		res.Outcomes = append(res.Outcomes, o)
		if o.Succeeded() {
			res.Succeeded++
			em.Emit(events.Event{Kind: events.KindFileSuccess, Index: o.Index, Total: total,
				FileName: name, NewFileName: o.ResolvedName,
				Message: fmt.Sprintf("Processed %s -> %s", name, o.ResolvedName)})
		} else {
			em.Emit(events.Event{Kind: events.KindFileError, Index: o.Index, Total: total,
				FileName: name, Message: o.Error})
		}
		p.journalEntry(ctx, runID, o)
	}

	// the ledger is written even when the run was cancelled
	lctx := context.WithoutCancel(ctx)
	rows := ledgerRows(res.Outcomes, started)
	em.Emit(events.Event{Kind: events.KindLogUpdate, Total: total,
		Message: fmt.Sprintf("Updating log file with %d entries", len(rows))})
	if err := p.ledger.Append(lctx, p.cfg.LedgerPath, rows); err != nil {
		log.Error("pipeline.ledger_failed", "path", p.cfg.LedgerPath, "error", err)
		res.LedgerErr = err
	}

	em.Emit(events.Event{Kind: events.KindRunComplete, Total: total, Succeeded: res.Succeeded,
		Message: fmt.Sprintf("Processing complete: %s files processed successfully", res.Tally())})
	p.journalFinish(lctx, runID, res)

	log.Info("pipeline.run.complete",
		"succeeded", res.Succeeded,
		"total", total,
		"ledger_ok", res.LedgerErr == nil,
		"elapsed_ms", p.now().Sub(started).Milliseconds(),
	)
	return res, errors.Join(res.LedgerErr, cancelErr)
}

func ledgerRows(outcomes []Outcome, runDate time.Time) []ledger.Row {
	var rows []ledger.Row
	for _, o := range outcomes {
		if !o.Succeeded() || o.Fields == nil {
			continue
		}
		rows = append(rows, ledger.Row{
			RunDate:       runDate,
			OriginalFile:  o.OriginalName,
			NewFile:       o.ResolvedName,
			InvoiceNumber: o.Fields.InvoiceNumber,
			InvoiceDate:   o.Fields.Date,
			Amount:        o.Fields.TotalAmount,
			Sender:        o.Fields.Sender,
		})
	}
	return rows
}

func (p *Processor) journalStart(ctx context.Context, runID string, started time.Time) {
	if p.journal == nil {
		return
	}
	err := p.journal.StartRun(ctx, journal.Run{
		ID:        runID,
		StartedAt: started,
		Method:    string(p.cfg.Method),
		InputDir:  p.cfg.InputDir,
		OutputDir: p.cfg.OutputDir,
	})
	if err != nil {
		p.logger.Warn("pipeline.journal.start_failed", "run_id", runID, "error", err)
	}
}

func (p *Processor) journalEntry(ctx context.Context, runID string, o Outcome) {
	if p.journal == nil {
		return
	}
	e := journal.Entry{
		RunID:        runID,
		Seq:          o.Index,
		OriginalName: o.OriginalName,
		NewName:      o.ResolvedName,
		Status:       string(o.Status),
		ContentHash:  o.ContentHash,
		Error:        o.Error,
		ProcessedAt:  p.now(),
	}
	if o.Fields != nil {
		e.InvoiceNumber = o.Fields.InvoiceNumber
		e.InvoiceDate = o.Fields.Date
		e.Amount = o.Fields.TotalAmount
		e.Sender = o.Fields.Sender
	}
	if err := p.journal.RecordEntry(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("pipeline.journal.entry_failed", "run_id", runID, "file", o.OriginalName, "error", err)
	}
}

func (p *Processor) journalFinish(ctx context.Context, runID string, res Result) {
	if p.journal == nil {
		return
	}
	r := journal.Run{ID: runID, FinishedAt: p.now(), Total: res.Total, Succeeded: res.Succeeded}
	if res.LedgerErr != nil {
		r.LedgerErr = res.LedgerErr.Error()
	}
	if err := p.journal.FinishRun(ctx, r); err != nil {
		p.logger.Warn("pipeline.journal.finish_failed", "run_id", runID, "error", err)
	}
}
