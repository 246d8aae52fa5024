package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/events"
	"github.com/joseph-ayodele/invoice-scanner/internal/naming"
)

// processDocument takes one document from the input directory to a terminal
// outcome. It never returns an error; every failure is folded into the
// outcome and the source file stays where it was unless relocation succeeded.
func (p *Processor) processDocument(ctx context.Context, em *events.Emitter, idx, total int, name string) (out Outcome) {
	ctx = common.WithFileName(ctx, name)
	log := p.logger.With("run_id", common.RunIDFromContext(ctx), "file", name, "index", idx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.file.panic", "panic", r)
			out = failed(idx, name, fmt.Sprintf("unexpected error: %v", r))
		}
	}()

	em.Emit(events.Event{Kind: events.KindFileStart, Index: idx, Total: total, FileName: name,
		Message: fmt.Sprintf("Processing %s (%d/%d)", name, idx, total)})

	doc, err := p.loader.Load(p.cfg.InputDir, name)
	if err != nil {
		log.Error("pipeline.file.read_failed", "error", err)
		return failed(idx, name, fmt.Sprintf(constants.MsgReadFailedFmt, common.ErrorDetail(err)))
	}

	// 1) text
	em.Emit(events.Event{Kind: events.KindTextExtraction, Index: idx, Total: total, FileName: name,
		Message: fmt.Sprintf("Extracting text from %s using %s", name, p.cfg.Method)})
	text, err := p.text.Extract(ctx, doc.Document)
	if err != nil {
		log.Error("pipeline.file.extract_failed", "error", err)
		o := failed(idx, name, fmt.Sprintf(constants.MsgExtractFailedFmt, common.ErrorDetail(err)))
		o.ContentHash = doc.HashHex
		return o
	}
	log.Debug("pipeline.file.text_ok", "method", text.Method, "pages", text.Pages, "chars", len(text.Text))

	// 2) fields
	em.Emit(events.Event{Kind: events.KindFieldExtraction, Index: idx, Total: total, FileName: name,
		Message: fmt.Sprintf("Extracting invoice information from %s", name)})
	fields, err := p.fields.ExtractFields(ctx, text.Text)
	if err != nil || fields == nil {
		log.Warn("pipeline.file.no_data", "error", err)
		o := failed(idx, name, constants.MsgNoData)
		o.Method, o.ContentHash = text.Method, doc.HashHex
		return o
	}

	// 3) name + move
	candidate := naming.DeriveFilename(fields.Naming(), name, p.now())
	resolved, renamed, err := naming.Resolve(p.cfg.OutputDir, candidate)
	if err != nil {
		log.Error("pipeline.file.resolve_failed", "candidate", candidate, "error", err)
		o := failed(idx, name, fmt.Sprintf(constants.MsgCopyFailedFmt, common.ErrorDetail(err)))
		o.Method, o.ContentHash, o.CandidateName, o.Fields = text.Method, doc.HashHex, candidate, fields
		return o
	}
	em.Emit(events.Event{Kind: events.KindRelocation, Index: idx, Total: total, FileName: name, NewFileName: resolved,
		Message: fmt.Sprintf("Creating new filename and moving %s", name)})

	src := filepath.Join(p.cfg.InputDir, name)
	dst := filepath.Join(p.cfg.OutputDir, resolved)
	if err := p.relocator.Relocate(ctx, src, dst); err != nil {
		log.Error("pipeline.file.relocate_failed", "dst", dst, "error", err)
		o := failed(idx, name, fmt.Sprintf(constants.MsgCopyFailedFmt, common.ErrorDetail(err)))
		o.Method, o.ContentHash, o.CandidateName, o.Fields = text.Method, doc.HashHex, candidate, fields
		return o
	}

	log.Info("pipeline.file.ok",
		"new_name", resolved,
		"renamed", renamed,
		"method", text.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{
		Index:         idx,
		Status:        constants.OutcomeSucceeded,
		OriginalName:  name,
		CandidateName: candidate,
		ResolvedName:  resolved,
		WasRenamed:    renamed,
		Fields:        fields,
		Method:        text.Method,
		ContentHash:   doc.HashHex,
	}
}
