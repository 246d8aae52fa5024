package extract

import (
	"context"
	"time"
)

// Document is one input file, read once by the pipeline.
type Document struct {
	Name string
	Data []byte
}

// TextExtractor is stage 1: document -> text. Pages are separated by "\f".
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr" | "pdfreader" | "mistral"
	Duration time.Duration
	Warnings []string
}
