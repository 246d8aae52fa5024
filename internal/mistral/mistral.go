// Package mistral runs documents through the Mistral OCR endpoint.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

const (
	DefaultBaseURL = "https://api.mistral.ai"
	DefaultModel   = "mistral-ocr-latest"
	annotationName = "invoice_document"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// AnnotationDir receives <stem>.json for each document the service
	// annotates. Empty disables the side artifact.
	AnnotationDir string
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrRequest struct {
	Model                    string         `json:"model"`
	Document                 ocrDocument    `json:"document"`
	IncludeImageBase64       bool           `json:"include_image_base64"`
	DocumentAnnotationFormat map[string]any `json:"document_annotation_format,omitempty"`
}

type ocrPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type ocrResponse struct {
	Model              string    `json:"model"`
	Pages              []ocrPage `json:"pages"`
	DocumentAnnotation *string   `json:"document_annotation"`
}

// Result is the joined page markdown plus the raw annotation, if any.
type Result struct {
	Text       string
	Pages      int
	Annotation json.RawMessage
	Duration   time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// Extract sends the whole document inline and returns the page markdown
// joined with form feeds.
func (c *Client) Extract(ctx context.Context, name string, data []byte) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, common.NewConfigError("mistral: api key is required")
	}
	start := time.Now()
	log := c.logger.With("file", name)

	req := ocrRequest{
		Model: c.cfg.Model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: llm.DataURL(name, data),
		},
		IncludeImageBase64: false,
		DocumentAnnotationFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   annotationName,
				"schema": llm.BuildAnnotationJSONSchema(),
				"strict": true,
			},
		},
	}
	header := http.Header{"Authorization": {"Bearer " + c.cfg.APIKey}}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/ocr"
	var resp ocrResponse
	if err := llm.PostJSON(ctx, c.http, url, req, &resp, header, log); err != nil {
		return nil, fmt.Errorf("mistral ocr: %w", err)
	}

	pages := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		pages = append(pages, p.Markdown)
	}
	out := &Result{
		Text:     strings.Join(pages, constants.PageBreak),
		Pages:    len(resp.Pages),
		Duration: time.Since(start),
	}

	if resp.DocumentAnnotation != nil && strings.TrimSpace(*resp.DocumentAnnotation) != "" {
		out.Annotation = json.RawMessage(*resp.DocumentAnnotation)
		c.writeAnnotation(name, out.Annotation, log)
	}

	log.Info("mistral.ocr.ok",
		"pages", out.Pages,
		"text_len", len(out.Text),
		"annotated", out.Annotation != nil,
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// writeAnnotation stores the annotation pretty-printed next to the relocated
// documents. Failures never affect the document outcome.
func (c *Client) writeAnnotation(name string, annotation json.RawMessage, log *slog.Logger) {
	if c.cfg.AnnotationDir == "" {
		return
	}
	if err := llm.ValidateAnnotation(annotation); err != nil {
		log.Warn("mistral.annotation.schema_mismatch", "error", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, annotation, "", "  "); err != nil {
		log.Error("mistral.annotation.invalid_json", "error", err)
		return
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	path := filepath.Join(c.cfg.AnnotationDir, stem+".json")
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		log.Error("mistral.annotation.write_failed", "path", path, "error", err)
		return
	}
	log.Info("mistral.annotation.written", "path", path)
}
