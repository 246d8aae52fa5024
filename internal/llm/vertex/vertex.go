// Package vertex extracts invoice fields with a Gemini model on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// Config for the Vertex AI client.
type Config struct {
	Project     string
	Region      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Generator is the part of *genai.GenerativeModel the extractor calls.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	model  Generator
	closer func() error
	logger *slog.Logger
}

// NewClient dials Vertex AI and configures a model for JSON output
// constrained to the invoice field schema.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Project == "" || cfg.Region == "" {
		return nil, common.NewConfigError("vertex: project and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	base, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   invoiceSchema(),
		Temperature:      genai.Ptr(float32(cfg.Temperature)),
	}

	c := NewWithGenerator(cfg, model, logger)
	c.closer = base.Close
	return c, nil
}

// NewWithGenerator wraps an already configured generator.
func NewWithGenerator(cfg Config, gen Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, model: gen, logger: logger}
}

func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// ExtractFields implements llm.FieldExtractor.
func (c *Client) ExtractFields(ctx context.Context, text string) (*llm.InvoiceFields, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid, "run_id", common.RunIDFromContext(ctx), "file", common.FileNameFromContext(ctx))
	log.Info("llm.extract.start", "provider", "vertex", "model", c.cfg.Model, "text_len", len(text))

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(cctx, genai.Text(llm.BuildPrompt(text)))
	if err != nil {
		log.Error("llm.extract.generate_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}

	content := responseText(resp)
	if content == "" {
		log.Error("llm.extract.empty_response", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: empty vertex response", common.ErrFieldExtractionEmpty)
	}

	out, err := llm.ParseFieldsResponse(content, log)
	if err != nil {
		log.Error("llm.extract.parse_failed", "error", err, "content_len", len(content))
		return nil, err
	}

	log.Info("llm.extract.ok",
		"invoice_number", out.InvoiceNumber,
		"date", out.Date,
		"total", out.TotalAmount,
		"sender", out.Sender,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

// invoiceSchema mirrors llm.BuildInvoiceJSONSchema in the genai schema types.
func invoiceSchema() *genai.Schema {
	props := map[string]*genai.Schema{}
	required := []string{"rechnungsnummer", "datum", "endbetrag", "absender"}
	desc := map[string]string{
		"rechnungsnummer": "The invoice number.",
		"datum":           "The date of the invoice.",
		"endbetrag":       "The total amount of the invoice.",
		"absender":        "The sender of the invoice.",
	}
	for _, k := range required {
		props[k] = &genai.Schema{Type: genai.TypeString, Description: desc[k]}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}
