package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// ExtractFields implements llm.FieldExtractor with one chat completion using
// a strict json_schema response format.
func (c *Client) ExtractFields(ctx context.Context, text string) (*llm.InvoiceFields, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := c.logger.With("req_id", rid, "run_id", common.RunIDFromContext(ctx), "file", common.FileNameFromContext(ctx))

	log.Info("llm.extract.start",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Temperature: openai.Float(c.cfg.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(llm.BuildPrompt(text)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   llm.SchemaName,
					Strict: openai.Bool(true),
					Schema: llm.BuildInvoiceJSONSchema(),
				},
			},
		},
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error("llm.extract.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		log.Error("llm.extract.no_choices", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: no choices in openai response", common.ErrFieldExtractionEmpty)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	out, err := llm.ParseFieldsResponse(content, log)
	if err != nil {
		log.Error("llm.extract.parse_failed",
			"error", err,
			"content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	log.Info("llm.extract.ok",
		"invoice_number", out.InvoiceNumber,
		"date", out.Date,
		"total", out.TotalAmount,
		"sender", out.Sender,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
