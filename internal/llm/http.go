package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// maxErrorBody caps how much of a failed response ends up in a StatusError.
const maxErrorBody = 512

// StatusError is a non-2xx reply from a JSON endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// PostJSON encodes in, posts it to url and decodes a 2xx reply into out.
// out may be nil when the caller only cares about success. Header values are
// set after the JSON defaults, so callers can override them.
func PostJSON(ctx context.Context, client *http.Client, url string, in, out any, header http.Header, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	log := logger.With(
		"req_id", uuid.NewString(),
		"run_id", common.RunIDFromContext(ctx),
		"file", common.FileNameFromContext(ctx),
	)
	start := time.Now()

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// the payload may embed a whole document; only its size is logged
	log.Debug("http.post.start", "url", url, "content_length", len(payload))

	resp, err := client.Do(req)
	if err != nil {
		log.Error("http.post.send_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("http.post.read_failed", "status", resp.StatusCode, "error", err)
		return fmt.Errorf("read response: %w", err)
	}
	log.Info("http.post.done",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Error("http.post.decode_failed", "error", err, "bytes", len(raw))
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
