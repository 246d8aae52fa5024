package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

const annotation = `{"date":"05.03.2024","billed_amount":119,"currency":"EUR","invoice_number":"RE-1","sender":"ACME","line_items":[]}`

func ocrServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ocr", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if seen != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, seen)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"model": "mistral-ocr-latest",
		"pages": []any{
			map[string]any{"index": 0, "markdown": "# Rechnung"},
			map[string]any{"index": 1, "markdown": "Summe 119,00"},
		},
		"document_annotation": annotation,
	})
	require.NoError(t, err)
	return string(b)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	var seen map[string]any
	srv := ocrServer(t, http.StatusOK, okBody(t), &seen)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL, AnnotationDir: dir}, nil)
	res, err := c.Extract(context.Background(), "scan.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "# Rechnung\fSumme 119,00", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.JSONEq(t, annotation, string(res.Annotation))

	assert.Equal(t, "mistral-ocr-latest", seen["model"])
	assert.Equal(t, false, seen["include_image_base64"])
	doc := seen["document"].(map[string]any)
	assert.Equal(t, "document_url", doc["type"])
	assert.True(t, strings.HasPrefix(doc["document_url"].(string), "data:application/pdf;base64,"))
	format := seen["document_annotation_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])

	written, err := os.ReadFile(filepath.Join(dir, "scan.json"))
	require.NoError(t, err)
	assert.JSONEq(t, annotation, string(written))
	assert.Contains(t, string(written), "\n  \"")
}

func TestExtractAnnotationWriteFailureIsIgnored(t *testing.T) {
	srv := ocrServer(t, http.StatusOK, okBody(t), nil)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL, AnnotationDir: filepath.Join(t.TempDir(), "missing")}, nil)
	res, err := c.Extract(context.Background(), "scan.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestExtractServiceError(t *testing.T) {
	srv := ocrServer(t, http.StatusUnauthorized, `{"message":"bad key"}`, nil)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)
	_, err := c.Extract(context.Background(), "scan.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestExtractRequiresKey(t *testing.T) {
	c := NewClient(Config{}, nil)
	_, err := c.Extract(context.Background(), "scan.pdf", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}
