package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

var reObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject finds the first well-formed JSON object in a reply that
// may wrap it in prose or code fences. The widest brace span is tried first;
// otherwise every opening brace is tried in order.
func ExtractJSONObject(content string) ([]byte, bool) {
	if m := reObject.FindString(content); m != "" && json.Valid([]byte(m)) {
		return []byte(m), true
	}
	for i := strings.IndexByte(content, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(content[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && bytes.HasPrefix(raw, []byte("{")) {
			return raw, true
		}
		next := strings.IndexByte(content[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// ParseFieldsResponse turns a model reply into fields. Every failure wraps
// common.ErrFieldExtractionEmpty.
func ParseFieldsResponse(content string, logger *slog.Logger) (*InvoiceFields, error) {
	if logger == nil {
		logger = slog.Default()
	}
	payload, ok := ExtractJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("%w: no json object in reply", common.ErrFieldExtractionEmpty)
	}

	cleaned, _, err := NormalizeAndSanitizeJSON(payload, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFieldExtractionEmpty, err)
	}
	if err := ValidateInvoiceFields(cleaned); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFieldExtractionEmpty, err)
	}

	var out InvoiceFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, fmt.Errorf("%w: unmarshal fields: %v", common.ErrFieldExtractionEmpty, err)
	}
	out.fill()
	return &out, nil
}
