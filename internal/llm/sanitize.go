package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

var fieldKeys = []string{"rechnungsnummer", "datum", "endbetrag", "absender"}

// synonyms renames keys models sometimes answer with to the schema keys.
// Earlier entries win when a reply carries several synonyms for one field.
var synonyms = []struct{ from, to string }{
	{"invoice_number", "rechnungsnummer"},
	{"invoicenumber", "rechnungsnummer"},
	{"invoice_no", "rechnungsnummer"},
	{"rechnungsdatum", "datum"},
	{"invoice_date", "datum"},
	{"date", "datum"},
	{"total_amount", "endbetrag"},
	{"gesamtbetrag", "endbetrag"},
	{"total", "endbetrag"},
	{"amount", "endbetrag"},
	{"sender", "absender"},
	{"issuer", "absender"},
	{"company", "absender"},
}

// NormalizeAndSanitizeJSON
//   - renames known synonyms to the schema keys
//   - coerces numbers to strings
//   - fills null, blank or missing fields with "N/A"
//   - removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var in map[string]any
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	// keys are matched case-insensitively; an exact lowercase key beats its
	// case variants, otherwise the first variant in sorted order wins
	m := make(map[string]any, len(in))
	for _, k := range slices.Sorted(maps.Keys(in)) {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, taken := m[lk]; taken && k != lk {
			continue
		}
		m[lk] = in[k]
	}

	var changed []string
	for _, syn := range synonyms {
		if v, ok := m[syn.from]; ok {
			if _, exists := m[syn.to]; !exists {
				m[syn.to] = v
				changed = append(changed, syn.from+"->"+syn.to)
			}
			delete(m, syn.from)
		}
	}

	allowed := map[string]struct{}{}
	for _, k := range fieldKeys {
		allowed[k] = struct{}{}
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	for _, k := range fieldKeys {
		switch t := m[k].(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				m[k] = constants.NotAvailable
				changed = append(changed, k+"(empty)")
			} else {
				m[k] = s
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			changed = append(changed, k+"(number)")
		case bool:
			m[k] = constants.NotAvailable
			changed = append(changed, k+"(type)")
		case nil:
			m[k] = constants.NotAvailable
			changed = append(changed, k+"(missing)")
		default:
			m[k] = constants.NotAvailable
			changed = append(changed, k+"(type)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}
