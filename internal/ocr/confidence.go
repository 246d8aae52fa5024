package ocr

import (
	"regexp"
	"strings"
)

// invoiceSignal is one pattern that makes extracted text look like an invoice.
type invoiceSignal struct {
	re     *regexp.Regexp
	weight float32
}

var invoiceSignals = []invoiceSignal{
	// 05.03.2024, 5/3/24, 2024-03-05
	{regexp.MustCompile(`\b\d{1,2}[./]\d{1,2}[./]\d{2,4}\b|\b20\d{2}-\d{2}-\d{2}\b`), 0.2},
	{regexp.MustCompile(`\b(eur|euro|usd|chf|gbp)\b|[€$£]`), 0.15},
	// 1.234,56 and 1,234.56
	{regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*[.,]\d{2}\b`), 0.15},
	{regexp.MustCompile(`rechnung|invoice|betrag|summe|total|mwst|ust`), 0.2},
}

// heuristicConfidence scores from 0 to 1 how much a text layer looks like an invoice.
func heuristicConfidence(txt string) float32 {
	lower := strings.ToLower(txt)
	score := float32(0.2)
	for _, s := range invoiceSignals {
		if s.re.MatchString(lower) {
			score += s.weight
		}
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return min(score, 1)
}
