package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// MaxPromptTextChars caps how much document text goes into one request.
const MaxPromptTextChars = 24000

// BuildPrompt composes the single user instruction for field extraction.
func BuildPrompt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxPromptTextChars {
		text = string([]rune(text)[:MaxPromptTextChars])
	}
	parts := []string{
		"Extract the following information from this German invoice text:",
		"- Rechnungsnummer (Invoice number)",
		"- Datum (Date in DD.MM.YYYY format)",
		"- Endbetrag (Final amount as number)",
		"- Absender (Sender/Company name)",
		"",
		"Text: " + text,
		"",
		`If any field cannot be found, use "` + constants.NotAvailable + `" as the value.`,
		"Return ONLY JSON with the keys rechnungsnummer, datum, endbetrag, absender.",
	}
	return strings.Join(parts, "\n")
}
