package naming

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// Fields are the raw values a filename is derived from.
type Fields struct {
	InvoiceNumber string
	Date          string
	Amount        string
	Sender        string
}

// SplitName splits a file name into stem and extension (with the dot).
func SplitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// DeriveFilename builds the candidate output name for a document.
//
// Normal form: <date>_<invoice number>_EUR_<amount>_<sender>.pdf
//
// When no field could be read the original stem is kept so the document stays
// traceable: <stem>_<today>_unprocessed<original extension>.
func DeriveFilename(fields Fields, originalName string, today time.Time) string {
	date := NormalizeDate(fields.Date)
	number := Sanitize(fields.InvoiceNumber)
	amount := Sanitize(fields.Amount)
	sender := Sanitize(fields.Sender)

	if date == constants.Placeholder && number == constants.Placeholder &&
		amount == constants.Placeholder && sender == constants.Placeholder {
		stem, ext := SplitName(filepath.Base(originalName))
		if ext == "" {
			ext = "." + constants.PDFExt
		}
		return stem + "_" + today.Format(time.DateOnly) + constants.UnprocessedSuffix + ext
	}

	return strings.Join([]string{date, number, constants.Currency, amount, sender}, "_") + "." + constants.PDFExt
}
