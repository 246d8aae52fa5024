package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/naming"
)

// InvoiceFields is the fixed shape we ask the model for. JSON keys follow
// the German labels the prompt uses.
type InvoiceFields struct {
	InvoiceNumber string `json:"rechnungsnummer"`
	Date          string `json:"datum"`
	TotalAmount   string `json:"endbetrag"`
	Sender        string `json:"absender"`
}

// Empty reports whether no field carries a value.
func (f InvoiceFields) Empty() bool {
	return naming.IsMissing(f.InvoiceNumber) && naming.IsMissing(f.Date) &&
		naming.IsMissing(f.TotalAmount) && naming.IsMissing(f.Sender)
}

// Naming converts the fields for filename derivation.
func (f InvoiceFields) Naming() naming.Fields {
	return naming.Fields{
		InvoiceNumber: f.InvoiceNumber,
		Date:          f.Date,
		Amount:        f.TotalAmount,
		Sender:        f.Sender,
	}
}

// fill replaces blank fields with the not-available marker.
func (f *InvoiceFields) fill() {
	for _, p := range []*string{&f.InvoiceNumber, &f.Date, &f.TotalAmount, &f.Sender} {
		if naming.IsMissing(*p) {
			*p = constants.NotAvailable
		}
	}
}

// LineItem is one position of an OCR document annotation.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// DocumentAnnotation is the general invoice schema requested from the OCR service.
type DocumentAnnotation struct {
	Date          string     `json:"date"`
	BilledAmount  float64    `json:"billed_amount"`
	Currency      string     `json:"currency"`
	InvoiceNumber string     `json:"invoice_number"`
	Sender        string     `json:"sender"`
	LineItems     []LineItem `json:"line_items"`
}

// FieldExtractor turns document text into invoice fields. Any error means
// "no data": the caller records the document as unreadable and moves on.
// Errors for replies without a usable payload wrap common.ErrFieldExtractionEmpty.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*InvoiceFields, error)
}
