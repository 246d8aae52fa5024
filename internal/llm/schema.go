package llm

// SchemaName labels the structured output format sent to providers.
const SchemaName = "rechnung"

// BuildInvoiceJSONSchema returns the strict field schema as a generic map.
// We pass it to the provider as a structured output constraint and use it
// locally to validate the reply.
func BuildInvoiceJSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rechnungsnummer": stringProp("The invoice number."),
			"datum":           stringProp("The date of the invoice."),
			"endbetrag":       stringProp("The total amount of the invoice."),
			"absender":        stringProp("The sender of the invoice."),
		},
		"required":             []string{"rechnungsnummer", "datum", "endbetrag", "absender"},
		"additionalProperties": false,
	}
}

// BuildAnnotationJSONSchema returns the general invoice schema used for OCR
// document annotations.
func BuildAnnotationJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": stringProp("Item or service description."),
			"quantity":    numberProp("Quantity."),
			"unit_price":  numberProp("Price per unit."),
			"total_price": numberProp("Line total."),
		},
		"required":             []string{"description", "quantity", "unit_price", "total_price"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date":           stringProp("The date of the invoice."),
			"billed_amount":  numberProp("The total billed amount."),
			"currency":       stringProp("The currency of the billed amount."),
			"invoice_number": stringProp("The invoice number."),
			"sender":         stringProp("The issuer of the invoice."),
			"line_items":     map[string]any{"type": "array", "items": lineItem},
		},
		"required":             []string{"date", "billed_amount", "currency", "invoice_number", "sender", "line_items"},
		"additionalProperties": false,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func numberProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}
