package constants

import "strings"

// PDFExt is the only document extension the scanner picks up (lowercase, without '.').
const PDFExt = "pdf"

// Placeholder is the filename token used when a field could not be determined.
const Placeholder = "NA"

// NotAvailable is the value the field extraction service is told to use for missing fields.
const NotAvailable = "N/A"

// MaxTokenLen caps a sanitized filename token, in characters.
const MaxTokenLen = 50

// Currency is fixed for every derived filename.
const Currency = "EUR"

// PageBreak separates pages in extracted text.
const PageBreak = "\f"

// UnprocessedSuffix marks documents whose fields could not be read.
const UnprocessedSuffix = "_unprocessed"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether a file name carries the supported extension.
func IsPDF(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return NormalizeExt(name[i:]) == PDFExt
}
