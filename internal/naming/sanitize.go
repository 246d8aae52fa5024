// Package naming derives filesystem-safe output names from extracted invoice fields.
package naming

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

var (
	reForbidden   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	reWhitespace  = regexp.MustCompile(`[\s\p{Z}]+`)
	reDots        = regexp.MustCompile(`\.+`)
	reUnderscores = regexp.MustCompile(`_+`)
)

// IsMissing reports whether an extracted value means "not available".
func IsMissing(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, constants.NotAvailable)
}

// Sanitize turns an arbitrary extracted value into a filename token.
// Missing values map to constants.Placeholder; other input is NFC-normalized
// first. The result never contains a forbidden path character, a dot or
// whitespace, is at most constants.MaxTokenLen characters long, and
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(value string) string {
	if IsMissing(value) {
		return constants.Placeholder
	}
	s := reForbidden.ReplaceAllString(norm.NFC.String(value), "_")
	s = reWhitespace.ReplaceAllString(s, "_")
	s = reDots.ReplaceAllString(s, "_")
	s = reUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if r := []rune(s); len(r) > constants.MaxTokenLen {
		// cutting can expose an underscore at the new end
		s = strings.TrimRight(string(r[:constants.MaxTokenLen]), "_")
	}
	if s == "" {
		return constants.Placeholder
	}
	return s
}
