package ocr

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
)

// Normalize collapses noisy whitespace page by page. Line breaks survive,
// more than one blank line becomes one, and the page-break marker is kept
// as a bare separator between pages.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	pages := strings.Split(reCRLF.ReplaceAllString(s, "\n"), constants.PageBreak)
	out := pages[:0]
	for _, p := range pages {
		p = reTabs.ReplaceAllString(p, " ")
		p = reMultiSpace.ReplaceAllString(p, " ")
		p = reMultiBlank.ReplaceAllString(p, "\n\n")
		lines := strings.Split(p, "\n")
		for i := range lines {
			lines[i] = strings.TrimRight(lines[i], " ")
		}
		out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
	}
	// pdftotext terminates the last page with a form feed
	for len(out) > 1 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, constants.PageBreak)
}
