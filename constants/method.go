package constants

import "strings"

// ExtractionMethod selects the text extraction strategy for a run.
type ExtractionMethod string

const (
	MethodLibraryParse ExtractionMethod = "pdf-parse"
	MethodRuleReader   ExtractionMethod = "pdfreader"
	MethodRemoteOCR    ExtractionMethod = "mistral"
)

// DefaultMethod is used when no selector is configured.
const DefaultMethod = MethodRuleReader

var allMethods = []ExtractionMethod{
	MethodLibraryParse,
	MethodRuleReader,
	MethodRemoteOCR,
}

func MethodStrings() []string {
	result := make([]string, len(allMethods))
	for i, m := range allMethods {
		result[i] = string(m)
	}
	return result
}

// CanonicalizeMethod maps a selector or one of its synonyms to an ExtractionMethod.
// An empty input yields the default; an unknown input returns false.
func CanonicalizeMethod(input string) (ExtractionMethod, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return DefaultMethod, true
	}

	synonyms := map[string]ExtractionMethod{
		"pdfparse":    MethodLibraryParse,
		"pdf_parse":   MethodLibraryParse,
		"library":     MethodLibraryParse,
		"pdftotext":   MethodLibraryParse,
		"pdf-reader":  MethodRuleReader,
		"reader":      MethodRuleReader,
		"rule-based":  MethodRuleReader,
		"rules":       MethodRuleReader,
		"ocr":         MethodRemoteOCR,
		"remote-ocr":  MethodRemoteOCR,
		"mistral-ocr": MethodRemoteOCR,
	}
	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	for _, m := range allMethods {
		if normalized == string(m) {
			return m, true
		}
	}
	return "", false
}

// NeedsRemoteCredentials reports whether the strategy talks to a remote service.
func (m ExtractionMethod) NeedsRemoteCredentials() bool {
	return m == MethodRemoteOCR
}
