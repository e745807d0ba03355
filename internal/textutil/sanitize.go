package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// symbolReplacer spells out the symbols that carry meaning in a description.
var symbolReplacer = strings.NewReplacer(
	"%", "percent",
	"$", "dollar",
)

// SanitizeFilename converts free text into a filename stem made only of
// characters in [-A-Za-z0-9._]. Surrounding whitespace is trimmed, "%" and
// "$" are spelled out, and every other rune outside the allowed set becomes
// a single underscore. Case is preserved. Empty or all-whitespace input
// yields "".
//
// The function is idempotent: SanitizeFilename(SanitizeFilename(s)) equals
// SanitizeFilename(s).
func SanitizeFilename(text string) string {
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return ""
	}
	text = symbolReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if IsFilenameRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// IsFilenameRune reports whether r may appear in a sanitized filename stem.
func IsFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.' || r == '_':
		return true
	default:
		return false
	}
}

// SummarizeSnippet collapses whitespace and truncates content to limit runes
// so untrusted model output can be logged on one line.
func SummarizeSnippet(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	if limit <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
