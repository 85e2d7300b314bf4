// Package naming derives identifiers, slugs and script literals from recorded text.
package naming

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	quoteUnderscore = regexp.MustCompile(`['"_]+`)
	spaceRun        = regexp.MustCompile(`\s+`)
	nonAlnum        = regexp.MustCompile(`[^a-z0-9]+`)

	lower = cases.Lower(language.Und)
	upper = cases.Upper(language.Und)
)

// Camel converts free text into a lowerCamel identifier. Characters outside
// [a-z0-9] after lowercasing act as word separators and are dropped.
func Camel(value string) string {
	cleaned := quoteUnderscore.ReplaceAllString(value, " ")
	cleaned = strings.TrimSpace(spaceRun.ReplaceAllString(cleaned, " "))
	cleaned = lower.String(cleaned)
	if cleaned == "" {
		return ""
	}
	words := nonAlnum.Split(cleaned, -1)
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(UpperFirst(w))
	}
	return b.String()
}

// Pascal is Camel with the first letter upper-cased.
func Pascal(value string) string {
	return UpperFirst(Camel(value))
}

// UpperFirst upper-cases the first byte of an ASCII identifier.
func UpperFirst(s string) string {
	if s == "" {
		return ""
	}
	return upper.String(s[:1]) + s[1:]
}

// LowerFirst lower-cases the first byte of an ASCII identifier.
func LowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return lower.String(s[:1]) + s[1:]
}

// Slug lowercases value and joins alphanumeric runs with "-".
// An empty result falls back to def.
func Slug(value, def string) string {
	s := nonAlnum.ReplaceAllString(lower.String(strings.TrimSpace(value)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return def
	}
	return s
}

// DataKey reduces a column name to its alphanumeric, case-insensitive form.
func DataKey(value string) string {
	return nonAlnum.ReplaceAllString(lower.String(value), "")
}

// Literal renders s as a double-quoted script string literal.
func Literal(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// LiteralList renders values as a script array of string literals.
func LiteralList(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Literal(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
