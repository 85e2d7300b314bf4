package preview

import (
	"regexp"
	"sort"
	"strings"

	"scriptforge/internal/flow"
)

var (
	ordinalPrefix = regexp.MustCompile(`^\d+[.)]?\s*`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Signatures extracts step signatures from pipe-delimited preview lines.
// parsed counts the lines that carried at least one pipe.
func Signatures(text string) (set map[string]struct{}, parsed int) {
	set = make(map[string]struct{})
	for _, line := range lines(text) {
		if !strings.Contains(line, "|") {
			continue
		}
		segments := strings.Split(line, "|")
		for i := range segments {
			segments[i] = strings.ToLower(strings.TrimSpace(segments[i]))
		}
		action := segments[0]
		var navigation, data string
		if len(segments) > 1 {
			navigation = segments[1]
		}
		for _, seg := range segments[min(2, len(segments)):] {
			if v, ok := strings.CutPrefix(seg, "data:"); ok {
				data = strings.TrimSpace(v)
			}
		}
		set[flow.Signature(action, navigation, data)] = struct{}{}
		parsed++
	}
	return set, parsed
}

// Phrases collects the distinct normalized action and navigation phrases of
// a preview. Lines without pipes contribute their whole text.
func Phrases(text string) []string {
	seen := make(map[string]struct{})
	add := func(s string) {
		if p := NormalizePhrase(s); p != "" {
			seen[p] = struct{}{}
		}
	}
	for _, line := range lines(text) {
		if !strings.Contains(line, "|") {
			add(line)
			continue
		}
		segments := strings.Split(line, "|")
		add(segments[0])
		if len(segments) > 1 {
			add(segments[1])
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NormalizePhrase lowercases, collapses whitespace and strips quotes.
func NormalizePhrase(s string) string {
	s = whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
	s = strings.NewReplacer(`'`, "", `"`, "").Replace(s)
	return strings.TrimSpace(s)
}

// lines returns the non-blank preview lines with any "12.", "12)" or "12"
// numbering removed.
func lines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
