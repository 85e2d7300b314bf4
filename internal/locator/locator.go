// Package locator picks one concrete selector per recorded step.
package locator

import (
	"fmt"
	"regexp"
	"strings"

	"scriptforge/internal/flow"
)

// Source says which locator set produced the resolved selector.
type Source string

const (
	SourceStep    Source = "step"
	SourceElement Source = "element"
)

// Resolved is the selector chosen for a step.
type Resolved struct {
	Selector string
	Strategy flow.Strategy
	Source   Source
}

// ResolutionError reports a step without any usable selector. It aborts
// compilation of the whole flow.
type ResolutionError struct {
	Ordinal    int
	Action     string
	Navigation string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("locator: no selector resolved for step %d (action=%q, navigation=%q); "+
		"ensure the recorded flow includes CSS or stable selectors", e.Ordinal, e.Action, e.Navigation)
}

// Resolve walks the step's own candidates in priority order, then the
// element's, and returns the first that normalizes to a non-empty selector.
func Resolve(step flow.RecordedStep) (Resolved, error) {
	sets := []struct {
		src   Source
		cands flow.Candidates
	}{
		{SourceStep, step.Locators},
		{SourceElement, step.Element.Candidates},
	}
	for _, set := range sets {
		for _, strategy := range flow.Priority {
			if sel := Normalize(set.cands.Get(strategy)); sel != "" {
				return Resolved{Selector: sel, Strategy: strategy, Source: set.src}, nil
			}
		}
	}
	return Resolved{}, &ResolutionError{Ordinal: step.Ordinal, Action: step.Action, Navigation: step.Navigation}
}

var (
	bareID     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*?#([^\s>+~,.\[\]:()"']+)$|^#([^\s>+~,.\[\]:()"']+)$`)
	xpathStart = regexp.MustCompile(`^(xpath=|\(*/)`)

	// Playwright engine selectors such as text=Save or role=button[...].
	enginePrefix = regexp.MustCompile(`^[a-z][a-z_:-]*=`)
)

// Normalize canonicalizes a recorded selector.
//
// A bare id reference ("#id" or "tag#id") becomes //*[@id="id"] so it
// survives DOM restructuring. XPath and Playwright engine selectors are kept
// as recorded. Other CSS keeps its
// structure; only whitespace runs and the spacing around top-level
// combinators are normalized.
func Normalize(selector string) string {
	raw := strings.TrimSpace(selector)
	if raw == "" {
		return ""
	}
	if xpathStart.MatchString(raw) || enginePrefix.MatchString(raw) || strings.Contains(raw, ">>") {
		return raw
	}
	if m := bareID.FindStringSubmatch(raw); m != nil {
		id := m[1]
		if id == "" {
			id = m[2]
		}
		return `//*[@id="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`
	}
	return normalizeCSS(raw)
}

// normalizeCSS collapses whitespace and writes the >, + and ~ combinators
// as " > " and the group separator as ", ". Text inside brackets,
// parentheses and quotes is left alone so that :nth-child(2n+1) and
// [class~="x"] keep their meaning.
func normalizeCSS(raw string) string {
	var b strings.Builder
	depth := 0
	var quote rune
	pendingSpace := false
	flushSpace := func() {
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
	}
	for _, r := range raw {
		switch {
		case quote != 0:
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
			continue
		case r == '"' || r == '\'':
			flushSpace()
			quote = r
			b.WriteRune(r)
			continue
		case r == '[' || r == '(':
			flushSpace()
			depth++
			b.WriteRune(r)
			continue
		case (r == ']' || r == ')') && depth > 0:
			depth--
			b.WriteRune(r)
			continue
		}
		if depth > 0 {
			b.WriteRune(r)
			continue
		}
		switch r {
		case ' ', '\t', '\r', '\n':
			pendingSpace = true
		case '>', '+', '~':
			pendingSpace = false
			out := strings.TrimRight(b.String(), " ")
			b.Reset()
			b.WriteString(out)
			b.WriteString(" " + string(r) + " ")
		case ',':
			pendingSpace = false
			out := strings.TrimRight(b.String(), " ")
			b.Reset()
			b.WriteString(out)
			b.WriteString(", ")
		default:
			if pendingSpace && !strings.HasSuffix(b.String(), " ") {
				flushSpace()
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
