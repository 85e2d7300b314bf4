// Package symbol assigns stable identifiers to resolved selectors.
package symbol

import (
	"fmt"
	"strings"
	"unicode"

	"scriptforge/internal/flow"
	"scriptforge/internal/naming"
)

// Entry maps one resolved selector to its generated identifier.
type Entry struct {
	Name     string
	Selector string
	// Ordinal of the first step that introduced the selector.
	Ordinal int
}

// Ref ties a retained step to the symbol it uses.
type Ref struct {
	Step     flow.RecordedStep
	Selector string
	Symbol   string
	// Diverted steps are modeled by a reusable login page and get no entry.
	Diverted bool
}

// Options control how steps are admitted into the table.
type Options struct {
	// LoginPageAvailable enables login diversion. Without a login page
	// artifact, authentication steps are treated like any other step.
	LoginPageAvailable bool
}

// Table deduplicates selectors into collision-free identifiers. A Table is
// scoped to one compilation and is not safe for concurrent use.
type Table struct {
	opts       Options
	bySelector map[string]string
	used       map[string]struct{}
	entries    []Entry
}

// ReservedMembers are the members every generated page object declares
// itself. Symbols and setters must not shadow them.
var ReservedMembers = []string{
	"page",
	"helper",
	"constructor",
	"dataFields",
	"fieldFor",
	"coerceValue",
	"normaliseDataKey",
	"resolveDataValue",
	"applyData",
}

func NewTable(opts Options) *Table {
	t := &Table{
		opts:       opts,
		bySelector: make(map[string]string),
		used:       make(map[string]struct{}, len(ReservedMembers)),
	}
	for _, name := range ReservedMembers {
		t.used[name] = struct{}{}
	}
	return t
}

// Names returns the symbol names in first-seen order.
func (t *Table) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Name
	}
	return out
}

// Add admits a step whose selector has been resolved and returns its Ref.
// Identical selectors always reuse the symbol assigned the first time.
func (t *Table) Add(step flow.RecordedStep, selector string) Ref {
	existing, known := t.bySelector[selector]
	base := existing
	if !known {
		base = BaseName(step)
	}
	if t.opts.LoginPageAvailable && IsLoginStep(step.Navigation, base) {
		return Ref{Step: step, Selector: selector, Symbol: base, Diverted: true}
	}
	if known {
		return Ref{Step: step, Selector: selector, Symbol: existing}
	}
	name := base
	for suffix := 2; ; suffix++ {
		if _, taken := t.used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s%d", base, suffix)
	}
	t.used[name] = struct{}{}
	t.bySelector[selector] = name
	t.entries = append(t.entries, Entry{Name: name, Selector: selector, Ordinal: step.Ordinal})
	return Ref{Step: step, Selector: selector, Symbol: name}
}

// Entries returns the symbols in first-seen order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of distinct symbols.
func (t *Table) Len() int { return len(t.entries) }

// BaseName derives the un-suffixed identifier for a step: an explicit
// name/title/label hint first, then navigation text, then action text, and
// finally step<N>.
func BaseName(step flow.RecordedStep) string {
	for _, candidate := range []string{step.Hints.First(), step.Navigation, step.Action} {
		if name := identifier(candidate); name != "" {
			return name
		}
	}
	return fmt.Sprintf("step%d", step.Ordinal)
}

// identifier camel-cases text into a valid script identifier.
func identifier(text string) string {
	name := naming.Camel(text)
	if name == "" {
		return ""
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "field" + name
	}
	return name
}

// loginNavigationTerms and loginKeyTerms decide which steps a reusable login
// page already covers.
var (
	loginNavigationTerms = []string{
		"user name",
		"username",
		"password",
		"sign in",
		"signin",
		"passcode",
		"verify",
		"login page",
	}
	loginKeyTerms = []string{
		"username",
		"userid",
		"user",
		"signin",
		"sign_in",
		"password",
		"enterpasscode",
		"passcode",
		"verify",
	}
)

// IsLoginStep reports whether navigation text or a derived identifier names
// an authentication step.
func IsLoginStep(navigation, key string) bool {
	nav := strings.ToLower(navigation)
	for _, term := range loginNavigationTerms {
		if strings.Contains(nav, term) {
			return true
		}
	}
	k := strings.ToLower(key)
	for _, term := range loginKeyTerms {
		if strings.Contains(k, term) {
			return true
		}
	}
	return false
}
