// Package flow holds the canonical shape of a recorded browser flow.
//
// Raw recorder output is loosely typed: fields go missing, locator maps carry
// extra keys, and step numbers arrive as strings or ints. Everything is
// validated once by the normalizer so later stages never branch on absent
// keys; missing text is always the empty string.
package flow

import (
	"sort"
	"strings"
)

// Strategy names one kind of candidate selector captured by the recorder.
type Strategy string

const (
	StrategyCSS        Strategy = "css"
	StrategyPlaywright Strategy = "playwright"
	StrategyStable     Strategy = "stable"
	StrategyXPath      Strategy = "xpath"
	StrategyRawXPath   Strategy = "raw_xpath"
	StrategySelector   Strategy = "selector"
)

// Priority is the fixed order in which candidate selectors are consulted.
var Priority = []Strategy{
	StrategyCSS,
	StrategyPlaywright,
	StrategyStable,
	StrategyXPath,
	StrategyRawXPath,
	StrategySelector,
}

// Candidates is the set of alternative selectors recorded for one element.
type Candidates struct {
	CSS        string `json:"css,omitempty"`
	Playwright string `json:"playwright,omitempty"`
	Stable     string `json:"stable,omitempty"`
	XPath      string `json:"xpath,omitempty"`
	RawXPath   string `json:"raw_xpath,omitempty"`
	Selector   string `json:"selector,omitempty"`
}

// Get returns the candidate recorded for s.
func (c Candidates) Get(s Strategy) string {
	switch s {
	case StrategyCSS:
		return c.CSS
	case StrategyPlaywright:
		return c.Playwright
	case StrategyStable:
		return c.Stable
	case StrategyXPath:
		return c.XPath
	case StrategyRawXPath:
		return c.RawXPath
	case StrategySelector:
		return c.Selector
	}
	return ""
}

// Empty reports whether no candidate carries text.
func (c Candidates) Empty() bool {
	for _, s := range Priority {
		if strings.TrimSpace(c.Get(s)) != "" {
			return false
		}
	}
	return true
}

// Hints are the human-facing labels the recorder attached to a locator set.
type Hints struct {
	Name   string `json:"name,omitempty"`
	Title  string `json:"title,omitempty"`
	Labels string `json:"labels,omitempty"`
}

// First returns the first non-empty hint in name, title, labels order.
func (h Hints) First() string {
	for _, v := range []string{h.Name, h.Title, h.Labels} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Element describes the DOM node the step acted on.
type Element struct {
	Tag        string     `json:"tag,omitempty"`
	Role       string     `json:"role,omitempty"`
	Name       string     `json:"name,omitempty"`
	Title      string     `json:"title,omitempty"`
	Candidates Candidates `json:"locators"`
}

// Meta identifies the flow a step belongs to.
type Meta struct {
	Name        string `json:"flow_name"`
	Slug        string `json:"flow_slug"`
	OriginalURL string `json:"original_url,omitempty"`
}

// RecordedStep is one canonical interaction. Ordinal is 1-based and never
// renumbered by later filtering.
type RecordedStep struct {
	Ordinal    int        `json:"step"`
	Action     string     `json:"action"`
	Navigation string     `json:"navigation"`
	Data       string     `json:"data"`
	Expected   string     `json:"expected"`
	Locators   Candidates `json:"locators"`
	Hints      Hints      `json:"hints"`
	Element    Element    `json:"element"`
	Flow       string     `json:"flow_slug"`

	// DataKey is the external column this step's literal binds to, if any.
	DataKey string `json:"data_key,omitempty"`
	// DataValue is the recorded literal with any "key:" prefix removed.
	DataValue string `json:"data_value,omitempty"`
}

// Signature is the approximate identity key used to match a step across
// preview edits and re-ingestion of the same flow.
func (s RecordedStep) Signature() string {
	return Signature(s.Action, s.Navigation, s.Data)
}

// Signature joins the lowered, trimmed parts with "|".
func Signature(action, navigation, data string) string {
	return strings.ToLower(strings.TrimSpace(action)) + "|" +
		strings.ToLower(strings.TrimSpace(navigation)) + "|" +
		strings.ToLower(strings.TrimSpace(data))
}

// Label is the text used to describe the step in generated comments.
func (s RecordedStep) Label() string {
	for _, v := range []string{s.Navigation, s.Action, s.Expected} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Document is a whole recorded flow.
type Document struct {
	Meta  Meta
	Steps []RecordedStep
}

// Canonicalize orders steps by ordinal. When two steps share an ordinal the
// later one wins, matching how a re-ingested flow overwrites earlier rows.
func Canonicalize(steps []RecordedStep) []RecordedStep {
	byOrdinal := make(map[int]int, len(steps))
	out := make([]RecordedStep, 0, len(steps))
	for _, s := range steps {
		if idx, ok := byOrdinal[s.Ordinal]; ok {
			out[idx] = s
			continue
		}
		byOrdinal[s.Ordinal] = len(out)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}
