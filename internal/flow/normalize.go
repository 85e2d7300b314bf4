package flow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"scriptforge/internal/naming"
)

// ErrInvalidDocument is returned when a flow document is not a JSON object.
var ErrInvalidDocument = errors.New("flow: invalid document")

var enterKey = regexp.MustCompile(`(?i)enter\s+([a-z0-9 _-]+)`)

// ParseDocument decodes a recorded flow document of the form
// {flow_name, flow_slug, original_url, steps:[...], elements:[...]}.
func ParseDocument(raw []byte) (Document, error) {
	if !gjson.ValidBytes(raw) {
		return Document{}, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Document{}, fmt.Errorf("%w: top level is not an object", ErrInvalidDocument)
	}
	meta := Meta{
		Name:        text(root.Get("flow_name")),
		Slug:        text(root.Get("flow_slug")),
		OriginalURL: text(root.Get("original_url")),
	}
	if meta.Name == "" {
		meta.Name = text(root.Get("flow"))
	}
	meta.Slug = naming.Slug(firstNonEmpty(meta.Slug, meta.Name), "")

	elements := map[int]gjson.Result{}
	root.Get("elements").ForEach(func(_, el gjson.Result) bool {
		if n := ordinal(el.Get("step")); n > 0 {
			elements[n] = el
		}
		return true
	})

	var steps []RecordedStep
	position := 0
	root.Get("steps").ForEach(func(_, st gjson.Result) bool {
		position++
		if !st.IsObject() {
			return true
		}
		step := NormalizeStep(st, position, meta)
		if !st.Get("element").IsObject() {
			if el, ok := elements[step.Ordinal]; ok {
				step.Element = parseElement(el)
			}
		}
		steps = append(steps, step)
		return true
	})
	return Document{Meta: meta, Steps: Canonicalize(steps)}, nil
}

// NormalizeStepJSON canonicalizes a single raw step payload.
func NormalizeStepJSON(raw []byte, position int, meta Meta) (RecordedStep, error) {
	if !gjson.ValidBytes(raw) {
		return RecordedStep{}, fmt.Errorf("%w: malformed step payload", ErrInvalidDocument)
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return RecordedStep{}, fmt.Errorf("%w: step payload is not an object", ErrInvalidDocument)
	}
	return NormalizeStep(r, position, meta), nil
}

// NormalizeStep converts a raw recorder step into the canonical shape.
// position is the 1-based list position used when the step carries no
// usable ordinal of its own.
func NormalizeStep(r gjson.Result, position int, meta Meta) RecordedStep {
	n := ordinal(r.Get("step"))
	if n <= 0 {
		n = ordinal(r.Get("step_index"))
	}
	if n <= 0 {
		n = position
	}
	locs := r.Get("locators")
	step := RecordedStep{
		Ordinal:    n,
		Action:     text(r.Get("action")),
		Navigation: text(r.Get("navigation")),
		Data:       text(r.Get("data")),
		Expected:   text(r.Get("expected")),
		Locators:   parseCandidates(locs),
		Hints: Hints{
			Name:   text(locs.Get("name")),
			Title:  text(locs.Get("title")),
			Labels: text(locs.Get("labels")),
		},
		Element: parseElement(r.Get("element")),
		Flow:    naming.Slug(firstNonEmpty(text(r.Get("flow_slug")), meta.Slug), ""),
	}
	step.DataKey = ExtractDataKey(step.Data, step.Navigation)
	step.DataValue = ExtractDataValue(step.Data)
	return step
}

// ExtractDataKey reads the external column a step binds to: the key of an
// embedded "key: value" data literal, else the phrase after "enter" in the
// navigation text.
func ExtractDataKey(data, navigation string) string {
	if k, _, ok := strings.Cut(data, ":"); ok {
		return strings.TrimSpace(k)
	}
	if m := enterKey.FindStringSubmatch(strings.TrimSpace(navigation)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractDataValue strips an embedded "key:" prefix from a data literal.
func ExtractDataValue(data string) string {
	trimmed := strings.TrimSpace(data)
	if _, v, ok := strings.Cut(trimmed, ":"); ok {
		return strings.TrimSpace(v)
	}
	return trimmed
}

func parseCandidates(r gjson.Result) Candidates {
	if !r.IsObject() {
		return Candidates{}
	}
	return Candidates{
		CSS:        text(r.Get("css")),
		Playwright: text(r.Get("playwright")),
		Stable:     text(r.Get("stable")),
		XPath:      text(r.Get("xpath")),
		RawXPath:   text(r.Get("raw_xpath")),
		Selector:   text(r.Get("selector")),
	}
}

func parseElement(r gjson.Result) Element {
	if !r.IsObject() {
		return Element{}
	}
	cands := parseCandidates(r)
	if cands.Empty() {
		cands = parseCandidates(r.Get("locators"))
	}
	return Element{
		Tag:        strings.ToLower(firstNonEmpty(text(r.Get("tag")), text(r.Get("tagName")))),
		Role:       text(r.Get("role")),
		Name:       text(r.Get("name")),
		Title:      text(r.Get("title")),
		Candidates: cands,
	}
}

// text returns the trimmed scalar value of r. Objects, null and missing keys
// collapse to "", arrays of scalars are joined with a space.
func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return strings.TrimSpace(r.String())
	case gjson.JSON:
		if !r.IsArray() {
			return ""
		}
		var parts []string
		for _, item := range r.Array() {
			if v := text(item); v != "" && !item.IsArray() {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func ordinal(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return int(r.Int())
	case gjson.String:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(r.Str), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
