// Package binding infers which recorded literals come from external test
// data columns.
package binding

import (
	"fmt"
	"sort"
	"strings"

	"scriptforge/internal/flow"
	"scriptforge/internal/naming"
	"scriptforge/internal/symbol"
)

// Category is how a bound value is entered into the page.
type Category string

const (
	CategoryFill   Category = "fill"
	CategorySelect Category = "select"
)

// Prefix is the generated method prefix for the category.
func (c Category) Prefix() string {
	if c == CategorySelect {
		return "select"
	}
	return "set"
}

type field int

const (
	fieldAction field = iota
	fieldNavigation
)

type rule struct {
	category Category
	field    field
	terms    []string
}

// rules is consulted in order; the first hit wins, else CategoryFill. Only
// the recorded wording counts: element tags and roles are ignored because
// autocomplete inputs carry role=combobox yet take fill().
var rules = []rule{
	{category: CategorySelect, field: fieldAction, terms: []string{"select"}},
	{category: CategorySelect, field: fieldNavigation, terms: []string{"dropdown", "choose"}},
}

// Classify decides whether a data-entry step fills a field or picks from a
// list.
func Classify(step flow.RecordedStep) Category {
	for _, r := range rules {
		subject := strings.ToLower(r.subject(step))
		for _, term := range r.terms {
			if strings.Contains(subject, term) {
				return r.category
			}
		}
	}
	return CategoryFill
}

func (r rule) subject(step flow.RecordedStep) string {
	if r.field == fieldNavigation {
		return step.Navigation
	}
	return step.Action
}

// Binding associates one data-entry step with an external column.
type Binding struct {
	Symbol     string
	DataKey    string
	Normalized string
	Method     string
	Fallback   string
	Category   Category
	// Occurrence is the zero-based index of this binding among bindings
	// sharing the same normalized key, in step order.
	Occurrence int
	Ordinal    int
}

// Inferencer accumulates bindings for one compilation.
type Inferencer struct {
	methods     map[string]struct{}
	occurrences map[string]int
	bindings    []Binding
}

// NewInferencer returns an empty Inferencer. Setter names never reuse the
// page's fixed members or any name in taken, normally the flow's symbols.
func NewInferencer(taken ...string) *Inferencer {
	in := &Inferencer{
		methods:     make(map[string]struct{}),
		occurrences: make(map[string]int),
	}
	for _, name := range symbol.ReservedMembers {
		in.methods[name] = struct{}{}
	}
	for _, name := range taken {
		in.methods[name] = struct{}{}
	}
	return in
}

// Observe records a binding for ref when its step carries a data key and was
// not diverted to a login page.
func (in *Inferencer) Observe(ref symbol.Ref) (Binding, bool) {
	step := ref.Step
	if ref.Diverted || strings.TrimSpace(step.DataKey) == "" {
		return Binding{}, false
	}
	normalized := naming.DataKey(step.DataKey)
	if normalized == "" {
		return Binding{}, false
	}
	category := Classify(step)
	b := Binding{
		Symbol:     ref.Symbol,
		DataKey:    step.DataKey,
		Normalized: normalized,
		Method:     in.methodName(category, step, ref.Symbol),
		Fallback:   step.DataValue,
		Category:   category,
		Occurrence: in.occurrences[normalized],
		Ordinal:    step.Ordinal,
	}
	in.occurrences[normalized]++
	in.bindings = append(in.bindings, b)
	return b, true
}

func (in *Inferencer) methodName(category Category, step flow.RecordedStep, symbolName string) string {
	suffix := naming.Camel(step.DataKey)
	if suffix == "" {
		suffix = naming.Camel(step.Navigation)
	}
	if suffix == "" {
		suffix = symbolName
	}
	base := category.Prefix() + naming.UpperFirst(suffix)
	name := base
	for n := 2; ; n++ {
		if _, taken := in.methods[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s%d", base, n)
	}
	in.methods[name] = struct{}{}
	return name
}

// Bindings returns every binding in step order.
func (in *Inferencer) Bindings() []Binding {
	return append([]Binding(nil), in.bindings...)
}

// Group is every binding sharing one normalized data key.
type Group struct {
	// Column is the data key as first recorded.
	Column     string
	Normalized string
	Bindings   []Binding
}

// Groups returns bindings grouped by normalized key, groups ordered by their
// first binding.
func Groups(bindings []Binding) []Group {
	index := make(map[string]int)
	var out []Group
	for _, b := range bindings {
		i, ok := index[b.Normalized]
		if !ok {
			i = len(out)
			index[b.Normalized] = i
			out = append(out, Group{Column: b.DataKey, Normalized: b.Normalized})
		}
		out[i].Bindings = append(out[i].Bindings, b)
	}
	return out
}

// Column summarizes how one external column is consumed.
type Column struct {
	Name        string   `json:"columnName"`
	Occurrences int      `json:"occurrences"`
	ActionType  string   `json:"actionType"`
	Methods     []string `json:"methods"`
}

// Summarize reports each bound column, sorted by column name.
func Summarize(bindings []Binding) []Column {
	groups := Groups(bindings)
	out := make([]Column, 0, len(groups))
	for _, g := range groups {
		col := Column{Name: g.Column, Occurrences: len(g.Bindings)}
		for _, b := range g.Bindings {
			col.Methods = append(col.Methods, b.Method)
			switch {
			case col.ActionType == "":
				col.ActionType = string(b.Category)
			case col.ActionType != string(b.Category):
				col.ActionType = "mixed"
			}
		}
		out = append(out, col)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
