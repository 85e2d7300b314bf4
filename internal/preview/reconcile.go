package preview

import (
	"strings"

	"scriptforge/internal/flow"
)

// Reason says why reconciliation fell back from strict signature matching.
type Reason string

const (
	// ReasonUnreliable means fewer than two preview lines could be parsed,
	// so every step was kept.
	ReasonUnreliable Reason = "unreliable_preview"
	// ReasonFuzzy means signature matching kept too few steps and phrase
	// matching was used instead.
	ReasonFuzzy Reason = "fuzzy_match"
	// ReasonNoMatch means nothing matched at all and every step was kept.
	ReasonNoMatch Reason = "no_match"
)

// Degradation records a fallback taken during reconciliation. It is an
// observation for logs, never a failure.
type Degradation struct {
	Reason      Reason `json:"reason"`
	ParsedLines int    `json:"parsedLines"`
	Phrases     int    `json:"phrases"`
	Signatures  int    `json:"signatures"`
	Retained    int    `json:"retained"`
	InputSteps  int    `json:"inputSteps"`
}

// Result is the outcome of aligning a preview with recorded steps.
type Result struct {
	Steps       []flow.RecordedStep
	Filtered    bool
	Degradation *Degradation
}

// Reconcile keeps the steps an accepted preview still describes. The output
// preserves input order and is never empty when steps is non-empty.
func Reconcile(steps []flow.RecordedStep, text string) Result {
	if strings.TrimSpace(text) == "" || len(steps) == 0 {
		return Result{Steps: steps}
	}

	set, parsed := Signatures(text)
	phrases := Phrases(text)
	deg := func(r Reason, retained int) *Degradation {
		return &Degradation{
			Reason:      r,
			ParsedLines: parsed,
			Phrases:     len(phrases),
			Retained:    retained,
			InputSteps:  len(steps),
		}
	}
	if parsed < 2 {
		return Result{Steps: steps, Degradation: deg(ReasonUnreliable, len(steps))}
	}

	matched := filter(steps, func(s flow.RecordedStep) bool {
		_, ok := set[s.Signature()]
		return ok
	})
	if len(matched) == 0 || len(matched)*2 < len(phrases) {
		fuzzy := filter(steps, func(s flow.RecordedStep) bool { return matchesPhrase(s, phrases) })
		if len(fuzzy) > 0 {
			d := deg(ReasonFuzzy, len(fuzzy))
			d.Signatures = len(matched)
			return Result{Steps: fuzzy, Filtered: true, Degradation: d}
		}
	}
	if len(matched) > 0 {
		return Result{Steps: matched, Filtered: true}
	}
	return Result{Steps: steps, Degradation: deg(ReasonNoMatch, len(steps))}
}

// matchesPhrase accepts a substring match in either direction between the
// step's navigation text (or its action when navigation is empty) and any
// preview phrase, tolerating small wording drift.
func matchesPhrase(s flow.RecordedStep, phrases []string) bool {
	subject := s.Navigation
	if subject == "" {
		subject = s.Action
	}
	subject = NormalizePhrase(subject)
	if subject == "" {
		return false
	}
	for _, p := range phrases {
		if strings.Contains(subject, p) || strings.Contains(p, subject) {
			return true
		}
	}
	return false
}

func filter(steps []flow.RecordedStep, keep func(flow.RecordedStep) bool) []flow.RecordedStep {
	var out []flow.RecordedStep
	for _, s := range steps {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
