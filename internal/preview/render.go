// Package preview renders flows as editable step lists and aligns an accepted
// list back onto the recorded steps.
package preview

import (
	"fmt"
	"strings"

	"scriptforge/internal/flow"
)

// Render formats steps as one numbered, pipe-delimited line each:
//
//	3. Fill | Enter Supplier | Data: Supplier: Allied | Expected: Supplier shown
//
// maxLines <= 0 renders every step.
func Render(steps []flow.RecordedStep, maxLines int) string {
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		lines = append(lines, fmt.Sprintf("%d. %s", s.Ordinal, strings.Join(lineParts(s), " | ")))
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func lineParts(s flow.RecordedStep) []string {
	var parts []string
	for _, v := range []string{s.Action, s.Navigation} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if s.Data != "" {
		parts = append(parts, "Data: "+s.Data)
	}
	if s.Expected != "" {
		parts = append(parts, "Expected: "+s.Expected)
	}
	if len(parts) > 0 {
		return parts
	}
	hint := s.Element.Name
	if hint == "" {
		hint = s.Element.Title
	}
	if hint == "" {
		hint = s.Hints.Name
	}
	if hint == "" {
		hint = s.Hints.Title
	}
	if hint == "" {
		return []string{"Note: Recorded step (no action/navigation)"}
	}
	return []string{"Note: " + hint}
}
