// Package flowsource loads recorded flows from the places the recorder
// leaves them.
package flowsource

import (
	"context"
	"fmt"

	"scriptforge/internal/flow"
	"scriptforge/internal/naming"
)

// Source returns the canonical steps of a flow identified by name or slug.
// A flow the source does not know yields no steps and a nil error.
type Source interface {
	Steps(ctx context.Context, ref string) ([]flow.RecordedStep, flow.Meta, error)
}

// Slugify is the flow key shared by every source.
func Slugify(s string) string {
	return naming.Slug(s, "scenario")
}

// Chain consults sources in order and returns the first non-empty flow.
type Chain []Source

func (c Chain) Steps(ctx context.Context, ref string) ([]flow.RecordedStep, flow.Meta, error) {
	for i, src := range c {
		if src == nil {
			continue
		}
		steps, meta, err := src.Steps(ctx, ref)
		if err != nil {
			return nil, flow.Meta{}, fmt.Errorf("flow source %d: %w", i, err)
		}
		if len(steps) > 0 {
			return steps, meta, nil
		}
	}
	return nil, flow.Meta{}, nil
}
