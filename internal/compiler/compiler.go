// Package compiler turns a recorded flow into locator, page object and test
// script artifacts.
//
// A compilation runs Idle, Normalizing, Reconciling (only with a preview),
// Resolving, Binding, Emitting and ends in Done, or in Failed when the flow
// has no steps or a step has no usable selector. Compilation is all or
// nothing: a failed run returns no artifacts. There are no retries because
// the same inputs would fail the same way.
package compiler

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"scriptforge/internal/binding"
	"scriptforge/internal/emit"
	"scriptforge/internal/flow"
	"scriptforge/internal/flowsource"
	"scriptforge/internal/framework"
	"scriptforge/internal/locator"
	"scriptforge/internal/preview"
	"scriptforge/internal/symbol"
)

// Request names the flow to compile and an optional accepted preview.
type Request struct {
	Flow    string `json:"flow"`
	Preview string `json:"preview,omitempty"`
}

// Result is a successful compilation.
type Result struct {
	Flow        flow.Meta            `json:"flow"`
	Artifacts   emit.ArtifactSet     `json:"artifacts"`
	Degradation *preview.Degradation `json:"degradation,omitempty"`
	// Steps is the number of steps retained after reconciliation.
	Steps int `json:"steps"`
}

// Input is everything the pure compilation core consumes.
type Input struct {
	Ref     string
	Meta    flow.Meta
	Steps   []flow.RecordedStep
	Preview string
	Profile framework.Profile
	Assets  framework.Assets
}

// Compiler wires the flow source and framework checkout into Build. It
// holds no per-run state and is safe for concurrent use.
type Compiler struct {
	source  flowsource.Source
	fs      afero.Fs
	profile framework.Profile
	logger  logrus.FieldLogger
}

func New(source flowsource.Source, fsys afero.Fs, profile framework.Profile, logger logrus.FieldLogger) *Compiler {
	return &Compiler{source: source, fs: fsys, profile: profile, logger: logger}
}

// Profile returns the framework profile artifacts are laid out for.
func (c *Compiler) Profile() framework.Profile { return c.profile }

// Compile loads the flow named by req and compiles it. obs may be nil.
func (c *Compiler) Compile(ctx context.Context, req Request, obs Observer) (Result, error) {
	steps, meta, err := c.source.Steps(ctx, req.Flow)
	if err != nil {
		return Result{}, err
	}
	assets, err := framework.FindAssets(c.fs, c.profile)
	if err != nil {
		c.logger.WithError(err).WithField("flow", req.Flow).Warn("framework asset discovery failed; continuing without reusable pages")
		assets = framework.Assets{}
	}
	return Build(Input{
		Ref:     req.Flow,
		Meta:    meta,
		Steps:   steps,
		Preview: req.Preview,
		Profile: c.profile,
		Assets:  assets,
	}, c.logger, obs)
}

// run tracks the state of one compilation.
type run struct {
	flow  string
	state State
	log   logrus.FieldLogger
	obs   Observer
}

func (r *run) advance(to State, message string) {
	if !CanTransition(r.state, to) {
		panic("compiler: illegal transition " + r.state.String() + " -> " + to.String())
	}
	r.log.WithFields(logrus.Fields{"from": r.state, "to": to}).Debug("compile state")
	r.obs.Observe(Event{Flow: r.flow, From: r.state, To: to, Message: message})
	r.state = to
}

func (r *run) fail(err error) error {
	r.advance(Failed, err.Error())
	return err
}

// Build compiles already loaded steps. Identical input yields identical
// output.
func Build(in Input, logger logrus.FieldLogger, obs Observer) (Result, error) {
	if obs == nil {
		obs = noopObserver{}
	}
	meta := in.Meta
	if meta.Name == "" {
		meta.Name = in.Ref
	}
	if meta.Slug == "" {
		meta.Slug = flowsource.Slugify(meta.Name)
	}
	logger = logger.WithField("flow", meta.Slug)
	r := &run{flow: meta.Slug, state: Idle, log: logger, obs: obs}

	r.advance(Normalizing, "")
	steps := flow.Canonicalize(in.Steps)
	if len(steps) == 0 {
		return Result{}, r.fail(&InputError{Flow: firstNonEmpty(in.Ref, meta.Name)})
	}
	for i := range steps {
		if steps[i].Flow == "" {
			steps[i].Flow = meta.Slug
		}
	}

	var degradation *preview.Degradation
	if strings.TrimSpace(in.Preview) != "" {
		r.advance(Reconciling, "")
		rec := preview.Reconcile(steps, in.Preview)
		steps = rec.Steps
		if d := rec.Degradation; d != nil {
			degradation = d
			logger.WithFields(logrus.Fields{
				"reason":        d.Reason,
				"retained":      d.Retained,
				"preview_lines": d.ParsedLines,
			}).Warn("preview reconciliation degraded")
		}
	}

	r.advance(Resolving, "")
	table := symbol.NewTable(symbol.Options{LoginPageAvailable: in.Assets.LoginPage != ""})
	refs := make([]symbol.Ref, 0, len(steps))
	for _, step := range steps {
		resolved, err := locator.Resolve(step)
		if err != nil {
			return Result{}, r.fail(err)
		}
		refs = append(refs, table.Add(step, resolved.Selector))
	}

	r.advance(Binding, "")
	inf := binding.NewInferencer(table.Names()...)
	for _, ref := range refs {
		inf.Observe(ref)
	}

	r.advance(Emitting, "")
	set := emit.Emit(emit.Input{
		Title:       meta.Name,
		OriginalURL: meta.OriginalURL,
		Paths:       emit.PathsFor(in.Profile, meta.Slug),
		Assets:      in.Assets,
		Entries:     table.Entries(),
		Refs:        refs,
		Bindings:    inf.Bindings(),
	})

	r.advance(Done, "")
	return Result{Flow: meta, Artifacts: set, Degradation: degradation, Steps: len(steps)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
