package compiler

import (
	"errors"
	"fmt"
)

// ErrNoSteps means a flow had nothing to compile.
var ErrNoSteps = errors.New("no recorded steps")

// InputError reports a flow with no recorded steps.
type InputError struct {
	Flow string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("compiler: flow %q has %v; record it or ingest its refined document first", e.Flow, ErrNoSteps)
}

func (e *InputError) Unwrap() error { return ErrNoSteps }
