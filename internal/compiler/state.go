package compiler

import "fmt"

// State is a stage of one compilation.
type State int

const (
	Idle State = iota
	Normalizing
	Reconciling
	Resolving
	Binding
	Emitting
	Done
	Failed
)

var stateNames = [...]string{"idle", "normalizing", "reconciling", "resolving", "binding", "emitting", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Done || s == Failed }

// transitions lists the legal successors of each state. Reconciling is
// skipped when no preview is supplied. Failed is reachable only from the
// input check and from locator resolution.
var transitions = map[State][]State{
	Idle:        {Normalizing},
	Normalizing: {Reconciling, Resolving, Failed},
	Reconciling: {Resolving},
	Resolving:   {Binding, Failed},
	Binding:     {Emitting},
	Emitting:    {Done},
}

// CanTransition reports whether from may advance to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
