package compiler

// Event is one state transition of a compilation.
type Event struct {
	Flow    string `json:"flow"`
	From    State  `json:"from"`
	To      State  `json:"to"`
	Message string `json:"message,omitempty"`
}

// Observer is told about every state transition.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type noopObserver struct{}

func (noopObserver) Observe(Event) {}

// ChannelObserver forwards events to a channel without blocking; events are
// dropped when the channel is full.
type ChannelObserver struct {
	Ch chan<- Event
}

func (o ChannelObserver) Observe(e Event) {
	select {
	case o.Ch <- e:
	default:
	}
}
