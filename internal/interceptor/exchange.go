// Package interceptor turns a buffered upstream response into exactly one
// terminal write to the downstream client.
package interceptor

import "sync/atomic"

// State is the position of an Exchange in its lifecycle.
type State int32

const (
	Buffering State = iota
	Decoding
	Transforming
	Sent
)

func (s State) String() string {
	switch s {
	case Buffering:
		return "buffering"
	case Decoding:
		return "decoding"
	case Transforming:
		return "transforming"
	case Sent:
		return "sent"
	default:
		return "unknown"
	}
}

// Exchange tracks one inbound request from the first upstream byte to the
// terminal write. Every transition is a compare-and-swap, so concurrent
// completion paths agree on a single writer.
type Exchange struct {
	state atomic.Int32
}

// NewExchange returns an Exchange in the Buffering state.
func NewExchange() *Exchange {
	return &Exchange{}
}

// State returns the current state.
func (e *Exchange) State() State {
	return State(e.state.Load())
}

// Sent reports whether the terminal write has been claimed.
func (e *Exchange) Sent() bool {
	return e.State() == Sent
}

// advance moves from one non-terminal state to the next. It fails if the
// exchange is no longer in from, typically because it was sealed.
func (e *Exchange) advance(from, to State) bool {
	if to == Sent {
		return false
	}
	return e.state.CompareAndSwap(int32(from), int32(to))
}

// Seal claims the terminal write. It returns true for exactly one caller;
// everyone else must not touch the response.
func (e *Exchange) Seal() bool {
	for {
		cur := e.state.Load()
		if State(cur) == Sent {
			return false
		}
		if e.state.CompareAndSwap(cur, int32(Sent)) {
			return true
		}
	}
}
