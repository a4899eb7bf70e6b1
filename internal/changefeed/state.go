package changefeed

import "sync/atomic"

// State of one subscription.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	}
	return "unknown"
}

type stateVar struct {
	v atomic.Int32
}

func (s *stateVar) load() State { return State(s.v.Load()) }

// swap stores next and returns the previous state.
func (s *stateVar) swap(next State) State { return State(s.v.Swap(int32(next))) }
