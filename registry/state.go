package registry

// State is the lifecycle state of a bus.
// Transitions only move forward: [StateActive] to [StateDraining] to [StateDestroyed].
type State int32

const (
	StateActive    State = iota // StateActive accepts registrations and events.
	StateDraining               // StateDraining rejects new work while in-flight handlers finish.
	StateDestroyed              // StateDestroyed has released its handlers and rejects everything.
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
