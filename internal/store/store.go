package store

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage a task event records.
type State int

const (
	Scheduled State = iota
	Dispatched
	Completed
	Evicted
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Dispatched:
		return "dispatched"
	case Completed:
		return "completed"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

var stateTransitionMap = map[State][]State{
	Scheduled:  {Dispatched, Evicted},
	Dispatched: {Completed, Evicted},
	Completed:  {},
	Evicted:    {},
}

func contains(states []State, state State) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// ValidTransition reports whether a task may move from src to dst.
func ValidTransition(src State, dst State) bool {
	return contains(stateTransitionMap[src], dst)
}

// Event is one audit record of a task's lifecycle.
type Event struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uint64    `json:"task_id"`
	State     State     `json:"state"`
	Fitness   float64   `json:"fitness"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists task events keyed by event id.
type Store interface {
	Put(key string, e *Event) error
	Get(key string) (*Event, error)
	List() ([]*Event, error)
	Count() (int, error)
}
