package scheduler

import (
	"sync/atomic"

	"resonant/internal/future"
	"resonant/internal/signal"
)

// Priority orders tasks for dispatch. Lower values rank higher.
type Priority int

const (
	Top Priority = iota
	High
	Medium
	Low
)

// Weight converts a priority into its fitness multiplier.
func (p Priority) Weight() float64 {
	switch p {
	case Top:
		return 1.0
	case High:
		return 0.8
	case Medium:
		return 0.6
	default:
		return 0.4
	}
}

func (p Priority) String() string {
	switch p {
	case Top:
		return "top"
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority maps a priority name to its Priority, defaulting to Low on
// unknown input.
func ParsePriority(s string) Priority {
	switch s {
	case "top":
		return Top
	case "high":
		return High
	case "medium":
		return Medium
	default:
		return Low
	}
}

// Result is the payload a task's future resolves with.
type Result struct {
	TaskID  uint64  `json:"task_id"`
	Fitness float64 `json:"fitness"`
}

// Task is a schedulable unit of work. The scheduler owns the task, and
// transitively its signal model, from creation until completion or eviction.
type Task struct {
	ID       uint64
	Priority Priority
	Signal   *signal.Model

	// Future optionally tracks completion and carries chained work.
	Future *future.Future[Result]

	// Run is the raw payload used when no Future is attached.
	Run func() error

	// Fitness is the score the task was selected with; zero until dispatch.
	Fitness float64

	completed atomic.Bool
	runErr    error
}

// Completed reports whether the task has been dispatched and run.
func (t *Task) Completed() bool {
	return t.completed.Load()
}

// Err returns the error the payload produced, if any.
func (t *Task) Err() error {
	return t.runErr
}
