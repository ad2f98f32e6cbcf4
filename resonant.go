package resonant

import (
	f "resonant/internal/future"
	r "resonant/internal/runner"
	sc "resonant/internal/scheduler"
	sg "resonant/internal/signal"
	st "resonant/internal/stats"
	se "resonant/internal/store"
	tm "resonant/internal/timer"
)

// Aliases re-exporting the library surface, so embedders only import the
// root package.

type Scheduler = sc.Scheduler
type Task = sc.Task
type Priority = sc.Priority
type Result = sc.Result
type SignalModel = sg.Model
type SignalComponent = sg.Component
type Timer = tm.Timer
type Precision = tm.Precision
type Future[T any] = f.Future[T]
type Work[T any] = f.Work[T]
type WorkFunc[T any] = f.WorkFunc[T]
type Runner = r.Runner
type Submission = r.Submission
type Store = se.Store
type Event = se.Event
type Stats = st.Stats

const (
	Top    = sc.Top
	High   = sc.High
	Medium = sc.Medium
	Low    = sc.Low
)

// NewScheduler creates a scheduler with default thresholds
func NewScheduler() *Scheduler {
	return sc.New()
}

// NewTimer creates a timer with high precision
func NewTimer() *Timer {
	return tm.New()
}

// NewTimerWithPrecision creates a timer with the given precision
func NewTimerWithPrecision(p Precision) *Timer {
	return tm.NewWithPrecision(p)
}

// NewSignalModel creates an empty, maximally stable signal model
func NewSignalModel() *SignalModel {
	return sg.NewModel()
}

// NewFuture creates a pending future tracking the given work
func NewFuture[T any](work Work[T]) *Future[T] {
	return f.New[T](work)
}

// NewRunner creates a runner driving a fresh scheduler and timer
func NewRunner(name string, dbType string) (*Runner, error) {
	return r.New(name, dbType)
}
