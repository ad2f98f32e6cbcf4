package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-collections/collections/queue"
	"github.com/google/uuid"

	"resonant/internal/future"
	"resonant/internal/scheduler"
	"resonant/internal/signal"
	"resonant/internal/stats"
	"resonant/internal/store"
	"resonant/internal/timer"
)

// Submission is a unit of work waiting to enter the scheduler pool.
type Submission struct {
	Priority   scheduler.Priority
	Components []signal.Component
	Work       func() error
	Timeout    time.Duration
}

// Runner is the embedding event loop around the cooperative core: it drains
// a submission queue into the scheduler, drives the timer and the scheduler
// on every step, records task events and refreshes host stats. The core
// components never block, sleep or lock; serialization against concurrent
// inspection lives here, in mu.
type Runner struct {
	Name      string
	Queue     queue.Queue
	Scheduler *scheduler.Scheduler
	Timer     *timer.Timer
	EventDb   store.Store
	Stats     *stats.Stats

	// MaxLoad holds dispatch while the one-minute load average is above
	// it; zero disables the gate.
	MaxLoad float64

	// mu serializes loop steps against the inspection snapshots; subMu
	// guards only the queue, so timer callbacks running under mu may
	// still Submit.
	mu    sync.Mutex
	subMu sync.Mutex

	lastState map[uint64]store.State
	logger    *slog.Logger
}

// New builds a runner with the given event store backing: "memory" or
// "persistent" (bbolt file named after the runner).
func New(name string, dbType string) (*Runner, error) {
	r := &Runner{
		Name:      name,
		Queue:     *queue.New(),
		Scheduler: scheduler.New(),
		Timer:     timer.New(),
		lastState: make(map[uint64]store.State),
		logger:    slog.Default().With("runner", name),
	}

	switch dbType {
	case "persistent":
		es, err := store.NewEventStore(name+"_events.db", 0600, "events")
		if err != nil {
			return nil, err
		}
		r.EventDb = es
	default:
		r.EventDb = store.NewInMemoryEventStore()
	}
	return r, nil
}

// Submit queues work for scheduling on a later step. It is safe to call from
// any goroutine, including timer callbacks.
func (r *Runner) Submit(sub Submission) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.Queue.Enqueue(sub)
}

func (r *Runner) drainSubmissions() []Submission {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	subs := make([]Submission, 0, r.Queue.Len())
	for r.Queue.Len() > 0 {
		item := r.Queue.Dequeue()
		sub, ok := item.(Submission)
		if !ok {
			r.logger.Error("unexpected item on submission queue", "item", item)
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}

// ProcessSubmissions drains the queue into the scheduler pool.
func (r *Runner) ProcessSubmissions() {
	subs := r.drainSubmissions()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range subs {
		if err := r.processSubmission(sub); err != nil {
			r.logger.Error("submission rejected", "error", err)
		}
	}
}

func (r *Runner) processSubmission(sub Submission) error {
	t, err := r.Scheduler.Schedule(sub.Priority)
	if err != nil {
		return err
	}

	for _, c := range sub.Components {
		if err := t.Signal.AddComponent(c.Frequency, c.Amplitude, c.Phase); err != nil {
			r.Scheduler.Evict(t.ID)
			return err
		}
	}
	if err := t.Signal.UpdateResonance(); err != nil {
		r.Scheduler.Evict(t.ID)
		return err
	}

	if sub.Work != nil {
		taskID := t.ID
		work := sub.Work
		f := future.New[scheduler.Result](future.WorkFunc[scheduler.Result](func() (scheduler.Result, error) {
			if err := work(); err != nil {
				return scheduler.Result{}, err
			}
			return scheduler.Result{TaskID: taskID}, nil
		}))
		if sub.Timeout > 0 {
			f.SetTimeout(sub.Timeout)
		}
		t.Future = f
	}

	r.recordEvent(t.ID, store.Scheduled, 0)
	r.logger.Info("task scheduled", "task", t.ID, "priority", sub.Priority.String())
	return nil
}

// Step advances the loop once: timer callbacks fire, then at most one task
// is dispatched, host load permitting.
func (r *Runner) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Timer.Update()

	if r.Stats != nil && !r.Stats.Headroom(r.MaxLoad) {
		r.logger.Warn("host under pressure, holding dispatch")
		return
	}

	t, err := r.Scheduler.ExecuteNext()
	if err != nil {
		r.logger.Error("task dispatch failed", "error", err)
		if t != nil {
			r.recordEvent(t.ID, store.Evicted, 0)
		}
		return
	}
	if t == nil {
		return
	}

	r.recordEvent(t.ID, store.Dispatched, t.Fitness)
	if runErr := t.Err(); runErr != nil {
		r.logger.Error("task payload failed", "task", t.ID, "error", runErr)
		r.recordEvent(t.ID, store.Evicted, t.Fitness)
		return
	}
	r.recordEvent(t.ID, store.Completed, t.Fitness)
	r.logger.Info("task completed", "task", t.ID, "fitness", t.Fitness)
}

// Run drives Step on a fixed tick until the context is cancelled.
func (r *Runner) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ProcessSubmissions()
			r.Step()
		}
	}
}

// CollectStats samples the host on a fixed interval until the context is
// cancelled.
func (r *Runner) CollectStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshStats()
		}
	}
}

// RefreshStats samples the host once. The /proc reads stay outside the lock.
func (r *Runner) RefreshStats() {
	s := stats.GetStats()

	r.mu.Lock()
	defer r.mu.Unlock()
	s.TaskCount = r.Scheduler.Len()
	r.Stats = s
}

// GetEvents lists all recorded task events.
func (r *Runner) GetEvents() []*store.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.EventDb.List()
	if err != nil {
		r.logger.Error("error getting list of events", "error", err)
		return nil
	}
	return events
}

// TaskSnapshot lists the pooled tasks without racing the loop.
func (r *Runner) TaskSnapshot() []scheduler.TaskInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Scheduler.Snapshot()
}

// TimerSnapshot lists the registered timer events without racing the loop.
func (r *Runner) TimerSnapshot() []timer.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Timer.Snapshot()
}

// StatsSnapshot returns the last host sample, taking one first if none has
// been collected yet.
func (r *Runner) StatsSnapshot() *stats.Stats {
	r.mu.Lock()
	s := r.Stats
	r.mu.Unlock()

	if s == nil {
		r.RefreshStats()
		r.mu.Lock()
		s = r.Stats
		r.mu.Unlock()
	}
	return s
}

func (r *Runner) recordEvent(taskID uint64, state store.State, fitness float64) {
	if last, seen := r.lastState[taskID]; seen && !store.ValidTransition(last, state) {
		r.logger.Error("invalid event transition", "task", taskID, "from", last.String(), "to", state.String())
		return
	}
	// Terminal states end the bookkeeping; task ids are never reused.
	if state == store.Completed || state == store.Evicted {
		delete(r.lastState, taskID)
	} else {
		r.lastState[taskID] = state
	}

	e := &store.Event{
		ID:        uuid.New(),
		TaskID:    taskID,
		State:     state,
		Fitness:   fitness,
		Timestamp: time.Now().UTC(),
	}
	if err := r.EventDb.Put(e.ID.String(), e); err != nil {
		r.logger.Error("unable to store event", "event", e.ID.String(), "error", err)
	}
}
