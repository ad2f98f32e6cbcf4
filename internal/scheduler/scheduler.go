package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"

	"resonant/internal/signal"
)

var (
	ErrTaskCreation     = errors.New("scheduler: task creation failed")
	ErrPoolOverflow     = errors.New("scheduler: task pool is full")
	ErrHarmonyDisrupted = errors.New("scheduler: task failed harmony validation")
)

const (
	// DefaultStabilityThreshold gates admission of individual tasks.
	DefaultStabilityThreshold = 0.95

	// DefaultMaxPoolSize bounds the number of pooled tasks.
	DefaultMaxPoolSize = 1024

	// poolStabilityFloor is the aggregate stability below which the whole
	// pool counts as destabilized and nothing is admitted.
	poolStabilityFloor = 0.5
)

// TaskInfo is a read-only view of a pooled task.
type TaskInfo struct {
	ID         uint64  `json:"id"`
	Priority   string  `json:"priority"`
	Stability  float64 `json:"stability"`
	Fitness    float64 `json:"fitness"`
	Components int     `json:"components"`
}

// Scheduler owns a pool of tasks and repeatedly dispatches the fittest
// admissible one. It is single-threaded and cooperative: the embedder drives
// it by calling ExecuteNext from its own loop.
type Scheduler struct {
	stabilityThreshold float64
	maxPoolSize        int

	pool   []*Task
	index  map[uint64]*Task
	nextID atomic.Uint64

	poolStability float64
	stale         bool
}

func New() *Scheduler {
	return &Scheduler{
		stabilityThreshold: DefaultStabilityThreshold,
		maxPoolSize:        DefaultMaxPoolSize,
		index:              make(map[uint64]*Task),
		poolStability:      1.0,
	}
}

func (s *Scheduler) SetStabilityThreshold(threshold float64) {
	s.stabilityThreshold = threshold
}

func (s *Scheduler) SetMaxPoolSize(n int) {
	s.maxPoolSize = n
}

// Len reports the number of pooled tasks.
func (s *Scheduler) Len() int {
	return len(s.pool)
}

// Get looks up a pooled task by id.
func (s *Scheduler) Get(id uint64) (*Task, bool) {
	t, ok := s.index[id]
	return t, ok
}

// Schedule allocates a task with a fresh default signal model and integrates
// it into the pool. On integration failure the task is rolled back and the
// triggering error propagated.
func (s *Scheduler) Schedule(priority Priority) (*Task, error) {
	if len(s.pool) >= s.maxPoolSize {
		return nil, fmt.Errorf("%w: %d tasks pooled", ErrPoolOverflow, len(s.pool))
	}

	t := &Task{
		ID:       s.nextID.Add(1),
		Priority: priority,
		Signal:   signal.NewModel(),
	}
	s.pool = append(s.pool, t)
	s.index[t.ID] = t
	s.stale = true

	if err := t.Signal.UpdateResonance(); err != nil {
		s.remove(t.ID)
		return nil, fmt.Errorf("%w: %v", ErrTaskCreation, err)
	}
	return t, nil
}

// PoolStability is the mean stability factor across all pooled tasks,
// recomputed lazily. An empty pool is maximally stable.
func (s *Scheduler) PoolStability() float64 {
	if s.stale {
		if len(s.pool) == 0 {
			s.poolStability = 1.0
		} else {
			var sum float64
			for _, t := range s.pool {
				sum += t.Signal.StabilityFactor()
			}
			s.poolStability = sum / float64(len(s.pool))
		}
		s.stale = false
	}
	return s.poolStability
}

func (s *Scheduler) fitness(t *Task) float64 {
	return t.Signal.StabilityFactor() * t.Priority.Weight() * s.PoolStability()
}

// ExecuteNext scores every pooled task, selects the admissible one with the
// strictly highest fitness (ties break by lowest id) and runs it to
// completion. It returns (nil, nil) when no task is admissible. When the
// selected task fails harmony validation during preparation it is evicted and
// returned alongside ErrHarmonyDisrupted; the scheduler itself stays usable.
func (s *Scheduler) ExecuteNext() (*Task, error) {
	// Signal models may have been mutated since the last cycle.
	s.stale = true
	if s.PoolStability() < poolStabilityFloor {
		return nil, nil
	}

	var best *Task
	var bestFitness float64
	for _, t := range s.pool {
		if t.Signal.StabilityFactor() < s.stabilityThreshold {
			// Inadmissible now; it may become eligible on a later cycle.
			continue
		}
		f := s.fitness(t)
		if best == nil || f > bestFitness {
			best, bestFitness = t, f
		}
	}
	if best == nil {
		return nil, nil
	}

	if err := best.Signal.Optimize(); err != nil {
		s.remove(best.ID)
		return best, fmt.Errorf("%w: task %d: %v", ErrHarmonyDisrupted, best.ID, err)
	}

	best.Fitness = bestFitness
	s.dispatch(best)
	return best, nil
}

// dispatch runs the task's payload synchronously, marks it completed and
// removes it from the pool.
func (s *Scheduler) dispatch(t *Task) {
	if t.Future != nil {
		t.runErr = t.Future.Execute()
	} else if t.Run != nil {
		t.runErr = t.Run()
	}
	t.completed.Store(true)
	s.remove(t.ID)
}

// Evict drops a task from the pool without running it and reports whether it
// was present.
func (s *Scheduler) Evict(id uint64) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	s.remove(id)
	return true
}

func (s *Scheduler) remove(id uint64) {
	delete(s.index, id)
	for i, t := range s.pool {
		if t.ID == id {
			s.pool = append(s.pool[:i], s.pool[i+1:]...)
			break
		}
	}
	s.stale = true
}

// Snapshot lists the pooled tasks with their current scores, without
// disturbing the pool.
func (s *Scheduler) Snapshot() []TaskInfo {
	out := make([]TaskInfo, 0, len(s.pool))
	for _, t := range s.pool {
		out = append(out, TaskInfo{
			ID:         t.ID,
			Priority:   t.Priority.String(),
			Stability:  t.Signal.StabilityFactor(),
			Fitness:    s.fitness(t),
			Components: t.Signal.Len(),
		})
	}
	return out
}
