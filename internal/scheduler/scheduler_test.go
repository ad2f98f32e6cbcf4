package scheduler

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"resonant/internal/future"
)

func TestScheduleAssignsMonotonicIDs(t *testing.T) {
	s := New()
	var ids []uint64
	for i := 0; i < 3; i++ {
		task, err := s.Schedule(Medium)
		if err != nil {
			t.Fatalf("Schedule() error: %v", err)
		}
		ids = append(ids, task.ID)
	}
	if !cmp.Equal(ids, []uint64{1, 2, 3}) {
		t.Errorf("-want/+got:\n%s", cmp.Diff([]uint64{1, 2, 3}, ids))
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d; want 3", s.Len())
	}
}

func TestExecuteNextPicksTopPriorityFirst(t *testing.T) {
	s := New()
	top, err := s.Schedule(Top)
	if err != nil {
		t.Fatal(err)
	}
	low, err := s.Schedule(Low)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.ExecuteNext()
	if err != nil {
		t.Fatalf("ExecuteNext() error: %v", err)
	}
	if got == nil || got.ID != top.ID {
		t.Fatalf("ExecuteNext() picked %v; want top task %d", got, top.ID)
	}
	if !got.Completed() {
		t.Error("dispatched task not marked completed")
	}

	got, err = s.ExecuteNext()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != low.ID {
		t.Fatalf("second ExecuteNext() picked %v; want low task %d", got, low.ID)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after draining = %d; want 0", s.Len())
	}
}

func TestExecuteNextTieBreaksByLowestID(t *testing.T) {
	s := New()
	first, err := s.Schedule(High)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Schedule(High); err != nil {
		t.Fatal(err)
	}

	got, err := s.ExecuteNext()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("tie broken toward %v; want earliest task %d", got, first.ID)
	}
}

func TestExecuteNextEmptyPool(t *testing.T) {
	s := New()
	got, err := s.ExecuteNext()
	if got != nil || err != nil {
		t.Errorf("ExecuteNext() on empty pool = %v, %v; want nil, nil", got, err)
	}
}

// destabilize loads the task's model so its refreshed stability lands at
// 1 - interference, with interference = amp^2 for an aligned equal-frequency
// pair.
func destabilize(t *testing.T, task *Task, interference float64) {
	t.Helper()
	amp := math.Sqrt(interference)
	if err := task.Signal.AddComponent(1.0, amp, 0); err != nil {
		t.Fatal(err)
	}
	if err := task.Signal.AddComponent(1.0, amp, 0); err != nil {
		t.Fatal(err)
	}
	// The stability factor is only refreshed by an explicit update.
	_ = task.Signal.UpdateResonance()
}

func TestAdmissionSkipsWithoutEvicting(t *testing.T) {
	s := New()
	shaky, err := s.Schedule(Top)
	if err != nil {
		t.Fatal(err)
	}
	steady, err := s.Schedule(Low)
	if err != nil {
		t.Fatal(err)
	}

	// Stability 0.9: below the 0.95 admission threshold, still healthy.
	destabilize(t, shaky, 0.1)

	got, err := s.ExecuteNext()
	if err != nil {
		t.Fatalf("ExecuteNext() error: %v", err)
	}
	if got == nil || got.ID != steady.ID {
		t.Fatalf("ExecuteNext() picked %v; want steady task %d", got, steady.ID)
	}

	// The skipped task stays pooled and can become eligible later.
	if _, ok := s.Get(shaky.ID); !ok {
		t.Error("inadmissible task was removed from the pool")
	}

	got, err = s.ExecuteNext()
	if got != nil || err != nil {
		t.Errorf("ExecuteNext() with only inadmissible tasks = %v, %v; want nil, nil", got, err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1", s.Len())
	}
}

func TestPoolDestabilizationBlocksAdmission(t *testing.T) {
	s := New()
	s.SetStabilityThreshold(0.3)

	for i := 0; i < 2; i++ {
		task, err := s.Schedule(Top)
		if err != nil {
			t.Fatal(err)
		}
		// Stability 0.4 passes the lowered per-task threshold but drags
		// the pool mean below the destabilization floor.
		destabilize(t, task, 0.6)
	}

	got, err := s.ExecuteNext()
	if got != nil || err != nil {
		t.Errorf("ExecuteNext() on destabilized pool = %v, %v; want nil, nil", got, err)
	}
	if s.Len() != 2 {
		t.Errorf("tasks evicted from destabilized pool; Len() = %d", s.Len())
	}
}

func TestHarmonyDisruptionEvictsTask(t *testing.T) {
	s := New()
	task, err := s.Schedule(Top)
	if err != nil {
		t.Fatal(err)
	}

	// Heavy aligned components overload interference, but the stored
	// stability factor is stale at 1.0, so the task passes admission and
	// fails during preparation.
	if err := task.Signal.AddComponent(1.0, 3.0, 0); err != nil {
		t.Fatal(err)
	}
	if err := task.Signal.AddComponent(1.0, 3.0, 0); err != nil {
		t.Fatal(err)
	}

	got, err := s.ExecuteNext()
	if !errors.Is(err, ErrHarmonyDisrupted) {
		t.Fatalf("ExecuteNext() = %v; want ErrHarmonyDisrupted", err)
	}
	if got == nil || got.ID != task.ID {
		t.Errorf("evicted task = %v; want %d", got, task.ID)
	}
	if _, ok := s.Get(task.ID); ok {
		t.Error("disrupted task still pooled")
	}

	// The failure is fatal to the task, never to the scheduler.
	next, err := s.Schedule(Medium)
	if err != nil {
		t.Fatalf("Schedule() after disruption: %v", err)
	}
	got, err = s.ExecuteNext()
	if err != nil || got == nil || got.ID != next.ID {
		t.Errorf("ExecuteNext() after disruption = %v, %v; want task %d", got, err, next.ID)
	}
}

func TestPoolOverflow(t *testing.T) {
	s := New()
	s.SetMaxPoolSize(2)

	for i := 0; i < 2; i++ {
		if _, err := s.Schedule(Low); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Schedule(Low); !errors.Is(err, ErrPoolOverflow) {
		t.Errorf("Schedule() beyond capacity = %v; want ErrPoolOverflow", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d; want 2", s.Len())
	}
}

func TestDispatchResolvesFuture(t *testing.T) {
	s := New()
	task, err := s.Schedule(High)
	if err != nil {
		t.Fatal(err)
	}

	ran := false
	taskID := task.ID
	task.Future = future.New[Result](future.WorkFunc[Result](func() (Result, error) {
		ran = true
		return Result{TaskID: taskID}, nil
	}))

	chained := future.New[Result](future.WorkFunc[Result](func() (Result, error) {
		return Result{TaskID: taskID}, nil
	}))
	if err := task.Future.Then(chained); err != nil {
		t.Fatal(err)
	}

	got, err := s.ExecuteNext()
	if err != nil {
		t.Fatalf("ExecuteNext() error: %v", err)
	}
	if got == nil || !ran {
		t.Fatal("future payload did not run")
	}
	if task.Future.State() != future.Completed {
		t.Errorf("future state = %v; want Completed", task.Future.State())
	}
	if chained.State() != future.Completed {
		t.Errorf("chained future state = %v; want Completed", chained.State())
	}

	result, err := task.Future.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if result.TaskID != taskID {
		t.Errorf("Result().TaskID = %d; want %d", result.TaskID, taskID)
	}
}

func TestDispatchRecordsRunError(t *testing.T) {
	s := New()
	task, err := s.Schedule(Medium)
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("payload boom")
	task.Run = func() error { return boom }

	got, err := s.ExecuteNext()
	if err != nil {
		t.Fatalf("ExecuteNext() error: %v", err)
	}
	if got == nil || !errors.Is(got.Err(), boom) {
		t.Errorf("task Err() = %v; want payload boom", got.Err())
	}
	if !got.Completed() {
		t.Error("failed task not marked completed")
	}
}

func TestEvict(t *testing.T) {
	s := New()
	task, err := s.Schedule(Low)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Evict(task.ID) {
		t.Error("Evict() = false for pooled task")
	}
	if s.Evict(task.ID) {
		t.Error("Evict() = true for removed task")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d; want 0", s.Len())
	}
}

func TestSnapshot(t *testing.T) {
	s := New()
	if _, err := s.Schedule(Top); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Schedule(Low); err != nil {
		t.Fatal(err)
	}

	want := []TaskInfo{
		{ID: 1, Priority: "top", Stability: 1.0, Fitness: 1.0, Components: 0},
		{ID: 2, Priority: "low", Stability: 1.0, Fitness: 0.4, Components: 0},
	}
	if got := s.Snapshot(); !cmp.Equal(got, want) {
		t.Errorf("-want/+got:\n%s", cmp.Diff(want, got))
	}
}

func TestPriorityWeights(t *testing.T) {
	tests := []struct {
		priority Priority
		want     float64
	}{
		{Top, 1.0},
		{High, 0.8},
		{Medium, 0.6},
		{Low, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.priority.String(), func(t *testing.T) {
			if got := tt.priority.Weight(); got != tt.want {
				t.Errorf("Weight() = %v; want %v", got, tt.want)
			}
		})
	}
}
