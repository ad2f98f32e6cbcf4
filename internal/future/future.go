package future

import (
	"errors"
	"time"
)

var (
	ErrAlreadyCompleted = errors.New("future: already completed")
	ErrAlreadyRunning   = errors.New("future: already running")
	ErrNotCompleted     = errors.New("future: not completed")
	ErrCancelled        = errors.New("future: cancelled")
	ErrTimeout          = errors.New("future: timed out")
)

// State is the lifecycle stage of a Future. Transitions are one-directional:
// Pending -> Running -> Completed | Failed | Cancelled.
type State int

const (
	Pending State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Work is the unit of work a Future tracks. Cancel is the type-specific
// cancellation hook; it is invoked at most once, and never after Run has
// completed successfully.
type Work[T any] interface {
	Run() (T, error)
	Cancel()
}

// WorkFunc adapts a plain function to Work with a no-op cancellation hook.
type WorkFunc[T any] func() (T, error)

func (f WorkFunc[T]) Run() (T, error) { return f() }

func (WorkFunc[T]) Cancel() {}

// Future tracks the completion of a unit of work. A Future owns its children
// and executes them, in insertion order, after it completes; the parent link
// is a non-owning back-reference and cancellation never bubbles upward.
type Future[T any] struct {
	state    State
	result   T
	err      error
	work     Work[T]
	children []*Future[T]
	parent   *Future[T]
	timeout  time.Duration

	// Now is the clock used for timeout accounting. Tests may replace it.
	Now func() time.Time
}

func New[T any](work Work[T]) *Future[T] {
	return &Future[T]{work: work, Now: time.Now}
}

func (f *Future[T]) State() State {
	return f.state
}

func (f *Future[T]) Parent() *Future[T] {
	return f.parent
}

func (f *Future[T]) Children() int {
	return len(f.children)
}

// SetTimeout is advisory: it is enforced when Execute returns, not
// asynchronously.
func (f *Future[T]) SetTimeout(d time.Duration) {
	f.timeout = d
}

// Execute runs the work synchronously to completion, timeout failure or
// error, then executes every child in insertion order. Child failures are
// recorded in the child's own state and do not affect the parent.
func (f *Future[T]) Execute() error {
	switch f.state {
	case Completed:
		return ErrAlreadyCompleted
	case Running:
		return ErrAlreadyRunning
	case Cancelled, Failed:
		return f.err
	}

	f.state = Running
	start := f.Now()

	var result T
	var err error
	if f.work != nil {
		result, err = f.work.Run()
	}

	if f.timeout > 0 && f.Now().Sub(start) > f.timeout {
		// Too slow: whatever the work produced is discarded.
		f.state = Failed
		f.err = ErrTimeout
		return ErrTimeout
	}
	if err != nil {
		f.state = Failed
		f.err = err
		return err
	}

	f.result = result
	f.state = Completed
	for _, child := range f.children {
		_ = child.Execute()
	}
	return nil
}

// Cancel is idempotent. It is a no-op on a terminal state; otherwise it
// invokes the work's cancellation hook, marks the future cancelled and
// cascades to every child.
func (f *Future[T]) Cancel() {
	if f.state.Terminal() {
		return
	}
	if f.work != nil {
		f.work.Cancel()
	}
	f.state = Cancelled
	f.err = ErrCancelled
	for _, child := range f.children {
		child.Cancel()
	}
}

// Then appends next as a child, to be executed after this future completes.
func (f *Future[T]) Then(next *Future[T]) error {
	if f.state == Cancelled {
		return ErrCancelled
	}
	next.parent = f
	f.children = append(f.children, next)
	return nil
}

// Result returns the completed value, the stored error for a failed or
// cancelled future, or ErrNotCompleted while work is still outstanding.
func (f *Future[T]) Result() (T, error) {
	var zero T
	switch f.state {
	case Completed:
		return f.result, nil
	case Failed, Cancelled:
		return zero, f.err
	default:
		return zero, ErrNotCompleted
	}
}
