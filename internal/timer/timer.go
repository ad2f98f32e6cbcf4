package timer

import (
	"errors"
	"sort"
	"time"
)

var ErrInvalidDuration = errors.New("timer: duration must be positive")

// Precision selects the granularity used when deadlines are compared and
// remaining time is reported. It does not affect the underlying clock.
type Precision int

const (
	High   Precision = iota // 1ns
	Medium                  // 1µs
	Low                     // 1ms
)

func (p Precision) String() string {
	switch p {
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return "high"
	}
}

// ParsePrecision maps a precision name to its Precision, defaulting to High
// on unknown input.
func ParsePrecision(s string) Precision {
	switch s {
	case "medium":
		return Medium
	case "low":
		return Low
	default:
		return High
	}
}

func (p Precision) granularity() uint64 {
	switch p {
	case Medium:
		return uint64(time.Microsecond)
	case Low:
		return uint64(time.Millisecond)
	default:
		return 1
	}
}

// EventState is the lifecycle stage of a timer event.
type EventState int

const (
	Idle EventState = iota
	Running
	Paused
	Expired
)

func (s EventState) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

type event struct {
	id        uint64
	deadline  uint64 // monotonic ns
	interval  uint64 // 0 for one-shot
	callback  func()
	state     EventState
	remaining uint64 // captured while paused
}

// Info is a read-only view of a registered event.
type Info struct {
	ID        uint64        `json:"id"`
	State     string        `json:"state"`
	Remaining time.Duration `json:"remaining_ns"`
	Recurring bool          `json:"recurring"`
}

// Timer maintains one-shot and recurring deadlines. It never sleeps or spawns
// goroutines: the embedder calls Update from its own loop, and callbacks run
// synchronously in the caller's thread of control.
type Timer struct {
	events    []*event
	nextID    uint64
	precision Precision

	// Clock reports monotonic nanoseconds. Tests may replace it.
	Clock func() uint64
}

func New() *Timer {
	start := time.Now()
	return &Timer{
		precision: High,
		Clock:     func() uint64 { return uint64(time.Since(start)) },
	}
}

func NewWithPrecision(p Precision) *Timer {
	t := New()
	t.precision = p
	return t
}

func (t *Timer) Precision() Precision {
	return t.precision
}

// SetTimeout registers a one-shot event due after d.
func (t *Timer) SetTimeout(d time.Duration, callback func()) (uint64, error) {
	return t.add(d, 0, callback)
}

// SetInterval registers a recurring event firing every d.
func (t *Timer) SetInterval(d time.Duration, callback func()) (uint64, error) {
	return t.add(d, uint64(d), callback)
}

func (t *Timer) add(d time.Duration, interval uint64, callback func()) (uint64, error) {
	if d <= 0 {
		return 0, ErrInvalidDuration
	}
	t.nextID++
	t.events = append(t.events, &event{
		id:       t.nextID,
		deadline: t.Clock() + uint64(d),
		interval: interval,
		callback: callback,
		state:    Idle,
	})
	return t.nextID, nil
}

// Clear removes the event if present and reports whether it was found.
func (t *Timer) Clear(id uint64) bool {
	for i, ev := range t.events {
		if ev.id == id {
			t.events = append(t.events[:i], t.events[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Timer) lookup(id uint64) *event {
	for _, ev := range t.events {
		if ev.id == id {
			return ev
		}
	}
	return nil
}

// Update fires every currently due event in ascending deadline order (ties by
// id). It iterates over a snapshot taken at entry, so callbacks may register
// or clear timers without skips or double fires; events registered during a
// callback are first considered on the next Update. A recurring event whose
// deadline lies several intervals in the past fires once per elapsed
// interval.
func (t *Timer) Update() {
	now := t.truncate(t.Clock())

	due := make([]*event, 0)
	for _, ev := range t.events {
		if ev.state != Paused && t.truncate(ev.deadline) <= now {
			due = append(due, ev)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].id < due[j].id
	})

	for _, ev := range due {
		// A previous callback may have cleared or paused this event.
		cur := t.lookup(ev.id)
		if cur == nil || cur.state == Paused {
			continue
		}
		t.fire(cur, now)
	}
}

func (t *Timer) fire(ev *event, now uint64) {
	for t.truncate(ev.deadline) <= now {
		ev.state = Running
		if ev.callback != nil {
			ev.callback()
		}
		if t.lookup(ev.id) == nil {
			// The callback cleared its own event.
			return
		}
		if ev.state == Paused {
			// The callback paused its own event.
			return
		}
		if ev.interval == 0 {
			ev.state = Expired
			t.Clear(ev.id)
			return
		}
		ev.deadline += ev.interval
		ev.state = Idle
	}
}

// Pause freezes the event, preserving its remaining time.
func (t *Timer) Pause(id uint64) bool {
	ev := t.lookup(id)
	if ev == nil || ev.state == Paused {
		return false
	}
	now := t.Clock()
	if ev.deadline > now {
		ev.remaining = ev.deadline - now
	} else {
		ev.remaining = 0
	}
	ev.state = Paused
	return true
}

// Resume reschedules a paused event with the time it had left when paused.
func (t *Timer) Resume(id uint64) bool {
	ev := t.lookup(id)
	if ev == nil || ev.state != Paused {
		return false
	}
	ev.deadline = t.Clock() + ev.remaining
	ev.state = Idle
	return true
}

// Remaining reports the truncated time until the event is next due, and
// whether the event exists. An overdue event reports zero.
func (t *Timer) Remaining(id uint64) (time.Duration, bool) {
	ev := t.lookup(id)
	if ev == nil {
		return 0, false
	}
	if ev.state == Paused {
		return time.Duration(t.truncate(ev.remaining)), true
	}
	now := t.truncate(t.Clock())
	deadline := t.truncate(ev.deadline)
	if deadline <= now {
		return 0, true
	}
	return time.Duration(deadline - now), true
}

// State reports the event's lifecycle stage and whether the event exists.
func (t *Timer) State(id uint64) (EventState, bool) {
	ev := t.lookup(id)
	if ev == nil {
		return Expired, false
	}
	return ev.state, true
}

func (t *Timer) ActiveCount() int {
	return len(t.events)
}

// Snapshot lists all registered events for inspection.
func (t *Timer) Snapshot() []Info {
	out := make([]Info, 0, len(t.events))
	for _, ev := range t.events {
		remaining, _ := t.Remaining(ev.id)
		out = append(out, Info{
			ID:        ev.id,
			State:     ev.state.String(),
			Remaining: remaining,
			Recurring: ev.interval != 0,
		})
	}
	return out
}

func (t *Timer) truncate(ns uint64) uint64 {
	g := t.precision.granularity()
	if g == 1 {
		return ns
	}
	return ns - ns%g
}
