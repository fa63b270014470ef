// Package watcher drives incremental regeneration from file system events.
package watcher

import (
	"sync"
	"time"
)

// State is the scheduling state of a Debouncer.
type State int

const (
	// Idle means nothing is scheduled or running.
	Idle State = iota
	// Scheduled means a timer is armed and will fire after the delay.
	Scheduled
	// Running means the callback is executing.
	Running
	// RunningWithPending means the callback is executing and one more
	// execution is queued behind it.
	RunningWithPending
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case RunningWithPending:
		return "running-with-pending"
	default:
		return "unknown"
	}
}

// Debouncer coalesces bursts of Schedule calls into single executions of fn.
// At most one execution is in flight and at most one trailing execution,
// carrying the latest arguments, is queued behind it.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	state   State
	timer   *time.Timer
	gen     uint64
	args    T
	pending T
	stopped bool
	running sync.WaitGroup
}

// NewDebouncer creates a Debouncer that calls fn delay after the last
// Schedule call.
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Schedule requests an execution with args.
func (d *Debouncer[T]) Schedule(args T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch d.state {
	case Idle, Scheduled:
		if d.timer != nil {
			d.timer.Stop()
		}
		d.gen++
		gen := d.gen
		d.args = args
		d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
		d.state = Scheduled
	case Running, RunningWithPending:
		d.pending = args
		d.state = RunningWithPending
	}
}

// State returns the current state.
func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Stop cancels an armed timer and drops any pending execution. An execution
// already in flight runs to completion; use Wait to block until it has.
// Later Schedule calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = zero
	switch d.state {
	case Scheduled:
		d.state = Idle
	case RunningWithPending:
		d.state = Running
	}
}

// Wait blocks until no execution is in flight. Call it after Stop so no new
// execution can start while waiting.
func (d *Debouncer[T]) Wait() {
	d.running.Wait()
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that was re-armed or stopped after it fired is stale.
	if gen != d.gen || d.state != Scheduled {
		d.mu.Unlock()
		return
	}
	args := d.args
	var zero T
	d.args = zero
	d.timer = nil
	d.state = Running
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()

	for {
		d.fn(args)

		d.mu.Lock()
		if d.state != RunningWithPending {
			d.state = Idle
			d.mu.Unlock()
			return
		}
		args = d.pending
		d.pending = zero
		d.state = Running
		d.mu.Unlock()
	}
}
