// Package rttask implements the runtime representation of a Pluto `spawn`
// expression (SPEC_FULL §4.J): one goroutine per spawned unit, its result
// delivered through a future-like handle.
//
// Grounded on
// _examples/nmxmxh-inos_v1/kernel/threads/supervisor/coordinator.go's
// Coordinator, which dispatches one unit of work per registered peer and
// tracks per-unit latency/success stats. Adapted from a peer-routing model
// (select a peer, then dispatch) down to direct goroutine-per-spawn
// dispatch, since a Pluto `spawn` has no routing decision to make — it
// always runs the given closure on its own goroutine.
package rttask

import (
	"context"
	"sync"
	"time"
)

// Task is the handle a `spawn` expression evaluates to (ast.TaskOf(T)).
type Task struct {
	done   chan struct{}
	once   sync.Once
	result any
	err    error

	startedAt time.Time
	took      time.Duration
}

// Spawn runs fn on its own goroutine and returns immediately with a Task
// handle, mirroring Coordinator.RouteMessage's async dispatch but without a
// peer-selection step.
func Spawn(ctx context.Context, fn func(context.Context) (any, error)) *Task {
	t := &Task{done: make(chan struct{}), startedAt: time.Now()}
	go func() {
		defer close(t.done)
		result, err := fn(ctx)
		t.result, t.err = result, err
		t.took = time.Since(t.startedAt)
	}()
	return t
}

// Await blocks until the task completes or ctx is cancelled.
func (t *Task) Await(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the task has completed, for a non-blocking poll.
func (t *Task) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Elapsed returns how long the task ran, valid only once Done reports true
// — mirrors the latency figure Coordinator.updatePeerStats tracks per
// dispatch.
func (t *Task) Elapsed() time.Duration { return t.took }
