// Package rtchan implements the runtime representation of a Pluto `chan<T>`
// (SPEC_FULL §4.J): a buffered Go channel, which itself blocks a sender
// once the buffer is at capacity, plus an atomic depth counter that raises
// a congestion flag above 80% full and clears it below 50%.
//
// Grounded on
// _examples/nmxmxh-inos_v1/kernel/threads/supervisor/flow_control.go's
// FlowController: queue-depth tracking with an 80%-full congestion
// threshold and a 50%-drained recovery threshold. Adapted from
// FlowController's cross-supervisor congestion signalling (many senders,
// one shared state keyed by peer epoch) down to one Chan's own credit
// state, since here the boundary is a single channel value rather than a
// supervisor mesh.
package rtchan

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrClosed = errors.New("rtchan: send on closed channel")

// Chan is one runtime channel value. Value is boxed as any since the
// runtime operates on already-monomorphised, already-laid-out object
// pointers (memheap offsets in the real codegen path); this package only
// models the blocking/credit semantics, not the physical payload encoding.
type Chan struct {
	buf      chan any
	capacity uint32
	depth    int32 // atomic, mirrors flow_control.go's queueDepth
	congested int32 // atomic 0/1, mirrors flow_control.go's isCongested
	closed   chan struct{}
}

// Make builds a channel of the given capacity (0 is synchronous/unbuffered,
// matching Pluto's `chan(T, 0)` form).
func Make(capacity uint32) *Chan {
	return &Chan{
		buf:      make(chan any, capacity),
		capacity: capacity,
		closed:   make(chan struct{}),
	}
}

// congestionThreshold/recoveryThreshold mirror flow_control.go's 80%/50%
// hysteresis band, applied here to one channel's own buffer instead of a
// supervisor's queue depth.
func (c *Chan) congestionThreshold() int32 {
	if c.capacity == 0 {
		return 0
	}
	return int32(c.capacity) * 8 / 10
}

func (c *Chan) recoveryThreshold() int32 {
	if c.capacity == 0 {
		return 0
	}
	return int32(c.capacity) / 2
}

// Send blocks until the channel accepts the value or ctx is done. Returns
// ErrClosed if the channel has been closed.
func (c *Chan) Send(ctx context.Context, v any) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.buf <- v:
		depth := atomic.AddInt32(&c.depth, 1)
		if depth > c.congestionThreshold() {
			atomic.StoreInt32(&c.congested, 1)
		}
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a value is available, the channel is closed with
// nothing left buffered, or ctx is done. ok is false only once the channel
// is closed and its buffer has been fully drained (mirrors a Go
// `v, ok := <-ch` close signal) without ever closing the underlying Go
// channel itself — Close only signals c.closed, so a racing Send never
// risks a send-on-closed-channel panic.
func (c *Chan) Recv(ctx context.Context) (v any, ok bool, err error) {
	for {
		select {
		case val := <-c.buf:
			depth := atomic.AddInt32(&c.depth, -1)
			if atomic.LoadInt32(&c.congested) != 0 && depth < c.recoveryThreshold() {
				atomic.StoreInt32(&c.congested, 0)
			}
			return val, true, nil
		default:
		}
		select {
		case val := <-c.buf:
			depth := atomic.AddInt32(&c.depth, -1)
			if atomic.LoadInt32(&c.congested) != 0 && depth < c.recoveryThreshold() {
				atomic.StoreInt32(&c.congested, 0)
			}
			return val, true, nil
		case <-c.closed:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Congested reports whether the channel is past its high-water mark —
// internal/runtime/rtselect's send arms consult this before a send attempt.
func (c *Chan) Congested() bool { return atomic.LoadInt32(&c.congested) != 0 }

// Close marks the channel closed. Per spec.md's sender-cleanup rule (§4.I),
// only the declared sender of a `let tx, rx = chan(...)` pair may call
// Close; neither this type nor codegen checks that, this type just
// implements the signal — it never closes the underlying Go channel, so a send racing a
// close cannot panic.
func (c *Chan) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}
