// Package rtselect implements the runtime dispatch behind a Pluto `select`
// statement/expression (SPEC_FULL §4.J): polling a set of channel arms and
// running whichever one becomes ready, rotating the starting point each
// call so no arm starves when several are ready simultaneously.
//
// Grounded on
// _examples/nmxmxh-inos_v1/kernel/threads/supervisor/coordinator.go's
// PeerSelector.Select (StrategyRoundRobin case: `lastSelected = (lastSelected
// + 1) % len(peers)`), applied here to select-arm indices instead of peer
// indices.
package rtselect

import (
	"context"

	"github.com/mkerian10/pluto/internal/runtime/rtchan"
)

// Op distinguishes a receive arm from a send arm, mirroring
// ast.SelectOp (SelectRecv/SelectSend).
type Op int

const (
	OpRecv Op = iota
	OpSend
)

// Arm is one compiled select arm: either a receive (SendValue nil) or a
// send (SendValue set). Handler runs once this arm is chosen.
type Arm struct {
	Op        Op
	Chan      *rtchan.Chan
	SendValue any
	Handler   func(recvVal any, ok bool) error
}

// Selector rotates a starting offset across repeated Select calls on the
// same set of arms — constructed once per `select` statement, reused
// across loop iterations if the statement is inside a `while`.
type Selector struct {
	lastSelected int
}

// Select polls arms in rotated order and runs the first ready one's
// Handler. If none are ready and hasDefault is true, defaultFn runs
// instead. If none are ready and there is no default, it blocks until ctx
// is done or one becomes ready (polled, since rtchan.Chan does not expose
// a raw <-chan for a true fan-in select).
func (s *Selector) Select(ctx context.Context, arms []Arm, hasDefault bool, defaultFn func() error) error {
	if len(arms) == 0 {
		if hasDefault {
			return defaultFn()
		}
		return ctx.Err()
	}

	for {
		s.lastSelected = (s.lastSelected + 1) % len(arms)
		for i := 0; i < len(arms); i++ {
			idx := (s.lastSelected + i) % len(arms)
			arm := arms[idx]
			ready, val, ok, err := tryArm(ctx, arm)
			if err != nil {
				return err
			}
			if ready {
				s.lastSelected = idx
				return arm.Handler(val, ok)
			}
		}
		if hasDefault {
			return defaultFn()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func tryArm(ctx context.Context, arm Arm) (ready bool, val any, ok bool, err error) {
	switch arm.Op {
	case OpRecv:
		pollCtx, cancel := context.WithCancel(ctx)
		cancel() // non-blocking: a cancelled context makes Recv return immediately if nothing is ready
		v, recvOK, recvErr := arm.Chan.Recv(pollCtx)
		if recvErr == context.Canceled {
			return false, nil, false, nil
		}
		return true, v, recvOK, recvErr
	case OpSend:
		if arm.Chan.Congested() {
			return false, nil, false, nil
		}
		pollCtx, cancel := context.WithCancel(ctx)
		cancel()
		sendErr := arm.Chan.Send(pollCtx, arm.SendValue)
		if sendErr == context.Canceled {
			return false, nil, false, nil
		}
		return true, nil, false, sendErr
	default:
		return false, nil, false, nil
	}
}
