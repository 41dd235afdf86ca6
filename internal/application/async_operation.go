package application

import (
	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

// Completion is what a remote call delivered. Err is non-nil when the
// platform reported a failed result or an I/O failure.
type Completion[R any] struct {
	Value R
	Err   error
}

// AsyncOperation is one outstanding remote call. It is completed at most
// once by the pump-delivered dispatch and read by exactly one waiter.
type AsyncOperation[R any] struct {
	call      ports.APICall
	delivered chan Completion[R]
	result    Completion[R]
	done      bool
	onAbandon func()
}

func newAsyncOperation[R any](call ports.APICall) *AsyncOperation[R] {
	return &AsyncOperation[R]{
		call:      call,
		delivered: make(chan Completion[R], 1),
	}
}

func (op *AsyncOperation[R]) Call() ports.APICall {
	return op.call
}

// complete stores the result; a second completion is dropped.
func (op *AsyncOperation[R]) complete(result Completion[R]) bool {
	select {
	case op.delivered <- result:
		return true
	default:
		return false
	}
}

// Poll reports the completion if one has been delivered.
func (op *AsyncOperation[R]) Poll() (Completion[R], bool) {
	if op.done {
		return op.result, true
	}

	select {
	case result := <-op.delivered:
		op.result = result
		op.done = true
		return result, true
	default:
		return Completion[R]{}, false
	}
}

func (op *AsyncOperation[R]) outcome() (domain.StageOutcome, bool) {
	result, ok := op.Poll()
	if !ok {
		return domain.StageOutcome{}, false
	}
	if result.Err != nil {
		return domain.StageOutcome{Kind: domain.OutcomeRemoteFailure, Err: result.Err}, true
	}
	return domain.StageOutcome{Kind: domain.OutcomeSuccess}, true
}

func (op *AsyncOperation[R]) abandon() {
	if op.onAbandon != nil {
		op.onAbandon()
		op.onAbandon = nil
	}
}

// awaitable is the type-erased view the waiter and sequencer need.
type awaitable interface {
	outcome() (domain.StageOutcome, bool)
	abandon()
}
