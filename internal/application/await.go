package application

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

// waiter turns a callback-completed operation into a cooperative wait:
// pump, look for the completion, check the deadline, then wait one tick.
// Nothing else runs on the calling goroutine while it waits.
type waiter struct {
	clock   ports.Clock
	pump    func()
	cadence backoff.BackOff
}

func newWaiter(clock ports.Clock, pump func(), interval time.Duration) *waiter {
	return &waiter{
		clock:   clock,
		pump:    pump,
		cadence: backoff.NewConstantBackOff(interval),
	}
}

// await returns Success or RemoteFailure as soon as op completes, and
// Timeout once the clock is strictly past deadline. A timed-out or
// canceled operation is abandoned: a late completion is never observed.
func (w *waiter) await(ctx context.Context, op awaitable, deadline time.Time) domain.StageOutcome {
	w.cadence.Reset()

	for {
		w.pump()

		if outcome, done := op.outcome(); done {
			return outcome
		}
		if w.clock.Now().After(deadline) {
			op.abandon()
			return domain.StageOutcome{Kind: domain.OutcomeTimeout, Err: domain.ErrTimeout}
		}
		if err := ctx.Err(); err != nil {
			op.abandon()
			return domain.StageOutcome{Kind: domain.OutcomeCanceled, Err: err}
		}

		interval := w.cadence.NextBackOff()
		if interval == backoff.Stop {
			interval = domain.DefaultPollInterval
		}

		select {
		case <-ctx.Done():
		case <-w.clock.After(interval):
		}
	}
}
