package domain

import (
	"fmt"
	"time"
)

// Stage names one step of the unlock pipeline. The value doubles as the
// prefix of the machine-readable failure reason.
type Stage string

const (
	StageInit           Stage = "init"
	StageLogOn          Stage = "logon"
	StageStatsRequest   Stage = "stats_request"
	StageSetAchievement Stage = "set_achievement"
	StageStore          Stage = "store"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRemoteFailure
	OutcomeTimeout
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRemoteFailure:
		return "remote_failure"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// StageOutcome is the terminal result of waiting on one operation.
type StageOutcome struct {
	Kind OutcomeKind
	Err  error
}

func (o StageOutcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

type FailureKind int

const (
	FailureInit FailureKind = iota + 1
	FailureTimeout
	FailureRemote
	FailureLogic
	FailureCanceled
)

func (k FailureKind) sentinel() error {
	switch k {
	case FailureInit:
		return ErrInit
	case FailureTimeout:
		return ErrTimeout
	case FailureRemote:
		return ErrRemoteFailure
	case FailureLogic:
		return ErrLogic
	case FailureCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// StageError reports which stage halted a run and why.
type StageError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

// Reason is the single-token code printed on stderr.
func (e *StageError) Reason() string {
	switch e.Kind {
	case FailureTimeout:
		return string(e.Stage) + "_timeout"
	case FailureCanceled:
		return string(e.Stage) + "_canceled"
	default:
		return string(e.Stage) + "_failed"
	}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Reason()
	}
	return fmt.Sprintf("%s: %v", e.Reason(), e.Err)
}

func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k FailureKind) String() string {
	switch k {
	case 0:
		return "none"
	case FailureInit:
		return "init"
	case FailureTimeout:
		return "timeout"
	case FailureRemote:
		return "remote"
	case FailureLogic:
		return "logic"
	case FailureCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// FailureFor maps a wait outcome onto the failure taxonomy. Success maps
// to zero.
func FailureFor(kind OutcomeKind) FailureKind {
	switch kind {
	case OutcomeTimeout:
		return FailureTimeout
	case OutcomeRemoteFailure:
		return FailureRemote
	case OutcomeCanceled:
		return FailureCanceled
	default:
		return 0
	}
}

// StageReport records how long a stage took and, when it halted the run,
// why. A zero Failure means the stage succeeded.
type StageReport struct {
	Stage   Stage
	Elapsed time.Duration
	Failure FailureKind
}

type Report struct {
	RunID     string
	StartedAt time.Time
	Deadline  time.Time
	Stages    []StageReport
}

func (r Report) Elapsed() time.Duration {
	var total time.Duration
	for _, stage := range r.Stages {
		total += stage.Elapsed
	}
	return total
}
