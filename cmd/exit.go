package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

// Exit codes of the unlock command.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a pipeline stage failed
	ExitCommandError = 2 // usage or configuration error, nothing was started
)

// ExitError carries the exit code a command error maps to.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that never
// reached the command body (flag parsing, unknown commands) are usage
// errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// configError marks err as a usage error. Errors that already wrap
// domain.ErrConfig carry their own prefix.
func configError(err error) *ExitError {
	if errors.Is(err, domain.ErrConfig) {
		return WrapExitError(ExitCommandError, "", err)
	}
	return WrapExitError(ExitCommandError, domain.ErrConfig.Error(), err)
}

// pipelineError maps a failed run to its machine-readable reason.
func pipelineError(err error) *ExitError {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		return WrapExitError(ExitFailure, stageErr.Reason(), err)
	}
	return WrapExitError(ExitFailure, "run_failed", err)
}

// reportError writes the single stderr line for a failed command. Pipeline
// failures print the bare reason so callers can match on it.
func reportError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitFailure {
		_, _ = fmt.Fprintln(w, exitErr.Message)
		return
	}
	_, _ = fmt.Fprintf(w, "error: %v\n", err)
}
