package domain

import "fmt"

// Result mirrors the platform's result codes for the subset the tool sees.
type Result int

const (
	ResultNone               Result = 0
	ResultOK                 Result = 1
	ResultFail               Result = 2
	ResultNoConnection       Result = 3
	ResultInvalidParam       Result = 8
	ResultBusy               Result = 10
	ResultAccessDenied       Result = 15
	ResultTimeout            Result = 16
	ResultServiceUnavailable Result = 20
	ResultLimitExceeded      Result = 25
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultOK:
		return "ok"
	case ResultFail:
		return "fail"
	case ResultNoConnection:
		return "no_connection"
	case ResultInvalidParam:
		return "invalid_param"
	case ResultBusy:
		return "busy"
	case ResultAccessDenied:
		return "access_denied"
	case ResultTimeout:
		return "timeout"
	case ResultServiceUnavailable:
		return "service_unavailable"
	case ResultLimitExceeded:
		return "limit_exceeded"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

type LoginResult struct {
	LoggedOn bool
}

type UserStats struct {
	SteamID SteamID
	Result  Result
}

type SessionState int

const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionReady
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionReady:
		return "ready"
	case SessionFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
