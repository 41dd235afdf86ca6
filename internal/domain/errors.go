package domain

import "errors"

var (
	ErrConfig        = errors.New("invalid configuration")
	ErrInit          = errors.New("client initialization failed")
	ErrTimeout       = errors.New("deadline exceeded")
	ErrRemoteFailure = errors.New("remote call failed")
	ErrLogic         = errors.New("local mutation rejected")
	ErrCanceled      = errors.New("run canceled")

	ErrSessionClosed      = errors.New("session closed")
	ErrSessionNotReady    = errors.New("session not ready")
	ErrStatsNotLoaded     = errors.New("user stats not loaded")
	ErrUnknownAchievement = errors.New("unknown achievement")
	ErrInvalidAPICall     = errors.New("invalid api call handle")
)
