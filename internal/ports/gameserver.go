package ports

import (
	"context"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

// APICall is the opaque handle a remote request returns immediately.
type APICall uint64

const InvalidAPICall APICall = 0

// CallCompletion is delivered for an APICall during RunCallbacks.
type CallCompletion struct {
	Call      APICall
	Result    domain.Result
	IOFailure bool
}

// GameServerFactory constructs the platform client. A factory may return a
// non-nil server together with an error when initialization failed after
// partially acquiring resources; the caller must still shut it down.
type GameServerFactory interface {
	Init(ctx context.Context, appID uint32, identity domain.ServerIdentity) (GameServer, error)
}

// GameServer is a callback-driven platform client. Every method must be
// called from the goroutine that drives RunCallbacks.
type GameServer interface {
	SetMetadata(metadata domain.ServerMetadata)
	LogOnAnonymous()
	LoggedOn() bool
	RequestUserStats(id domain.SteamID) APICall
	SetUserAchievement(id domain.SteamID, name string) error
	StoreUserStats(id domain.SteamID) APICall
	// RunCallbacks hands every completion that has arrived to dispatch.
	RunCallbacks(dispatch func(CallCompletion))
	Shutdown()
}
