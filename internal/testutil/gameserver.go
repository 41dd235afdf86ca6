package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

const Never = -1

// ServerScript decides how the fake platform answers. Tick counts are
// measured in RunCallbacks invocations after the request was issued;
// Never means the completion is never delivered.
type ServerScript struct {
	InitErr         error
	LogOnAfterTicks int
	StatsAfterTicks int
	StatsResult     domain.Result
	StatsIOFailure  bool
	StoreAfterTicks int
	StoreResult     domain.Result
	StoreIOFailure  bool
	Achievements    []string
}

// HappyScript completes every call successfully one tick after it is issued.
func HappyScript() ServerScript {
	return ServerScript{
		LogOnAfterTicks: 1,
		StatsAfterTicks: 1,
		StatsResult:     domain.ResultOK,
		StoreAfterTicks: 1,
		StoreResult:     domain.ResultOK,
		Achievements:    []string{"ACH_WIN_ONE_GAME", "ACH_TRAVEL_FAR_ACCUM"},
	}
}

type GameServerFactory struct {
	Script ServerScript

	mu      sync.Mutex
	servers []*GameServer
}

var _ ports.GameServerFactory = (*GameServerFactory)(nil)

func NewGameServerFactory(script ServerScript) *GameServerFactory {
	return &GameServerFactory{Script: script}
}

// Init always returns the server it built, even when the script fails
// initialization, so callers can verify it was shut down.
func (f *GameServerFactory) Init(ctx context.Context, appID uint32, identity domain.ServerIdentity) (ports.GameServer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	server := &GameServer{
		script:      f.Script,
		appID:       appID,
		identity:    identity,
		logOnTick:   -1,
		statsLoaded: map[domain.SteamID]bool{},
		unlocked:    map[string]bool{},
	}
	server.record("init")

	f.mu.Lock()
	f.servers = append(f.servers, server)
	f.mu.Unlock()

	if f.Script.InitErr != nil {
		return server, f.Script.InitErr
	}
	return server, nil
}

// Server returns the most recently initialized server, or nil.
func (f *GameServerFactory) Server() *GameServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.servers) == 0 {
		return nil
	}
	return f.servers[len(f.servers)-1]
}

type scheduledCompletion struct {
	due        int
	completion ports.CallCompletion
	apply      func()
}

// GameServer is a scriptable ports.GameServer that records every call.
type GameServer struct {
	script   ServerScript
	appID    uint32
	identity domain.ServerIdentity

	mu          sync.Mutex
	calls       []string
	ticks       int
	logOnTick   int
	loggedOn    bool
	nextCall    ports.APICall
	pending     []scheduledCompletion
	statsLoaded map[domain.SteamID]bool
	unlocked    map[string]bool
	stored      []string
	metadata    domain.ServerMetadata
	shutdowns   int
}

var _ ports.GameServer = (*GameServer)(nil)

func (s *GameServer) SetMetadata(metadata domain.ServerMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "metadata")
	s.metadata = metadata
}

func (s *GameServer) LogOnAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "logon")
	if s.script.LogOnAfterTicks != Never {
		s.logOnTick = s.ticks + s.script.LogOnAfterTicks
	}
}

func (s *GameServer) LoggedOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedOn
}

func (s *GameServer) RequestUserStats(id domain.SteamID) ports.APICall {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "request_stats")

	call := s.allocateCall()
	if s.script.StatsAfterTicks != Never {
		completion := ports.CallCompletion{Call: call, Result: s.script.StatsResult, IOFailure: s.script.StatsIOFailure}
		s.pending = append(s.pending, scheduledCompletion{
			due:        s.ticks + s.script.StatsAfterTicks,
			completion: completion,
			apply: func() {
				if completion.Result == domain.ResultOK && !completion.IOFailure {
					s.statsLoaded[id] = true
				}
			},
		})
	}
	return call
}

func (s *GameServer) SetUserAchievement(id domain.SteamID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "set_achievement")

	if !s.statsLoaded[id] {
		return fmt.Errorf("%w for %s", domain.ErrStatsNotLoaded, id)
	}
	if !slices.Contains(s.script.Achievements, name) {
		return fmt.Errorf("%w %q", domain.ErrUnknownAchievement, name)
	}
	s.unlocked[name] = true
	return nil
}

func (s *GameServer) StoreUserStats(id domain.SteamID) ports.APICall {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "store_stats")

	call := s.allocateCall()
	if s.script.StoreAfterTicks != Never {
		completion := ports.CallCompletion{Call: call, Result: s.script.StoreResult, IOFailure: s.script.StoreIOFailure}
		s.pending = append(s.pending, scheduledCompletion{
			due:        s.ticks + s.script.StoreAfterTicks,
			completion: completion,
			apply: func() {
				if completion.Result != domain.ResultOK || completion.IOFailure {
					return
				}
				for name := range s.unlocked {
					s.stored = append(s.stored, name)
				}
				slices.Sort(s.stored)
			},
		})
	}
	return call
}

func (s *GameServer) RunCallbacks(dispatch func(ports.CallCompletion)) {
	s.mu.Lock()
	s.ticks++
	if s.logOnTick >= 0 && s.ticks >= s.logOnTick {
		s.loggedOn = true
	}

	var ready []scheduledCompletion
	remaining := s.pending[:0]
	for _, scheduled := range s.pending {
		if scheduled.due <= s.ticks {
			scheduled.apply()
			ready = append(ready, scheduled)
			continue
		}
		remaining = append(remaining, scheduled)
	}
	s.pending = remaining
	s.mu.Unlock()

	for _, scheduled := range ready {
		dispatch(scheduled.completion)
	}
}

func (s *GameServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "shutdown")
	s.shutdowns++
}

// Calls lists the client methods invoked so far, in order.
func (s *GameServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *GameServer) Shutdowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns
}

func (s *GameServer) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Stored lists achievements persisted by a successful store call.
func (s *GameServer) Stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stored...)
}

func (s *GameServer) Metadata() domain.ServerMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

func (s *GameServer) AppID() uint32 {
	return s.appID
}

func (s *GameServer) Identity() domain.ServerIdentity {
	return s.identity
}

func (s *GameServer) allocateCall() ports.APICall {
	s.nextCall++
	return s.nextCall
}

func (s *GameServer) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}
