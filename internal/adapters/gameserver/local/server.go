// Package local is a file-backed game server backend. It keeps the
// callback model of the real platform client: every request returns a call
// handle at once and completes a configurable number of pumps later.
package local

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/viper"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

type Factory struct {
	store   *Store
	latency int
}

var _ ports.GameServerFactory = (*Factory)(nil)

func NewFactory(cfg *viper.Viper) (*Factory, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	cfg.SetDefault(LatencyTicksKey, defaultLatencyTicks)
	latency := cfg.GetInt(LatencyTicksKey)
	if latency < 0 {
		return nil, fmt.Errorf("%s must not be negative", LatencyTicksKey)
	}

	return &Factory{store: store, latency: latency}, nil
}

func (f *Factory) Store() *Store {
	return f.store
}

func (f *Factory) Init(ctx context.Context, appID uint32, identity domain.ServerIdentity) (ports.GameServer, error) {
	achievements, err := f.store.Achievements(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load achievements from %s: %w", f.store.Path(), err)
	}

	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &GameServer{
		ctx:          serverCtx,
		cancel:       cancel,
		store:        f.store,
		appID:        appID,
		identity:     identity,
		latency:      f.latency,
		achievements: achievements,
		logOnTick:    -1,
		stats:        map[domain.SteamID]map[string]bool{},
	}, nil
}

type scheduledCall struct {
	due  int
	call ports.APICall
	run  func() ports.CallCompletion
}

// GameServer is not safe for concurrent use; like the platform client it
// is driven from one goroutine.
type GameServer struct {
	ctx          context.Context
	cancel       context.CancelFunc
	store        *Store
	appID        uint32
	identity     domain.ServerIdentity
	latency      int
	achievements []string

	metadata  domain.ServerMetadata
	ticks     int
	logOnTick int
	loggedOn  bool
	nextCall  ports.APICall
	pending   []scheduledCall
	stats     map[domain.SteamID]map[string]bool
	shutdown  bool
}

var _ ports.GameServer = (*GameServer)(nil)

func (s *GameServer) SetMetadata(metadata domain.ServerMetadata) {
	s.metadata = metadata
}

func (s *GameServer) Metadata() domain.ServerMetadata {
	return s.metadata
}

func (s *GameServer) LogOnAnonymous() {
	if s.shutdown {
		return
	}
	s.logOnTick = s.ticks + s.latency
}

func (s *GameServer) LoggedOn() bool {
	return s.loggedOn
}

func (s *GameServer) RequestUserStats(id domain.SteamID) ports.APICall {
	if s.shutdown || !s.loggedOn {
		return ports.InvalidAPICall
	}

	return s.schedule(func(call ports.APICall) ports.CallCompletion {
		unlocked, err := s.store.Unlocked(s.ctx, s.appID, id)
		if err != nil {
			return ports.CallCompletion{Call: call, IOFailure: true}
		}

		cached := make(map[string]bool, len(unlocked))
		for _, name := range unlocked {
			cached[name] = true
		}
		s.stats[id] = cached
		return ports.CallCompletion{Call: call, Result: domain.ResultOK}
	})
}

func (s *GameServer) SetUserAchievement(id domain.SteamID, name string) error {
	cached, ok := s.stats[id]
	if !ok {
		return fmt.Errorf("%w for %s", domain.ErrStatsNotLoaded, id)
	}
	if !slices.Contains(s.achievements, name) {
		return fmt.Errorf("%w %q for app %d", domain.ErrUnknownAchievement, name, s.appID)
	}

	cached[name] = true
	return nil
}

func (s *GameServer) StoreUserStats(id domain.SteamID) ports.APICall {
	if s.shutdown {
		return ports.InvalidAPICall
	}
	cached, ok := s.stats[id]
	if !ok {
		return ports.InvalidAPICall
	}

	names := make([]string, 0, len(cached))
	for name := range cached {
		names = append(names, name)
	}
	slices.Sort(names)

	return s.schedule(func(call ports.APICall) ports.CallCompletion {
		if err := s.store.Unlock(s.ctx, s.appID, id, names); err != nil {
			return ports.CallCompletion{Call: call, IOFailure: true}
		}
		return ports.CallCompletion{Call: call, Result: domain.ResultOK}
	})
}

func (s *GameServer) RunCallbacks(dispatch func(ports.CallCompletion)) {
	if s.shutdown {
		return
	}

	s.ticks++
	if s.logOnTick >= 0 && s.ticks >= s.logOnTick {
		s.loggedOn = true
	}

	var due []scheduledCall
	remaining := s.pending[:0]
	for _, scheduled := range s.pending {
		if scheduled.due <= s.ticks {
			due = append(due, scheduled)
			continue
		}
		remaining = append(remaining, scheduled)
	}
	s.pending = remaining

	for _, scheduled := range due {
		dispatch(scheduled.run())
	}
}

func (s *GameServer) Shutdown() {
	if s.shutdown {
		return
	}
	s.shutdown = true
	s.pending = nil
	s.cancel()
}

func (s *GameServer) schedule(run func(ports.APICall) ports.CallCompletion) ports.APICall {
	s.nextCall++
	call := s.nextCall
	s.pending = append(s.pending, scheduledCall{
		due:  s.ticks + s.latency,
		call: call,
		run:  func() ports.CallCompletion { return run(call) },
	})
	return call
}
