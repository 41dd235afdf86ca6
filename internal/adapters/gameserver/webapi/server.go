// Package webapi drives achievements through the platform's partner Web
// API. Requests run on their own goroutines; their completions queue until
// the driving goroutine calls RunCallbacks.
package webapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

const completionQueueSize = 16

var ErrMissingAPIKey = errors.New("web api key is required")

type Factory struct {
	API            API
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *slog.Logger
	// KeyErr is why the key could not be resolved. Init reports it.
	KeyErr error
}

var _ ports.GameServerFactory = Factory{}

func (f Factory) Init(ctx context.Context, appID uint32, identity domain.ServerIdentity) (ports.GameServer, error) {
	if f.KeyErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingAPIKey, f.KeyErr)
	}
	if f.API.Key == "" {
		return nil, ErrMissingAPIKey
	}
	if _, err := buildAPIURL(f.API.BaseURL, schemaPath); err != nil {
		return nil, err
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &GameServer{
		client:      client{api: f.API, httpClient: f.HTTPClient, requestTimeout: f.RequestTimeout},
		logger:      logger.With("backend", "webapi", "app_id", appID),
		appID:       appID,
		identity:    identity,
		ctx:         serverCtx,
		cancel:      cancel,
		completions: make(chan queuedCompletion, completionQueueSize),
		stats:       map[domain.SteamID]*userStats{},
	}, nil
}

type queuedCompletion struct {
	completion ports.CallCompletion
	apply      func()
}

type userStats struct {
	unlocked map[string]bool
	changed  map[string]bool
}

// GameServer must be driven from a single goroutine; only the request
// goroutines it spawns run concurrently, and they touch nothing but the
// completion queue.
type GameServer struct {
	client   client
	logger   *slog.Logger
	appID    uint32
	identity domain.ServerIdentity

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	completions chan queuedCompletion

	metadata     domain.ServerMetadata
	loggedOn     bool
	logOnIssued  bool
	achievements []string
	nextCall     ports.APICall
	stats        map[domain.SteamID]*userStats
	shutdown     bool
}

var _ ports.GameServer = (*GameServer)(nil)

func (s *GameServer) SetMetadata(metadata domain.ServerMetadata) {
	s.metadata = metadata
}

// LogOnAnonymous validates the key by loading the achievement schema. A
// rejected key leaves the server logged off.
func (s *GameServer) LogOnAnonymous() {
	if s.shutdown || s.logOnIssued {
		return
	}
	s.logOnIssued = true

	s.spawn(func(ctx context.Context) queuedCompletion {
		achievements, err := s.client.fetchSchema(ctx, s.appID)
		if err != nil {
			s.logger.Debug("anonymous logon rejected", "error", err)
			return queuedCompletion{}
		}
		return queuedCompletion{apply: func() {
			s.achievements = achievements
			s.loggedOn = true
		}}
	})
}

func (s *GameServer) LoggedOn() bool {
	return s.loggedOn
}

func (s *GameServer) RequestUserStats(id domain.SteamID) ports.APICall {
	if s.shutdown || !s.loggedOn {
		return ports.InvalidAPICall
	}

	call := s.allocateCall()
	s.spawn(func(ctx context.Context) queuedCompletion {
		unlocked, err := s.client.fetchUserStats(ctx, s.appID, id)
		if err != nil {
			return s.failed(call, err)
		}
		return queuedCompletion{
			completion: ports.CallCompletion{Call: call, Result: domain.ResultOK},
			apply: func() {
				stats := &userStats{unlocked: map[string]bool{}, changed: map[string]bool{}}
				for _, name := range unlocked {
					stats.unlocked[name] = true
				}
				s.stats[id] = stats
			},
		}
	})
	return call
}

func (s *GameServer) SetUserAchievement(id domain.SteamID, name string) error {
	stats, ok := s.stats[id]
	if !ok {
		return fmt.Errorf("%w for %s", domain.ErrStatsNotLoaded, id)
	}
	if !slices.Contains(s.achievements, name) {
		return fmt.Errorf("%w %q for app %d", domain.ErrUnknownAchievement, name, s.appID)
	}

	if !stats.unlocked[name] {
		stats.changed[name] = true
	}
	return nil
}

func (s *GameServer) StoreUserStats(id domain.SteamID) ports.APICall {
	if s.shutdown {
		return ports.InvalidAPICall
	}
	stats, ok := s.stats[id]
	if !ok {
		return ports.InvalidAPICall
	}

	names := make([]string, 0, len(stats.changed))
	for name := range stats.changed {
		names = append(names, name)
	}
	slices.Sort(names)

	call := s.allocateCall()
	if len(names) == 0 {
		// Nothing changed; the platform has nothing to persist.
		s.enqueue(queuedCompletion{completion: ports.CallCompletion{Call: call, Result: domain.ResultOK}})
		return call
	}

	s.spawn(func(ctx context.Context) queuedCompletion {
		if err := s.client.storeAchievements(ctx, s.appID, id, names); err != nil {
			return s.failed(call, err)
		}
		return queuedCompletion{
			completion: ports.CallCompletion{Call: call, Result: domain.ResultOK},
			apply: func() {
				for _, name := range names {
					stats.unlocked[name] = true
					delete(stats.changed, name)
				}
			},
		}
	})
	return call
}

// RunCallbacks drains every completion that has arrived without blocking.
func (s *GameServer) RunCallbacks(dispatch func(ports.CallCompletion)) {
	for {
		select {
		case queued := <-s.completions:
			if queued.apply != nil {
				queued.apply()
			}
			if queued.completion.Call != ports.InvalidAPICall {
				dispatch(queued.completion)
			}
		default:
			return
		}
	}
}

// Shutdown cancels in-flight requests and waits for their goroutines.
func (s *GameServer) Shutdown() {
	if s.shutdown {
		return
	}
	s.shutdown = true
	s.cancel()
	s.wg.Wait()
}

func (s *GameServer) allocateCall() ports.APICall {
	s.nextCall++
	return s.nextCall
}

func (s *GameServer) spawn(work func(ctx context.Context) queuedCompletion) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		queued := work(s.ctx)
		if queued.apply == nil && queued.completion.Call == ports.InvalidAPICall {
			return
		}
		select {
		case s.completions <- queued:
		case <-s.ctx.Done():
		}
	}()
}

func (s *GameServer) enqueue(queued queuedCompletion) {
	s.spawn(func(context.Context) queuedCompletion { return queued })
}

func (s *GameServer) failed(call ports.APICall, err error) queuedCompletion {
	s.logger.Debug("web api call failed", "call", uint64(call), "error", err)

	var callErr *callError
	if errors.As(err, &callErr) {
		return queuedCompletion{completion: ports.CallCompletion{Call: call, Result: callErr.Result, IOFailure: callErr.IO}}
	}
	return queuedCompletion{completion: ports.CallCompletion{Call: call, IOFailure: true}}
}
