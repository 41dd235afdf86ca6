package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

// Session owns the platform client for one run.
//
// Logon is observed differently from every other call: the client exposes
// a LoggedOn state rather than a result-bearing callback, so the logon
// operation completes only with success. A rejected logon looks exactly
// like one still in progress and surfaces as a timeout.
type Session struct {
	factory ports.GameServerFactory
	logger  *slog.Logger

	server  ports.GameServer
	state   domain.SessionState
	pending map[ports.APICall]func(ports.CallCompletion)
	logon   *AsyncOperation[domain.LoginResult]
	closed  bool
}

func NewSession(factory ports.GameServerFactory, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		factory: factory,
		logger:  logger,
		state:   domain.SessionDisconnected,
		pending: map[ports.APICall]func(ports.CallCompletion){},
	}
}

func (s *Session) State() domain.SessionState {
	return s.state
}

// Open initializes the client and applies the server metadata. It never
// polls; any failure is terminal.
func (s *Session) Open(ctx context.Context, cfg domain.Config) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != domain.SessionDisconnected {
		return fmt.Errorf("open session in state %s", s.state)
	}

	server, err := s.factory.Init(ctx, cfg.AppID, cfg.Identity)
	// A partially initialized client still has to be shut down.
	s.server = server
	if err != nil {
		s.state = domain.SessionFailed
		return fmt.Errorf("%w: %w", domain.ErrInit, err)
	}
	if server == nil {
		s.state = domain.SessionFailed
		return fmt.Errorf("%w: factory returned no client", domain.ErrInit)
	}

	server.SetMetadata(cfg.Metadata)
	s.state = domain.SessionConnecting
	s.logger.Debug("game server initialized",
		"ip", domain.FormatIPv4(cfg.Identity.IP),
		"game_port", cfg.Identity.GamePort,
		"query_port", cfg.Identity.QueryPort,
		"mode", cfg.Identity.Mode.String(),
	)

	return nil
}

// LogOn issues an anonymous logon. The returned operation completes on the
// first pump after which the client reports it is logged on.
func (s *Session) LogOn() (*AsyncOperation[domain.LoginResult], error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.state != domain.SessionConnecting {
		return nil, fmt.Errorf("log on in state %s", s.state)
	}

	op := newAsyncOperation[domain.LoginResult](ports.InvalidAPICall)
	op.onAbandon = func() {
		s.logon = nil
		s.state = domain.SessionFailed
	}
	s.logon = op
	s.server.LogOnAnonymous()

	return op, nil
}

func (s *Session) RequestUserStats(id domain.SteamID) (*AsyncOperation[domain.UserStats], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.track(id, s.server.RequestUserStats(id))
}

// SetUserAchievement mutates the locally cached stats; nothing is sent
// until StoreUserStats.
func (s *Session) SetUserAchievement(id domain.SteamID, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.server.SetUserAchievement(id, name); err != nil {
		return fmt.Errorf("%w: set achievement %q: %w", domain.ErrLogic, name, err)
	}
	return nil
}

func (s *Session) StoreUserStats(id domain.SteamID) (*AsyncOperation[domain.UserStats], error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.track(id, s.server.StoreUserStats(id))
}

// Pump dispatches every completion that has arrived, then polls the logon
// state.
func (s *Session) Pump() {
	if s.closed || s.server == nil {
		return
	}

	s.server.RunCallbacks(s.dispatch)

	if s.logon != nil && s.state == domain.SessionConnecting && s.server.LoggedOn() {
		s.state = domain.SessionReady
		s.logon.complete(Completion[domain.LoginResult]{Value: domain.LoginResult{LoggedOn: true}})
		s.logon = nil
	}
}

// Close shuts the client down once. Later calls do nothing.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if abandoned := len(s.pending); abandoned > 0 {
		s.logger.Debug("closing session with abandoned calls", "pending", abandoned)
	}
	s.pending = map[ports.APICall]func(ports.CallCompletion){}
	s.logon = nil

	if s.server != nil {
		s.server.Shutdown()
		s.logger.Debug("game server shut down")
	}
}

func (s *Session) track(id domain.SteamID, call ports.APICall) (*AsyncOperation[domain.UserStats], error) {
	if call == ports.InvalidAPICall {
		return nil, fmt.Errorf("%w: %w", domain.ErrRemoteFailure, domain.ErrInvalidAPICall)
	}

	op := newAsyncOperation[domain.UserStats](call)
	op.onAbandon = func() {
		delete(s.pending, call)
	}
	s.pending[call] = func(completion ports.CallCompletion) {
		op.complete(statsCompletion(id, completion))
	}

	return op, nil
}

func (s *Session) dispatch(completion ports.CallCompletion) {
	handler, ok := s.pending[completion.Call]
	if !ok {
		s.logger.Debug("dropping completion for unknown call", "call", uint64(completion.Call))
		return
	}
	delete(s.pending, completion.Call)
	handler(completion)
}

func (s *Session) usable() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.server == nil {
		return fmt.Errorf("%w: session is not open", domain.ErrSessionNotReady)
	}
	return nil
}

func (s *Session) ready() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.state != domain.SessionReady {
		return fmt.Errorf("%w: state %s", domain.ErrSessionNotReady, s.state)
	}
	return nil
}

func statsCompletion(id domain.SteamID, completion ports.CallCompletion) Completion[domain.UserStats] {
	stats := domain.UserStats{SteamID: id, Result: completion.Result}

	switch {
	case completion.IOFailure:
		return Completion[domain.UserStats]{Value: stats, Err: fmt.Errorf("%w: i/o failure", domain.ErrRemoteFailure)}
	case completion.Result != domain.ResultOK:
		return Completion[domain.UserStats]{Value: stats, Err: fmt.Errorf("%w: result %s", domain.ErrRemoteFailure, completion.Result)}
	default:
		return Completion[domain.UserStats]{Value: stats}
	}
}
