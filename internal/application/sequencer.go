package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/ports"
)

const tracerName = "github.com/bnema/steam-gs-unlock/internal/application"

// stage is one step of the pipeline. run either finishes synchronously
// (nil awaitable) or issues exactly one remote call for the waiter. A
// synchronous error is classified as failure.
type stage struct {
	name    domain.Stage
	failure domain.FailureKind
	run     func(ctx context.Context, session *Session) (awaitable, error)
}

type SequencerOption func(*Sequencer)

func WithLogger(logger *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) SequencerOption {
	return func(s *Sequencer) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithStageObserver registers a hook called as each stage starts.
func WithStageObserver(observe func(domain.Stage)) SequencerOption {
	return func(s *Sequencer) {
		s.observe = observe
	}
}

func WithRunIDGenerator(generate func() string) SequencerOption {
	return func(s *Sequencer) {
		if generate != nil {
			s.newRunID = generate
		}
	}
}

// Sequencer runs init, logon, stats request, achievement mutation and
// stats store in order against a single deadline, halting at the first
// failure. The session is closed on every exit path.
type Sequencer struct {
	factory  ports.GameServerFactory
	clock    ports.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	observe  func(domain.Stage)
	newRunID func() string
}

func NewSequencer(factory ports.GameServerFactory, clock ports.Clock, opts ...SequencerOption) *Sequencer {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &Sequencer{
		factory:  factory,
		clock:    clock,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes one unlock. The returned error is a *domain.StageError
// whenever a stage failed.
func (s *Sequencer) Run(ctx context.Context, cfg domain.Config) (domain.Report, error) {
	runID := s.newRunID()
	logger := s.logger.With("run_id", runID)

	startedAt := s.clock.Now()
	deadline := startedAt.Add(cfg.Timeout)
	report := domain.Report{RunID: runID, StartedAt: startedAt, Deadline: deadline}

	ctx, span := s.tracer.Start(ctx, "gsunlock.run", trace.WithAttributes(
		attribute.String("gsunlock.run_id", runID),
		attribute.String("gsunlock.steam_id", cfg.SteamID.String()),
		attribute.String("gsunlock.achievement", cfg.Achievement),
		attribute.Int64("gsunlock.app_id", int64(cfg.AppID)),
		attribute.Int64("gsunlock.timeout_ms", cfg.Timeout.Milliseconds()),
	))
	defer span.End()

	session := NewSession(s.factory, logger)
	defer session.Close()

	w := newWaiter(s.clock, session.Pump, cfg.PollInterval)

	for _, st := range pipeline(cfg) {
		stageStart := s.clock.Now()
		if s.observe != nil {
			s.observe(st.name)
		}
		logger.Debug("stage started", "stage", st.name, "remaining", deadline.Sub(stageStart))

		err := s.runStage(ctx, st, session, w, deadline)
		elapsed := s.clock.Now().Sub(stageStart)

		if err != nil {
			var stageErr *domain.StageError
			failure := domain.FailureRemote
			if errors.As(err, &stageErr) {
				failure = stageErr.Kind
			}
			report.Stages = append(report.Stages, domain.StageReport{Stage: st.name, Elapsed: elapsed, Failure: failure})

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("stage failed", "stage", st.name, "failure", failure.String(), "elapsed", elapsed, "error", err)
			return report, err
		}

		report.Stages = append(report.Stages, domain.StageReport{Stage: st.name, Elapsed: elapsed})
		logger.Debug("stage completed", "stage", st.name, "elapsed", elapsed)
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("achievement stored",
		"steam_id", cfg.SteamID.String(),
		"achievement", cfg.Achievement,
		"elapsed", s.clock.Now().Sub(startedAt),
	)

	return report, nil
}

func (s *Sequencer) runStage(ctx context.Context, st stage, session *Session, w *waiter, deadline time.Time) error {
	ctx, span := s.tracer.Start(ctx, "gsunlock.stage", trace.WithAttributes(
		attribute.String("gsunlock.stage", string(st.name)),
	))
	defer span.End()

	op, err := st.run(ctx, session)
	if err != nil {
		stageErr := &domain.StageError{Stage: st.name, Kind: st.failure, Err: err}
		span.RecordError(stageErr)
		span.SetStatus(codes.Error, stageErr.Reason())
		return stageErr
	}
	if op == nil {
		return nil
	}

	outcome := w.await(ctx, op, deadline)
	if outcome.Succeeded() {
		return nil
	}

	stageErr := &domain.StageError{Stage: st.name, Kind: domain.FailureFor(outcome.Kind), Err: outcome.Err}
	span.SetAttributes(attribute.String("gsunlock.outcome", outcome.Kind.String()))
	span.RecordError(stageErr)
	span.SetStatus(codes.Error, stageErr.Reason())
	return stageErr
}

func pipeline(cfg domain.Config) []stage {
	return []stage{
		{
			name:    domain.StageInit,
			failure: domain.FailureInit,
			run: func(ctx context.Context, session *Session) (awaitable, error) {
				return nil, session.Open(ctx, cfg)
			},
		},
		{
			name:    domain.StageLogOn,
			failure: domain.FailureRemote,
			run: func(_ context.Context, session *Session) (awaitable, error) {
				op, err := session.LogOn()
				if err != nil {
					return nil, err
				}
				return op, nil
			},
		},
		{
			name:    domain.StageStatsRequest,
			failure: domain.FailureRemote,
			run: func(_ context.Context, session *Session) (awaitable, error) {
				op, err := session.RequestUserStats(cfg.SteamID)
				if err != nil {
					return nil, err
				}
				return op, nil
			},
		},
		{
			name:    domain.StageSetAchievement,
			failure: domain.FailureLogic,
			run: func(_ context.Context, session *Session) (awaitable, error) {
				return nil, session.SetUserAchievement(cfg.SteamID, cfg.Achievement)
			},
		},
		{
			name:    domain.StageStore,
			failure: domain.FailureRemote,
			run: func(_ context.Context, session *Session) (awaitable, error) {
				op, err := session.StoreUserStats(cfg.SteamID)
				if err != nil {
					return nil, err
				}
				return op, nil
			},
		},
	}
}
