package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bnema/steam-gs-unlock/internal/adapters/render/report"
	"github.com/bnema/steam-gs-unlock/internal/adapters/telemetry"
	"github.com/bnema/steam-gs-unlock/internal/application"
	"github.com/bnema/steam-gs-unlock/internal/domain"
	"github.com/bnema/steam-gs-unlock/internal/version"
)

const (
	serviceName             = "gsunlock"
	telemetryShutdownBudget = 5 * time.Second
)

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return execute(ctx, wireApp(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		reportError(stderr, err)
	}
	return GetExitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gsunlock --steamid ID --achievement NAME --app-id ID [flags]",
		Short: "Unlock one achievement for one user through a game server identity",
		Long: "gsunlock brings up a headless game server identity, logs it on anonymously, " +
			"loads the user's stats, sets one achievement and stores the stats back. " +
			"The whole run shares one deadline. It prints ok on success; on failure it " +
			"prints a single reason such as logon_timeout on stderr and exits 1.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	registerFlags(rootCmd.Flags())
	v, err := newConfigViper(rootCmd.Flags())
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return configError(err)
		}
		return rootCmd
	}

	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.runUnlock(cmd, v)
	}
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (a *app) runUnlock(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()

	if err := readConfigFile(v); err != nil {
		return configError(err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetBool(flagVerbose), v.GetString(flagLogFormat))
	if err != nil {
		return configError(err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return configError(err)
	}

	if err := a.setenv(steamAppIDEnv, strconv.FormatUint(uint64(cfg.AppID), 10)); err != nil {
		return configError(fmt.Errorf("export %s: %w", steamAppIDEnv, err))
	}

	factory, err := a.newFactory(ctx, v, logger)
	if err != nil {
		return configError(err)
	}

	tp, shutdownTelemetry, err := a.initTelemetry(ctx, logger, telemetry.Config{
		ServiceName:      serviceName,
		ServiceVersion:   version.Version,
		ExporterEndpoint: v.GetString(flagOTLPEndpoint),
		InsecureExporter: v.GetBool(flagOTLPInsecure),
	})
	if err != nil {
		return configError(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownBudget)
		defer cancel()
		shutdownTelemetry(shutdownCtx)
	}()

	var runReport domain.Report
	run := func(ctx context.Context, observe func(domain.Stage)) error {
		sequencer := application.NewSequencer(factory, a.clock,
			application.WithLogger(logger),
			application.WithTracer(tp.Tracer(serviceName)),
			application.WithStageObserver(observe),
		)
		r, err := sequencer.Run(ctx, cfg)
		runReport = r
		for _, stage := range r.Stages {
			logger.Debug("stage report", "run_id", r.RunID, "stage", stage.Stage, "elapsed", stage.Elapsed, "failure", stage.Failure.String())
		}
		return err
	}

	if v.GetBool(flagProgress) {
		err = runUnlockSpinner(ctx, cmd.ErrOrStderr(), run)
		writeStageReport(cmd.ErrOrStderr(), logger, runReport)
	} else {
		err = run(ctx, nil)
	}
	if err != nil {
		return pipelineError(err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return err
}

// writeStageReport prints per-stage timings after a progress run. The
// outcome line still comes last.
func writeStageReport(w io.Writer, logger *slog.Logger, r domain.Report) {
	rendered, err := report.Render(r)
	if err != nil {
		logger.Debug("render stage report", "error", err)
		return
	}
	_, _ = fmt.Fprintln(w, rendered)
}
