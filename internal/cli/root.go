// Package cli implements the desk command-line interface: a terminal front
// end to one management screen session per invocation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/marketdesk/internal/metrics"
	"github.com/mesh-intelligence/marketdesk/internal/paths"
	"github.com/mesh-intelligence/marketdesk/internal/session"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the desk version, overridden at build time with -ldflags.
var Version = "0.1.0-dev"

const modulePath = "github.com/mesh-intelligence/marketdesk"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
	metrics   bool
}

// app is the state shared by the subcommands of one root command.
type app struct {
	flags     rootFlags
	configDir string
	config    types.Config
	logger    *slog.Logger
}

// NewRootCmd creates the top-level "desk" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "desk",
		Short: "Manage marketplace orders, products, bookings, and requests",
		Long: `desk works on one record kind at a time, the way a management screen
does: list and filter records, count them per status tab, and edit them
optimistically against the configured backend.`,
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.dumpMetrics,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory of the local backend")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug messages to stderr")
	root.PersistentFlags().BoolVar(&a.flags.metrics, "metrics", false, "write mutation metrics to stderr on exit")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newListCmd())
	root.AddCommand(a.newCountsCmd())
	root.AddCommand(a.newUpdateCmd())
	root.AddCommand(a.newCreateCmd())
	root.AddCommand(a.newDeleteCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newExportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "desk:", err)
		os.Exit(exitCode(err))
	}
}

// setup configures logging and loads the configuration before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	cfg, err := decodeConfig(v, a.flags.dataDir)
	if err != nil {
		return err
	}
	a.configDir = configDir
	a.config = cfg
	a.logger.Debug("configuration loaded",
		slog.String("config_dir", configDir),
		slog.String("backend", cfg.Backend),
		slog.String("data_dir", cfg.DataDir),
	)
	return nil
}

// dumpMetrics writes the mutation metrics of this run to stderr when
// --metrics is set.
func (a *app) dumpMetrics(cmd *cobra.Command, args []string) error {
	if !a.flags.metrics {
		return nil
	}
	if err := metrics.WriteText(cmd.ErrOrStderr(), prometheus.DefaultGatherer); err != nil {
		return sysError(err)
	}
	return nil
}

// openSession connects to the configured backend and loads the records of
// kind into a new session. The returned close function releases the
// backend.
func (a *app) openSession(ctx context.Context, kind types.Kind, opts ...session.Option) (*session.Session, func(), error) {
	remote, closeRemote, err := a.openRemote()
	if err != nil {
		return nil, nil, err
	}
	opts = append([]session.Option{
		session.WithLogger(a.logger),
		session.WithConfirmTimeout(a.config.Mutation.ConfirmTimeout),
	}, opts...)

	s, err := session.New(kind, remote, opts...)
	if err != nil {
		closeRemote()
		return nil, nil, userError(err)
	}
	if err := s.Load(ctx); err != nil {
		closeRemote()
		return nil, nil, err
	}
	return s, closeRemote, nil
}

// exitErr carries an exit code chosen by a command.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func userError(err error) error { return &exitErr{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitErr{code: exitSysError, err: err} }

// userErrors are the failures caused by what the user asked for rather
// than by the environment.
var userErrors = []error{
	types.ErrValidation,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrDuplicateID,
	types.ErrInvalidKind,
	types.ErrMutationRejected,
	types.ErrInvalidTransition,
	session.ErrBusy,
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitErr
	if errors.As(err, &e) {
		return e.code
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
