package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/spf13/cobra"

	"procterm/internal/config"
	"procterm/internal/instance"
	"procterm/internal/logging"
	"procterm/internal/process"
	"procterm/internal/registry"
	"procterm/internal/version"
)

const registryLock = "registry"

type App struct {
	cfg        config.Config
	ctl        *process.Controller
	clk        clock.Clock
	out        io.Writer
	log        *logging.Logger
	runLog     *logging.Logger
	stopLog    *logging.Logger
	serviceLog *logging.Logger
	pruneLog   *logging.Logger
}

func New() (*App, error) {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rootLog, err := logging.NewRoot(logging.Options{
		FilePath:       cfg.Logging.FilePath,
		MaxSizeMB:      cfg.Logging.MaxSizeMB,
		RetentionDays:  cfg.Logging.RetentionDays,
		MaxBackupFiles: cfg.Logging.MaxBackupFiles,
		Level:          cfg.Logging.Level,
	})
	if err != nil {
		return nil, err
	}
	return newApp(cfg, rootLog, clock.New(), os.Stdout)
}

func newApp(cfg config.Config, rootLog *logging.Logger, clk clock.Clock, out io.Writer) (*App, error) {
	ctl, err := process.NewController(process.Options{
		Signal: cfg.Termination.Signal,
		Clock:  clk,
		Logger: rootLog.Module("process"),
	})
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:        cfg,
		ctl:        ctl,
		clk:        clk,
		out:        out,
		log:        rootLog.Module("app"),
		runLog:     rootLog.Module("run"),
		stopLog:    rootLog.Module("stop"),
		serviceLog: rootLog.Module("service"),
		pruneLog:   rootLog.Module("prune"),
	}, nil
}

func (a *App) Run(args []string) {
	defer func() { _ = a.log.Sync() }()
	if err := a.Execute(args); err != nil {
		a.log.Fatalf("command failed: %v", err)
	}
}

func (a *App) Execute(args []string) error {
	if err := a.validateConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cmd := a.newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	if err := cmd.Execute(); err != nil {
		return err
	}
	return nil
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "procterm",
		Short:         "Run commands and stop them gracefully",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	grace := a.cfg.Termination.Grace

	runCmd := &cobra.Command{
		Use:   "run [flags] -- <cmd> [args...]",
		Short: "Start a command and track it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{}
			opts.name, _ = cmd.Flags().GetString("name")
			opts.group, _ = cmd.Flags().GetBool("group")
			opts.after, _ = cmd.Flags().GetDuration("after")
			var err error
			if opts.grace, err = graceFlag(cmd); err != nil {
				return err
			}
			return a.runCommand(cmd.Context(), opts, args)
		},
	}
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().String("name", "", "Registry name, defaults to <cmd>-<pid>")
	runCmd.Flags().Bool("group", a.cfg.Termination.Group, "Start the command in its own process group")
	runCmd.Flags().Duration("after", 0, "Request termination after this long")
	runCmd.Flags().String("grace", grace, "Time to wait for a graceful exit before killing")
	root.AddCommand(runCmd)

	stopCmd := &cobra.Command{
		Use:   "stop <name|pid>...",
		Short: "Terminate tracked or arbitrary processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := stopOptions{}
			opts.group, _ = cmd.Flags().GetBool("group")
			opts.wait, _ = cmd.Flags().GetBool("wait")
			var err error
			if opts.grace, err = graceFlag(cmd); err != nil {
				return err
			}
			return a.stopTargets(cmd.Context(), args, opts)
		},
	}
	stopCmd.Flags().String("grace", grace, "Time to wait for a graceful exit before killing")
	stopCmd.Flags().Bool("group", a.cfg.Termination.Group, "Signal the whole process group")
	stopCmd.Flags().Bool("wait", true, "Wait for the exit and kill after the grace period")
	root.AddCommand(stopCmd)

	root.AddCommand(&cobra.Command{Use: "ls", Aliases: []string{"list"}, Short: "List tracked processes", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return a.listEntries()
	}})

	root.AddCommand(&cobra.Command{Use: "prune", Short: "Forget exited processes and stale locks", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.prune(); err != nil {
			return err
		}
		a.pruneLog.Okf("prune completed")
		return nil
	}})

	serviceCmd := &cobra.Command{Use: "service", Short: "Manage the OS service for the configured command"}
	for _, action := range []string{"install", "uninstall", "start", "stop", "status", "run"} {
		action := action
		serviceCmd.AddCommand(&cobra.Command{Use: action, Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
			return a.serviceAction(action)
		}})
	}
	root.AddCommand(serviceCmd)

	root.AddCommand(&cobra.Command{Use: "version", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(a.out, version.Version)
		return err
	}})

	return root
}

func graceFlag(cmd *cobra.Command) (time.Duration, error) {
	raw, _ := cmd.Flags().GetString("grace")
	d, err := config.Termination{Grace: raw}.GraceDuration()
	if err != nil {
		return 0, fmt.Errorf("--grace: %w", err)
	}
	return d, nil
}

func (a *App) validateConfig() error {
	return a.cfg.Validate()
}

func (a *App) pollInterval() time.Duration {
	d, err := a.cfg.Termination.PollDuration()
	if err != nil {
		return 0
	}
	return d
}

func (a *App) registryStore() *registry.Store {
	return registry.New(filepath.Join(strings.TrimSpace(a.cfg.DataHome), "processes.json"))
}

func (a *App) lockDir() string {
	return filepath.Join(strings.TrimSpace(a.cfg.DataHome), "locks")
}

// withRegistry runs fn while holding the registry lock.
func (a *App) withRegistry(fn func(*registry.Store) error) error {
	lock, err := instance.AcquireLock(context.Background(), a.lockDir(), registryLock, a.cfg.Termination.LockTimeout(), process.IsAlive)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn(a.registryStore())
}
