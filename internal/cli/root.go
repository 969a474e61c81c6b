// Package cli provides the command-line interface for hostsolo.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/commands"
	"github.com/hostsolo/hostsolo/internal/logger"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/project"
)

// Version is set at build time via -ldflags
var Version = "dev"

// NewRootCmd builds the hostsolo command tree around app.
func NewRootCmd(app *commands.App) *cobra.Command {
	root := &cobra.Command{
		Use:   "hostsolo",
		Short: "hostsolo - a small self-hosted platform on one VPS",
		Long: `hostsolo runs a Traefik reverse proxy and Docker Compose apps across
named environments on a single server, and manages their DNS records
and S3 backups.

Everything is described in hostsolo.yaml at the project root.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.Log.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "config file path (default: discover hostsolo.yaml)")
	root.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "verbose output")
	root.SetVersionTemplate("hostsolo version {{.Version}}\n")

	commands.Register(root, app)
	return root
}

// setupLogger points the log file at the project of the config in use.
// Without a project only --verbose output is produced.
func setupLogger(app *commands.App) error {
	var dir string
	path := app.ConfigPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path, _ = config.FindConfigPath(wd)
		}
	}
	if path != "" && project.Exists(path) {
		dir = project.New(config.ProjectRoot(path)).LogDir()
	}

	log, err := logger.New(logger.Options{Dir: dir, Verbose: app.Verbose, Console: app.Err})
	if err != nil {
		// Log directory not writable: fall back to console only.
		log, err = logger.New(logger.Options{Verbose: app.Verbose, Console: app.Err})
		if err != nil {
			return err
		}
	}
	app.Log = log
	app.Log.Debugw("command started", "args", os.Args[1:], "version", app.Version)
	return nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp(Version)
	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		app.Log.Errorw("command failed", "error", err)
		_ = app.Log.Sync()
		fmt.Fprintf(os.Stderr, "❌ %s\n", err)
		stop()
		os.Exit(1)
	}
}
