package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/ui"
	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/project"
)

func newEnvCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.envList()
		},
	}

	var subdomain string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Add an environment to hostsolo.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub := subdomain
			if !cmd.Flags().Changed("subdomain") {
				sub = args[0]
			}
			return a.envCreate(args[0], sub)
		},
	}
	create.Flags().StringVarP(&subdomain, "subdomain", "s", "", "subdomain (defaults to the name, empty for the root domain)")

	var removeData, force bool
	destroy := &cobra.Command{
		Use:   "destroy NAME",
		Short: "Stop an environment's apps and remove its rendered files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.envDestroy(cmd.Context(), args[0], removeData, force)
		},
	}
	destroy.Flags().BoolVar(&removeData, "remove-data", false, "also remove the data directory")
	destroy.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	cmd.AddCommand(list, create, destroy)
	return cmd
}

func (a *App) envList() error {
	ws, err := a.load()
	if err != nil {
		return err
	}

	a.printf("🌍 Environments (%d)\n", ws.cfg.Environments.Len())
	a.println()

	table := ui.NewTable("ENVIRONMENT", "SUBDOMAIN", "FULL DOMAIN")
	for _, name := range ws.cfg.Environments.Keys() {
		env, _ := ws.cfg.Environments.Get(name)
		sub := env.Subdomain
		if sub == "" {
			sub = "(root)"
		}
		domain, _ := config.FullDomain(ws.cfg, name)
		table.Row(name, sub, domain)
	}
	table.Print(a.Out)
	return nil
}

func (a *App) envCreate(name, subdomain string) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}

	// Validate the result before touching the file.
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cfg.Environments.Has(name) {
		return errdefs.Invalid("environments", fmt.Sprintf("environment '%s' already exists", name))
	}
	cfg.Environments.Set(name, config.EnvironmentSpec{Subdomain: subdomain})
	if err := cfg.Validate(); err != nil {
		return err
	}

	doc, err := config.LoadDocument(path)
	if err != nil {
		return err
	}
	if err := doc.AddEnvironment(name, subdomain); err != nil {
		return err
	}
	if err := doc.Save(); err != nil {
		return err
	}

	a.logger().Infow("environment created", "name", name, "subdomain", subdomain)
	domain, _ := config.FullDomain(cfg, name)
	a.printf("✅ Created environment: %s\n", name)
	if subdomain == "" {
		a.println("   Subdomain: (root)")
	} else {
		a.printf("   Subdomain: %s\n", subdomain)
	}
	a.printf("   Domain:    %s\n", domain)
	return nil
}

func (a *App) envDestroy(ctx context.Context, name string, removeData, force bool) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	if _, err := ws.cfg.Environment(name); err != nil {
		return err
	}

	if name == DefaultEnv && !force {
		if !a.confirm("⚠️  You are about to destroy the production environment. Are you sure?") {
			a.println("\n✅ Destroy cancelled - your environment is safe!")
			return nil
		}
	}

	appsDir := ws.layout.EnvAppsDir(name)
	if project.Exists(appsDir) {
		a.printf("🛑 Stopping apps in %s...\n", name)
		deployments, err := ws.layout.Deployments()
		if err != nil {
			return err
		}
		for _, d := range deployments {
			if d.Env != name {
				continue
			}
			a.printf("   Stopping %s...\n", d.App)
			if err := compose.Down(ctx, a.Runner, d.ComposeFile); err != nil {
				a.warnf("Failed to stop %s: %s", d.App, err)
				a.logger().Warnw("compose down failed", "env", name, "app", d.App, "error", err)
			}
		}
		if err := os.RemoveAll(appsDir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", appsDir, err)
		}
		a.println("✅ Removed app configurations")
	}

	if removeData {
		dataDir := ws.layout.EnvDataDir(ws.cfg.DataDir, name)
		switch {
		case !project.Exists(dataDir):
		case !force && !a.confirm(fmt.Sprintf("⚠️  Delete all data in %s?", dataDir)):
			a.println("   Keeping data directory")
		default:
			if err := os.RemoveAll(dataDir); err != nil {
				return fmt.Errorf("failed to remove %s: %w", dataDir, err)
			}
			a.println("✅ Removed data directory")
		}
	}

	a.logger().Infow("environment destroyed", "name", name, "remove_data", removeData)
	a.printf("✅ Environment '%s' destroyed\n", name)
	a.println()
	a.println("💡 The environment is still in hostsolo.yaml. Remove it manually if no longer needed.")
	return nil
}
