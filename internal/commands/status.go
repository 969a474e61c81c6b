package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/ui"
	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/project"
)

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show proxy, app and environment status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd.Context())
		},
	}
}

func (a *App) runStatus(ctx context.Context) error {
	ws, err := a.load()
	if err != nil {
		return err
	}

	a.println("🏠 hostsolo status")
	a.println(ui.Divider)
	a.println()
	a.printf("   Domain:   %s\n", ws.cfg.Domain)
	a.printf("   Docker:   %s\n", a.dockerStatus(ctx))
	a.println()

	a.println("🔀 Proxy (Traefik):")
	a.printProxyStatus(ctx, ws.layout)
	a.println()

	a.println("📦 Applications:")
	if err := a.printAppTable(ctx, ws); err != nil {
		return err
	}
	a.println()

	a.println("🌍 Environments:")
	for _, name := range ws.cfg.Environments.Keys() {
		domain, _ := config.FullDomain(ws.cfg, name)
		a.printf("   %-10s %s\n", name, domain)
	}
	a.println()

	if runs, err := ws.cfg.NextBackupRuns(a.now(), 1); err == nil && len(runs) > 0 {
		a.printf("💾 Next backup: %s (%s)\n", runs[0].Format("2006-01-02 15:04"), ws.cfg.Backup.Schedule)
	}
	return nil
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) dockerStatus(ctx context.Context) string {
	if a.Docker == nil {
		return "❓ unknown"
	}
	engine, err := a.Docker()
	if err != nil {
		a.logger().Debugw("docker client unavailable", "error", err)
		return "❌ unavailable"
	}
	defer engine.Close()

	info, err := engine.Ping(ctx)
	if err != nil {
		a.logger().Debugw("docker ping failed", "error", err)
		return "❌ not reachable"
	}
	return "✅ API " + info.APIVersion + " (" + info.OSType + ")"
}

func (a *App) printProxyStatus(ctx context.Context, layout project.Layout) {
	file := layout.ProxyComposeFile()
	if !project.Exists(file) {
		a.println("   ⏹️  Not configured")
		return
	}

	containers, err := compose.Containers(ctx, a.Runner, file)
	if err != nil {
		a.logger().Debugw("proxy ps failed", "error", err)
		a.println("   ⚠️  Unable to read status")
		return
	}
	if len(containers) == 0 {
		a.println("   ⏹️  Not running")
		return
	}
	for _, c := range containers {
		icon := ui.StatusIcon(compose.StateStopped)
		if c.Running() {
			icon = ui.StatusIcon(compose.StateRunning)
		}
		a.printf("   %s %s: %s\n", icon, c.Name, c.State)
	}
}

func (a *App) printAppTable(ctx context.Context, ws *workspace) error {
	deployments, err := ws.layout.Deployments()
	if err != nil {
		return err
	}
	if len(deployments) == 0 {
		a.println("   No apps deployed")
		return nil
	}

	table := ui.NewTable("ENVIRONMENT", "APP", "STATUS", "DOMAIN")
	for _, d := range deployments {
		state := "unknown"
		if containers, err := compose.Containers(ctx, a.Runner, d.ComposeFile); err == nil {
			state = compose.Summarize(containers)
		} else {
			a.logger().Debugw("app ps failed", "env", d.Env, "app", d.App, "error", err)
		}

		domain, err := config.FullDomain(ws.cfg, d.Env)
		if err != nil {
			domain = "-"
		}
		table.Row(d.Env, d.App, ui.StatusIcon(state)+" "+state, domain)
	}
	table.Print(a.Out)
	return nil
}
