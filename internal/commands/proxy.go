package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/project"
)

func newProxyCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Manage the Traefik reverse proxy",
	}

	var local, detach bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Render and start the Traefik proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.proxyUp(cmd.Context(), local, detach)
		},
	}
	up.Flags().BoolVarP(&local, "local", "l", false, "run in local development mode")
	up.Flags().BoolVarP(&detach, "detach", "d", true, "run in the background")

	down := &cobra.Command{
		Use:   "down",
		Short: "Stop the Traefik proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.proxyAction(cmd.Context(), stopAction)
		},
	}

	restart := &cobra.Command{
		Use:   "restart",
		Short: "Restart the Traefik proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.proxyAction(cmd.Context(), restartAction)
		},
	}

	var follow bool
	var tail int
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Show Traefik logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.proxyFile()
			if err != nil {
				return err
			}
			return compose.Logs(cmd.Context(), a.Runner, file, tail, follow)
		},
	}
	logs.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	logs.Flags().IntVarP(&tail, "tail", "n", 100, "number of lines to show")

	cmd.AddCommand(up, down, restart, logs)
	return cmd
}

func (a *App) proxyUp(ctx context.Context, local, detach bool) error {
	ws, err := a.load()
	if err != nil {
		return err
	}

	mode := compose.ModeNormal
	if local {
		mode = compose.ModeLocal
	}

	content, err := compose.RenderProxy(compose.ProxyParams{Config: ws.cfg, Mode: mode})
	if err != nil {
		return err
	}

	layout := ws.layout
	if err := os.MkdirAll(layout.DynamicDir(), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", layout.DynamicDir(), err)
	}
	file := layout.ProxyComposeFile()
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}

	// Traefik refuses to use an acme.json readable by others.
	if !project.Exists(layout.AcmeFile()) {
		if err := os.WriteFile(layout.AcmeFile(), nil, 0600); err != nil {
			return fmt.Errorf("failed to create acme.json: %w", err)
		}
	}
	if err := os.Chmod(layout.AcmeFile(), 0600); err != nil {
		return fmt.Errorf("failed to set acme.json permissions: %w", err)
	}

	if err := a.ensureNetwork(ctx); err != nil {
		return err
	}

	a.logger().Infow("starting proxy", "mode", mode.String(), "file", file)
	a.println("🚀 Starting Traefik proxy...")

	args := []string{"up"}
	if detach {
		args = append(args, "-d")
	}
	if err := a.Runner.Run(ctx, file, args...); err != nil {
		return fmt.Errorf("failed to start Traefik: %w", err)
	}

	if local {
		a.println("✅ Traefik started in local mode")
		a.println("   Dashboard: http://localhost:8080")
	} else {
		a.println("✅ Traefik started")
		a.println("   SSL certificates will be obtained automatically")
	}
	return nil
}

func (a *App) proxyFile() (string, error) {
	ws, err := a.load()
	if err != nil {
		return "", err
	}
	file := ws.layout.ProxyComposeFile()
	if !project.Exists(file) {
		return "", &errdefs.NotFoundError{
			Kind: "Traefik proxy",
			Hint: "It is not configured yet. Run 'hostsolo proxy up'",
		}
	}
	return file, nil
}

// lifecycle is a compose action shared by the proxy and app commands.
type lifecycle struct {
	progress string
	verb     string
	done     string
	run      func(context.Context, compose.Runner, string) error
}

var (
	stopAction    = lifecycle{progress: "Stopping", verb: "stop", done: "stopped", run: compose.Down}
	restartAction = lifecycle{progress: "Restarting", verb: "restart", done: "restarted", run: compose.Restart}
)

func (a *App) proxyAction(ctx context.Context, action lifecycle) error {
	file, err := a.proxyFile()
	if err != nil {
		return err
	}

	a.printf("🔀 %s Traefik proxy...\n", action.progress)
	if err := action.run(ctx, a.Runner, file); err != nil {
		return fmt.Errorf("failed to %s Traefik: %w", action.verb, err)
	}
	a.logger().Infow("proxy "+action.done, "file", file)
	a.printf("✅ Traefik %s\n", action.done)
	return nil
}
