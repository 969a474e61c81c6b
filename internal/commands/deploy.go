package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/envfile"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/project"
)

// DefaultEnv is the environment used when --env is not given.
const DefaultEnv = "prod"

type deployOptions struct {
	env   string
	tag   string
	local bool
	pull  bool
}

func newDeployCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy applications",
	}

	var opts deployOptions
	up := &cobra.Command{
		Use:   "up APP",
		Short: "Render and start an app in an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deployUp(cmd.Context(), args[0], opts)
		},
	}
	up.Flags().StringVarP(&opts.env, "env", "e", DefaultEnv, "target environment")
	up.Flags().StringVarP(&opts.tag, "tag", "t", "", "image tag to deploy (overrides hostsolo.yaml)")
	up.Flags().BoolVarP(&opts.local, "local", "l", false, "deploy in local mode (HTTP only)")
	up.Flags().BoolVar(&opts.pull, "pull", true, "pull the image before starting")

	var stopEnv string
	stop := &cobra.Command{
		Use:   "stop APP",
		Short: "Stop a deployed app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.appAction(cmd.Context(), args[0], stopEnv, stopAction)
		},
	}
	stop.Flags().StringVarP(&stopEnv, "env", "e", DefaultEnv, "target environment")

	var restartEnv string
	restart := &cobra.Command{
		Use:   "restart APP",
		Short: "Restart a deployed app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.appAction(cmd.Context(), args[0], restartEnv, restartAction)
		},
	}
	restart.Flags().StringVarP(&restartEnv, "env", "e", DefaultEnv, "target environment")

	var logsEnv string
	var follow bool
	var tail int
	logs := &cobra.Command{
		Use:   "logs APP",
		Short: "Show app logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := a.deployedFile(args[0], logsEnv)
			if err != nil {
				return err
			}
			return compose.Logs(cmd.Context(), a.Runner, file, tail, follow)
		},
	}
	logs.Flags().StringVarP(&logsEnv, "env", "e", DefaultEnv, "target environment")
	logs.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	logs.Flags().IntVarP(&tail, "tail", "n", 100, "number of lines to show")

	cmd.AddCommand(up, stop, restart, logs)
	return cmd
}

// checkEnvFiles reports missing env files with the commands to create them.
func (a *App) checkEnvFiles(layout project.Layout, app, env string) error {
	dir := layout.AppConfigDir(app)
	if !project.Exists(dir) {
		a.printf("❌ Missing config/%s/ directory\n", app)
		a.println("   Run 'hostsolo init' or create the directory manually")
		a.printf("   Then copy config/%s/env.example to shared.env and %s\n", app, envfile.EnvFileName(env))
		return errdefs.NotFound("config directory", "config/"+app)
	}

	var missing []string
	for _, path := range []string{layout.SharedEnvFile(app), layout.EnvFile(app, env)} {
		if !project.Exists(path) {
			missing = append(missing, "config/"+app+"/"+filepath.Base(path))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	a.println("❌ Missing environment files:")
	for _, f := range missing {
		a.printf("   - %s\n", f)
	}
	a.println()
	a.println("💡 Create them from the example:")
	hasExample := project.Exists(filepath.Join(dir, envfile.ExampleFile))
	for _, f := range missing {
		if hasExample {
			a.printf("   cp config/%s/%s %s\n", app, envfile.ExampleFile, f)
		} else {
			a.printf("   touch %s\n", f)
		}
	}
	return errdefs.NotFound("environment files", strings.Join(missing, ", "))
}

// renderApp writes apps/{env}/{app}/docker-compose.yml and returns its path.
func (a *App) renderApp(ws *workspace, appName, envName, tag string, mode compose.Mode) (string, error) {
	spec, err := ws.cfg.App(appName)
	if err != nil {
		return "", err
	}
	domain, err := config.FullDomain(ws.cfg, envName)
	if err != nil {
		return "", err
	}

	layout := ws.layout
	if err := os.MkdirAll(layout.AppDir(envName, appName), 0755); err != nil {
		return "", fmt.Errorf("failed to create app directory: %w", err)
	}
	if err := os.MkdirAll(layout.DataDir(ws.cfg.DataDir, envName, appName), 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	vars, err := envfile.LoadLayered(layout.AppConfigDir(appName), envName)
	if err != nil {
		return "", err
	}
	prepared := compose.PrepareApp(spec.WithTag(tag), envName, layout.Root, vars)

	content, err := compose.RenderApp(compose.AppParams{
		Config:      ws.cfg,
		AppName:     appName,
		App:         prepared,
		EnvName:     envName,
		Domain:      domain,
		Mode:        mode,
		ProjectRoot: layout.Root,
	})
	if err != nil {
		return "", err
	}

	file := layout.AppComposeFile(envName, appName)
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}
	a.logger().Debugw("compose file rendered", "app", appName, "env", envName, "file", file, "image", prepared.Image+":"+prepared.Tag)
	return file, nil
}

func (a *App) deployUp(ctx context.Context, appName string, opts deployOptions) error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	if _, err := ws.cfg.App(appName); err != nil {
		return err
	}
	domain, err := config.FullDomain(ws.cfg, opts.env)
	if err != nil {
		return err
	}
	if err := a.checkEnvFiles(ws.layout, appName, opts.env); err != nil {
		return err
	}

	a.printf("🚀 Deploying %s to %s...\n", appName, opts.env)
	a.printf("   Domain: %s\n", domain)
	if opts.tag != "" {
		a.printf("   Tag:    %s\n", opts.tag)
	}

	mode := compose.ModeNormal
	if opts.local {
		mode = compose.ModeLocal
	}
	file, err := a.renderApp(ws, appName, opts.env, opts.tag, mode)
	if err != nil {
		return err
	}

	if err := a.ensureNetwork(ctx); err != nil {
		return err
	}

	if opts.pull {
		a.println("   Pulling image...")
		if err := compose.Pull(ctx, a.Runner, file); err != nil {
			// Not fatal: up falls back to a locally cached image.
			a.warnf("Pull failed, using local image: %s", err)
			a.logger().Warnw("pull failed", "app", appName, "env", opts.env, "error", err)
		}
	}

	a.logger().Infow("deploying app", "app", appName, "env", opts.env, "mode", mode.String(), "tag", opts.tag)
	if err := compose.Up(ctx, a.Runner, file); err != nil {
		return fmt.Errorf("failed to deploy %s: %w", appName, err)
	}

	scheme := "https"
	if opts.local {
		scheme = "http"
	}
	a.printf("✅ %s deployed to %s\n", appName, opts.env)
	a.printf("   URL: %s://%s\n", scheme, domain)
	return nil
}

func (a *App) deployedFile(appName, envName string) (string, error) {
	ws, err := a.load()
	if err != nil {
		return "", err
	}
	file := ws.layout.AppComposeFile(envName, appName)
	if !project.Exists(file) {
		return "", &errdefs.NotFoundError{
			Kind: "deployment",
			Name: appName,
			Hint: fmt.Sprintf("%s is not deployed in %s", appName, envName),
		}
	}
	return file, nil
}

func (a *App) appAction(ctx context.Context, appName, envName string, action lifecycle) error {
	file, err := a.deployedFile(appName, envName)
	if err != nil {
		return err
	}

	a.printf("📦 %s %s in %s...\n", action.progress, appName, envName)
	if err := action.run(ctx, a.Runner, file); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action.verb, appName, err)
	}
	a.logger().Infow("app "+action.done, "app", appName, "env", envName)
	a.printf("✅ %s %s\n", appName, action.done)
	return nil
}
