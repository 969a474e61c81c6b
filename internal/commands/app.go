// Package commands provides the command handlers for the CLI.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hostsolo/hostsolo/internal/logger"
	"github.com/hostsolo/hostsolo/pkg/backup"
	"github.com/hostsolo/hostsolo/pkg/backup/s3"
	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/dns"
	"github.com/hostsolo/hostsolo/pkg/dns/dnsimple"
	"github.com/hostsolo/hostsolo/pkg/dns/hetzner"
	"github.com/hostsolo/hostsolo/pkg/dns/none"
	"github.com/hostsolo/hostsolo/pkg/docker"
	"github.com/hostsolo/hostsolo/pkg/httputil"
	"github.com/hostsolo/hostsolo/pkg/project"
	"github.com/hostsolo/hostsolo/pkg/settings"
	"github.com/hostsolo/hostsolo/pkg/updater"
)

// ProviderTimeout bounds single DNS and backup API calls. Backup transfers
// are not bounded.
const ProviderTimeout = 30 * time.Second

// Engine is the part of the docker engine the commands need.
type Engine interface {
	Ping(ctx context.Context) (docker.Info, error)
	EnsureNetwork(ctx context.Context, name string) (bool, error)
	Close() error
}

// Verifier checks DNS propagation.
type Verifier interface {
	Verify(ctx context.Context, hostname, expectedIP string) *dns.VerificationResult
}

// App carries everything a command needs. Fields are replaced in tests.
type App struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader

	// Interactive reports whether prompts can be shown.
	Interactive func() bool

	ConfigPath string
	Verbose    bool
	Log        *zap.SugaredLogger

	Runner   compose.Runner
	Docker   func() (Engine, error)
	DNS      func(cfg *config.Config, s *settings.Settings) (dns.Provider, error)
	Backup   func(cfg *config.Config, s *settings.Settings) (backup.Provider, error)
	Settings func(projectRoot string) (*settings.Settings, error)
	PublicIP func(ctx context.Context) (string, error)
	Verifier Verifier
	Now      func() time.Time

	Version     string
	CheckUpdate func(ctx context.Context, current string) (*updater.UpdateInfo, error)

	stdin *bufio.Reader
}

// NewApp returns an App wired to the real collaborators.
func NewApp(version string) *App {
	return &App{
		Out: os.Stdout,
		Err: os.Stderr,
		In:  os.Stdin,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		Log:    logger.Nop(),
		Runner: compose.NewCLI(),
		Docker: func() (Engine, error) {
			c, err := docker.New()
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		DNS:      NewDNSProvider,
		Backup:   NewBackupProvider,
		Settings: settings.Load,
		PublicIP: httputil.DetectPublicIP,
		Verifier: dns.NewVerifier(),
		Now:      time.Now,
		Version:  version,
		CheckUpdate: func(ctx context.Context, current string) (*updater.UpdateInfo, error) {
			return updater.NewUpdater(current).CheckForUpdate(ctx)
		},
	}
}

// Register adds every hostsolo subcommand to root.
func Register(root *cobra.Command, a *App) {
	root.AddCommand(
		newInitCmd(a),
		newVersionCmd(a),
		newStatusCmd(a),
		newProxyCmd(a),
		newDeployCmd(a),
		newDNSCmd(a),
		newBackupCmd(a),
		newEnvCmd(a),
		newConfigCmd(a),
	)
}

// workspace is a loaded config plus where it lives.
type workspace struct {
	cfg    *config.Config
	path   string
	layout project.Layout
}

func (a *App) configPath() (string, error) {
	if a.ConfigPath != "" {
		return a.ConfigPath, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.FindConfigPath(wd)
}

func (a *App) load() (*workspace, error) {
	path, err := a.configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger().Debugw("config loaded", "path", path, "apps", cfg.Apps.Len(), "environments", cfg.Environments.Len())
	return &workspace{
		cfg:    cfg,
		path:   path,
		layout: project.New(config.ProjectRoot(path)),
	}, nil
}

func (a *App) logger() *zap.SugaredLogger {
	if a.Log == nil {
		return logger.Nop()
	}
	return a.Log
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.Out, args...)
}

func (a *App) warnf(format string, args ...any) {
	fmt.Fprintf(a.Out, "⚠️  "+format+"\n", args...)
}

func (a *App) readLine() string {
	if a.stdin == nil {
		in := a.In
		if in == nil {
			in = os.Stdin
		}
		a.stdin = bufio.NewReader(in)
	}
	line, _ := a.stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm asks the user to type "yes". Anything else declines.
func (a *App) confirm(question string) bool {
	a.printf("%s\n", question)
	a.printf("Type 'yes' to confirm: ")
	return a.readLine() == "yes"
}

// prompt asks for a value, returning def when the answer is empty.
func (a *App) prompt(label, def string) string {
	if def != "" {
		a.printf("%s [%s]: ", label, def)
	} else {
		a.printf("%s: ", label)
	}
	if answer := a.readLine(); answer != "" {
		return answer
	}
	return def
}

func (a *App) loadSettings(root string) (*settings.Settings, error) {
	load := a.Settings
	if load == nil {
		load = settings.Load
	}
	return load(root)
}

func (a *App) dnsProvider(ws *workspace) (dns.Provider, error) {
	s, err := a.loadSettings(ws.layout.Root)
	if err != nil {
		return nil, err
	}
	p, err := a.DNS(ws.cfg, s)
	if err != nil {
		return nil, err
	}
	a.logger().Debugw("dns provider ready", "provider", ws.cfg.DNS.Provider)
	return p, nil
}

func (a *App) backupProvider(ws *workspace) (backup.Provider, error) {
	s, err := a.loadSettings(ws.layout.Root)
	if err != nil {
		return nil, err
	}
	p, err := a.Backup(ws.cfg, s)
	if err != nil {
		return nil, err
	}
	a.logger().Debugw("backup provider ready", "provider", ws.cfg.Backup.Provider, "bucket", ws.cfg.Backup.Bucket)
	return p, nil
}

// ensureNetwork creates the shared proxy network when it is missing.
func (a *App) ensureNetwork(ctx context.Context) error {
	engine, err := a.Docker()
	if err != nil {
		return err
	}
	defer engine.Close()

	created, err := engine.EnsureNetwork(ctx, compose.NetworkName)
	if err != nil {
		return fmt.Errorf("failed to ensure network %s: %w", compose.NetworkName, err)
	}
	if created {
		a.printf("✅ Created docker network %s\n", compose.NetworkName)
		a.logger().Infow("network created", "network", compose.NetworkName)
	}
	return nil
}

// NewDNSProvider creates the DNS provider selected in the config.
func NewDNSProvider(cfg *config.Config, s *settings.Settings) (dns.Provider, error) {
	switch cfg.DNS.Provider {
	case "dnsimple":
		if err := s.RequireDNSimple(); err != nil {
			return nil, err
		}
		p, err := dnsimple.NewProvider(s.DNSimpleToken, s.DNSimpleAccountID)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "hetzner":
		if err := s.RequireHetzner(); err != nil {
			return nil, err
		}
		p, err := hetzner.NewProvider(s.HetznerDNSToken, "")
		if err != nil {
			return nil, err
		}
		return p, nil
	case "none":
		return none.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported DNS provider: %s", cfg.DNS.Provider)
	}
}

// NewBackupProvider creates the backup provider selected in the config.
func NewBackupProvider(cfg *config.Config, s *settings.Settings) (backup.Provider, error) {
	switch cfg.Backup.Provider {
	case "s3":
		if err := s.RequireS3(); err != nil {
			return nil, err
		}
		p, err := s3.NewProvider(s3.Config{
			Bucket:          cfg.Backup.Bucket,
			Region:          s.AWSRegion,
			Endpoint:        cfg.Backup.EndpointURL,
			AccessKeyID:     s.AWSAccessKeyID,
			SecretAccessKey: s.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported backup provider: %s", cfg.Backup.Provider)
	}
}

func newVersionCmd(a *App) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("hostsolo version %s\n", a.Version)
			if !check {
				return nil
			}
			return a.checkUpdate(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

func (a *App) checkUpdate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	defer cancel()

	info, err := a.CheckUpdate(ctx, a.Version)
	if err != nil {
		return err
	}
	if !info.Available {
		a.printf("✅ Up to date (latest release: %s)\n", info.LatestVersion)
		return nil
	}
	a.printf("💡 hostsolo %s is available: %s\n", info.LatestVersion, info.UpdateURL)
	if info.DownloadURL != "" {
		a.printf("   Download: %s\n", info.DownloadURL)
	}
	return nil
}
