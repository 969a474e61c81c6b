package commands

import (
	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/internal/ui"
	"github.com/hostsolo/hostsolo/pkg/config"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect hostsolo.yaml and credentials",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configPathCmd()
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate hostsolo.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configValidate()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the config with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configShow()
		},
	}

	credentials := &cobra.Command{
		Use:   "credentials",
		Short: "Show which provider credentials are set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.configCredentials()
		},
	}

	cmd.AddCommand(path, validate, show, credentials)
	return cmd
}

func (a *App) configPathCmd() error {
	path, err := a.configPath()
	if err != nil {
		a.println("No config file found.")
		a.println()
		a.println("Searched for hostsolo.yaml and hostsolo.yml in the current directory and its parents.")
		a.println()
		a.println("💡 Create one with: hostsolo init")
		return err
	}
	a.printf("Config file: %s\n", path)
	a.printf("Project root: %s\n", config.ProjectRoot(path))
	return nil
}

func (a *App) configValidate() error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	a.printf("✅ %s is valid\n", ws.path)
	a.printf("   Domain:       %s\n", ws.cfg.Domain)
	a.printf("   Environments: %d\n", ws.cfg.Environments.Len())
	a.printf("   Apps:         %d\n", ws.cfg.Apps.Len())
	a.printf("   DNS:          %s\n", ws.cfg.DNS.Provider)
	a.printf("   Backup:       %s (%s)\n", ws.cfg.Backup.Provider, ws.cfg.Backup.Schedule)
	return nil
}

func (a *App) configShow() error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	data, err := config.Marshal(ws.cfg)
	if err != nil {
		return err
	}
	_, err = a.Out.Write(data)
	return err
}

func (a *App) configCredentials() error {
	ws, err := a.load()
	if err != nil {
		return err
	}
	s, err := a.loadSettings(ws.layout.Root)
	if err != nil {
		return err
	}

	a.println("🔐 Credentials")
	a.println(ui.Divider)
	a.println()

	a.printf("🌐 DNS (%s):\n", ws.cfg.DNS.Provider)
	printCredential(a, "DNSIMPLE_TOKEN", s.DNSimpleToken, true)
	printCredential(a, "DNSIMPLE_ACCOUNT_ID", s.DNSimpleAccountID, false)
	printCredential(a, "HETZNER_DNS_TOKEN", s.HetznerDNSToken, true)
	a.println()

	a.printf("💾 Backup (%s):\n", ws.cfg.Backup.Provider)
	printCredential(a, "AWS_ACCESS_KEY_ID", s.AWSAccessKeyID, true)
	printCredential(a, "AWS_SECRET_ACCESS_KEY", s.AWSSecretAccessKey, true)
	printCredential(a, "AWS_REGION", s.AWSRegion, false)
	a.println()

	a.println("💡 Set values in .env or the environment (HOSTSOLO_ prefixed names take precedence)")
	return nil
}

func printCredential(a *App, key, value string, secret bool) {
	if value == "" {
		a.printf("   %-22s (not set)\n", key)
		return
	}
	if secret {
		value = MaskToken(value)
	}
	a.printf("   %-22s %s\n", key, value)
}

// MaskToken hides all but the first and last four characters of a secret.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
