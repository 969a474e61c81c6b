package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/envfile"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/project"
)

const dotEnvExample = `# hostsolo CLI credentials
# Copy this to .env and fill in your credentials

# DNS provider (DNSimple)
HOSTSOLO_DNSIMPLE_TOKEN=your-dnsimple-token
HOSTSOLO_DNSIMPLE_ACCOUNT_ID=your-account-id

# DNS provider (Hetzner), when dns.provider is hetzner
# HETZNER_DNS_TOKEN=your-hetzner-dns-token

# Backup provider (S3-compatible)
AWS_ACCESS_KEY_ID=your-access-key
AWS_SECRET_ACCESS_KEY=your-secret-key
AWS_REGION=us-east-1

# For S3-compatible providers like Backblaze B2 or MinIO set
# backup.endpoint_url in hostsolo.yaml
`

const appEnvExample = `# Environment variables for %s
# Copy this file to shared.env, dev.env, staging.env and prod.env
# shared.env: values shared across all environments
# {env}.env: environment-specific values (override shared)

# KEY=your-secret-key
# ADMIN_PASSWORD=change-me
`

const gitignoreMarker = "config/*/*.env"

const gitignoreConfigBlock = `# App config (secrets): keep env.example, exclude actual env files
config/*/*.env
!config/*/env.example
`

const gitignoreContent = `# hostsolo
.env
data/
*.log
acme.json
.hostsolo/

` + gitignoreConfigBlock

type initOptions struct {
	domain string
	email  string
	force  bool
}

func newInitCmd(a *App) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new hostsolo project",
		Long: `Create hostsolo.yaml with a sample app, plus .env.example, data/,
config/<app>/env.example and .gitignore in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(opts)
		},
	}

	cmd.Flags().StringVar(&opts.domain, "domain", "", "your domain name")
	cmd.Flags().StringVar(&opts.email, "email", "", "email for Let's Encrypt certificates")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing hostsolo.yaml")

	return cmd
}

// SampleConfig is the config written by init.
func SampleConfig(domain, email string) *config.Config {
	cfg := &config.Config{
		Domain:  domain,
		Email:   email,
		DataDir: config.DefaultDataDir,
		DNS:     config.DNSConfig{Provider: config.DefaultDNSProvider},
		Backup: config.BackupConfig{
			Provider: config.DefaultBackupProvider,
			Bucket:   "my-backups",
			Schedule: config.DefaultBackupSchedule,
		},
		Environments: config.DefaultEnvironments(),
	}

	directus := config.AppSpec{
		Image: "directus/directus",
		Tag:   "10.10.5",
		Ports: []string{"8055"},
		Volumes: []string{
			"./data/${ENV}/directus/database:/directus/database",
			"./data/${ENV}/directus/uploads:/directus/uploads",
		},
		BackupPaths: []string{"./data/${ENV}/directus/database"},
		Replicas:    1,
	}
	directus.Environment.Set("DB_CLIENT", "sqlite3")
	directus.Environment.Set("DB_FILENAME", "/directus/database/data.db")
	cfg.Apps.Set("directus", directus)

	return cfg
}

func (a *App) runInit(opts initOptions) error {
	configPath := a.ConfigPath
	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(wd, config.FileNames[0])
	}
	layout := project.New(filepath.Dir(configPath))
	interactive := a.Interactive != nil && a.Interactive()

	if project.Exists(configPath) && !opts.force {
		if !interactive {
			return errdefs.Invalid("hostsolo.yaml", "already exists. Use --force to overwrite")
		}
		if !a.confirm(fmt.Sprintf("⚠️  %s already exists. Overwrite?", filepath.Base(configPath))) {
			a.println("\n✅ Init cancelled - existing config kept")
			return nil
		}
	}

	if opts.domain == "" && interactive {
		opts.domain = a.prompt("Enter your domain", "")
	}
	if opts.email == "" && interactive {
		opts.email = a.prompt("Enter your email (for Let's Encrypt)", "")
	}
	if strings.TrimSpace(opts.domain) == "" {
		return errdefs.Invalid("domain", "is required (pass --domain)")
	}
	if strings.TrimSpace(opts.email) == "" {
		return errdefs.Invalid("email", "is required (pass --email)")
	}

	cfg := SampleConfig(opts.domain, opts.email)
	if err := os.MkdirAll(layout.Root, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := config.Save(cfg, configPath); err != nil {
		return err
	}
	a.printf("✅ Created %s\n", filepath.Base(configPath))

	if err := os.WriteFile(filepath.Join(layout.Root, ".env.example"), []byte(dotEnvExample), 0644); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}
	a.println("✅ Created .env.example")

	if err := os.MkdirAll(filepath.Join(layout.Root, "data"), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	a.println("✅ Created data/ directory")

	for _, name := range cfg.Apps.Keys() {
		dir := layout.AppConfigDir(name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		example := filepath.Join(dir, envfile.ExampleFile)
		if err := os.WriteFile(example, []byte(fmt.Sprintf(appEnvExample, name)), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", example, err)
		}
		a.printf("✅ Created config/%s/ directory\n", name)
	}

	if err := writeGitignore(filepath.Join(layout.Root, ".gitignore")); err != nil {
		return err
	}
	a.println("✅ Created/updated .gitignore")

	a.logger().Infow("project initialized", "path", configPath, "domain", opts.domain)

	a.println()
	a.println("💡 Next steps:")
	a.println("   1. Copy .env.example to .env and fill in DNS/backup credentials")
	a.println("   2. For each app, set up environment configs:")
	a.println("      cp config/<app>/env.example config/<app>/shared.env")
	a.println("      cp config/<app>/env.example config/<app>/prod.env")
	a.println("   3. Edit hostsolo.yaml to customize your apps")
	a.println("   4. Run 'hostsolo proxy up' to start Traefik")
	a.println("   5. Run 'hostsolo deploy up <app> --env <env>' to deploy")
	return nil
}

// writeGitignore creates .gitignore, or appends the env file exclusion to
// an existing one that lacks it.
func writeGitignore(path string) error {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(gitignoreContent), 0644); err != nil {
			return fmt.Errorf("failed to write .gitignore: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read .gitignore: %w", err)
	}
	if strings.Contains(string(existing), gitignoreMarker) {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("\n" + gitignoreConfigBlock); err != nil {
		return fmt.Errorf("failed to update .gitignore: %w", err)
	}
	return nil
}
