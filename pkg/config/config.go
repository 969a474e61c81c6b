package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

// FileNames are the accepted config file names, checked in this order in
// every directory during discovery.
var FileNames = []string{"hostsolo.yaml", "hostsolo.yml"}

const (
	DefaultDataDir        = "./data"
	DefaultDNSProvider    = "dnsimple"
	DefaultBackupProvider = "s3"
	DefaultBackupSchedule = "0 */6 * * *"
	DefaultTag            = "latest"
)

// Config represents hostsolo.yaml
type Config struct {
	Domain       string                      `yaml:"domain" validate:"required"`
	Email        string                      `yaml:"email" validate:"required"` // Let's Encrypt account
	DataDir      string                      `yaml:"data_dir"`
	DNS          DNSConfig                   `yaml:"dns"`
	Backup       BackupConfig                `yaml:"backup"`
	Environments OrderedMap[EnvironmentSpec] `yaml:"environments"`
	Apps         OrderedMap[AppSpec]         `yaml:"apps,omitempty"`
}

// DNSConfig selects the DNS provider
type DNSConfig struct {
	Provider string `yaml:"provider" validate:"oneof=dnsimple hetzner none"`
}

// BackupConfig defines where and how often backups are stored
type BackupConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=s3"`
	Bucket      string `yaml:"bucket"`
	EndpointURL string `yaml:"endpoint_url,omitempty"` // S3-compatible providers (MinIO, B2)
	Schedule    string `yaml:"schedule" validate:"cronspec"`
}

// EnvironmentSpec maps an environment to a subdomain. An empty subdomain
// means the root domain.
type EnvironmentSpec struct {
	Subdomain string `yaml:"subdomain" validate:"omitempty,hostname_rfc1123"`
}

// AppSpec describes one deployable service.
type AppSpec struct {
	Image           string             `yaml:"image" validate:"required"`
	Tag             string             `yaml:"tag" validate:"required"`
	Ports           []string           `yaml:"ports,omitempty"`
	Volumes         []string           `yaml:"volumes,omitempty"`     // "source:target", source may contain ${ENV}
	Environment     OrderedMap[string] `yaml:"environment,omitempty"` // values may contain ${VAR}
	BackupPaths     []string           `yaml:"backup_paths,omitempty"`
	HealthcheckPath string             `yaml:"healthcheck_path,omitempty"`
	Replicas        int                `yaml:"replicas" validate:"min=1"`
}

func (a *AppSpec) setDefaults() {
	a.Tag = DefaultTag
	a.Replicas = 1
}

// Clone returns a deep copy of the app spec.
func (a AppSpec) Clone() AppSpec {
	out := a
	out.Ports = append([]string(nil), a.Ports...)
	out.Volumes = append([]string(nil), a.Volumes...)
	out.BackupPaths = append([]string(nil), a.BackupPaths...)
	out.Environment = a.Environment.Clone()
	return out
}

// WithTag returns a copy of the app spec using the given image tag. The
// receiver is left untouched.
func (a AppSpec) WithTag(tag string) AppSpec {
	out := a.Clone()
	if tag != "" {
		out.Tag = tag
	}
	return out
}

// DefaultEnvironments returns the environments used when none are configured.
func DefaultEnvironments() OrderedMap[EnvironmentSpec] {
	var envs OrderedMap[EnvironmentSpec]
	envs.Set("dev", EnvironmentSpec{Subdomain: "dev"})
	envs.Set("staging", EnvironmentSpec{Subdomain: "staging"})
	envs.Set("prod", EnvironmentSpec{Subdomain: ""})
	return envs
}

// FindConfigPath walks from start up through its parents and returns the
// first hostsolo.yaml or hostsolo.yml found.
func FindConfigPath(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", &errdefs.NotFoundError{
		Kind: "hostsolo.yaml",
		Hint: "Run 'hostsolo init' to create one",
	}
}

// ProjectRoot returns the directory containing the config file.
func ProjectRoot(configPath string) string {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return filepath.Dir(configPath)
	}
	return filepath.Dir(abs)
}

// Load reads, normalizes and validates the config at path. An empty path
// triggers discovery from the current working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path, err = FindConfigPath(wd)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdefs.NotFound("config file", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes config YAML, then runs the normalization and validation passes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errdefs.ValidationError{Message: "failed to parse config", Err: err}
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize fills in defaults that apply to the document as a whole.
func (c *Config) Normalize() {
	c.Domain = strings.TrimSpace(c.Domain)
	c.Email = strings.TrimSpace(c.Email)

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DNS.Provider == "" {
		c.DNS.Provider = DefaultDNSProvider
	}
	if c.Backup.Provider == "" {
		c.Backup.Provider = DefaultBackupProvider
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = DefaultBackupSchedule
	}
	if c.Environments.Len() == 0 {
		c.Environments = DefaultEnvironments()
	}
}

// FullDomain returns the fully qualified domain for an environment.
func FullDomain(c *Config, envName string) (string, error) {
	env, ok := c.Environments.Get(envName)
	if !ok {
		return "", errdefs.NotFound("environment", envName)
	}
	if env.Subdomain == "" {
		return c.Domain, nil
	}
	return env.Subdomain + "." + c.Domain, nil
}

// App returns the named app or a NotFoundError.
func (c *Config) App(name string) (AppSpec, error) {
	app, ok := c.Apps.Get(name)
	if !ok {
		return AppSpec{}, errdefs.NotFound("app", name)
	}
	return app, nil
}

// Environment returns the named environment or a NotFoundError.
func (c *Config) Environment(name string) (EnvironmentSpec, error) {
	env, ok := c.Environments.Get(name)
	if !ok {
		return EnvironmentSpec{}, errdefs.NotFound("environment", name)
	}
	return env, nil
}

// RecordName returns the DNS record name for an environment, "@" for the apex.
func (e EnvironmentSpec) RecordName() string {
	if e.Subdomain == "" {
		return "@"
	}
	return e.Subdomain
}
