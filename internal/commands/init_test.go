package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/updater"
)

func newInitEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.root = t.TempDir()
	env.app.ConfigPath = filepath.Join(env.root, "hostsolo.yaml")
	return env
}

func TestInitCreatesProject(t *testing.T) {
	env := newInitEnv(t)

	if err := env.run("init", "--domain", "example.com", "--email", "me@example.com"); err != nil {
		t.Fatalf("init: %v", err)
	}

	cfg, err := config.Load(env.path("hostsolo.yaml"))
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Domain != "example.com" || cfg.Email != "me@example.com" {
		t.Errorf("domain/email = %q/%q", cfg.Domain, cfg.Email)
	}
	directus, err := cfg.App("directus")
	if err != nil {
		t.Fatalf("sample app missing: %v", err)
	}
	if directus.Tag != "10.10.5" {
		t.Errorf("directus tag = %q, want 10.10.5", directus.Tag)
	}
	if got := strings.Join(cfg.Environments.Keys(), ","); got != "dev,staging,prod" {
		t.Errorf("environments = %s", got)
	}

	for _, rel := range []string{".env.example", "data", "config/directus/env.example", ".gitignore"} {
		if _, err := os.Stat(env.path(rel)); err != nil {
			t.Errorf("%s not created: %v", rel, err)
		}
	}

	gitignore := env.read(t, ".gitignore")
	for _, want := range []string{".env", "acme.json", "config/*/*.env", "!config/*/env.example"} {
		if !strings.Contains(gitignore, want) {
			t.Errorf(".gitignore missing %q", want)
		}
	}
	if !strings.Contains(env.out.String(), "Next steps") {
		t.Errorf("output missing next steps:\n%s", env.out.String())
	}
}

func TestInitAppendsToExistingGitignore(t *testing.T) {
	env := newInitEnv(t)
	env.write(t, ".gitignore", "node_modules/\n")

	if err := env.run("init", "--domain", "example.com", "--email", "me@example.com"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := env.run("init", "--domain", "example.com", "--email", "me@example.com", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}

	gitignore := env.read(t, ".gitignore")
	if !strings.HasPrefix(gitignore, "node_modules/\n") {
		t.Errorf("existing entries lost:\n%s", gitignore)
	}
	if n := strings.Count(gitignore, "config/*/*.env"); n != 1 {
		t.Errorf("env exclusion appended %d times, want 1", n)
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	env := newInitEnv(t)
	env.write(t, "hostsolo.yaml", testConfig)

	err := env.run("init", "--domain", "other.io", "--email", "me@other.io")
	if !errdefs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := env.read(t, "hostsolo.yaml"); got != testConfig {
		t.Error("existing config was modified")
	}
}

func TestInitDeclinedOverwriteKeepsConfig(t *testing.T) {
	env := newInitEnv(t)
	env.write(t, "hostsolo.yaml", testConfig)
	env.app.Interactive = func() bool { return true }
	env.input("no\n")

	if err := env.run("init", "--domain", "other.io", "--email", "me@other.io"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := env.read(t, "hostsolo.yaml"); got != testConfig {
		t.Error("existing config was modified")
	}
	if !strings.Contains(env.out.String(), "Init cancelled") {
		t.Errorf("output = %s", env.out.String())
	}
}

func TestInitPromptsForMissingValues(t *testing.T) {
	env := newInitEnv(t)
	env.app.Interactive = func() bool { return true }
	env.input("prompted.io\nops@prompted.io\n")

	if err := env.run("init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.Load(env.path("hostsolo.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != "prompted.io" || cfg.Email != "ops@prompted.io" {
		t.Errorf("domain/email = %q/%q", cfg.Domain, cfg.Email)
	}
}

func TestInitRequiresValuesWhenNotInteractive(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{name: "no domain", args: []string{"init", "--email", "me@example.com"}, field: "domain"},
		{name: "no email", args: []string{"init", "--domain", "example.com"}, field: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newInitEnv(t)
			err := env.run(tt.args...)
			if !errdefs.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tt.field+":") {
				t.Errorf("error = %q, want field %s", err, tt.field)
			}
			if _, statErr := os.Stat(env.path("hostsolo.yaml")); !os.IsNotExist(statErr) {
				t.Error("config written despite error")
			}
		})
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run("version"); err != nil {
		t.Fatal(err)
	}
	if got := env.out.String(); got != "hostsolo version test\n" {
		t.Errorf("output = %q", got)
	}
}

func TestVersionCheck(t *testing.T) {
	tests := []struct {
		name string
		info updater.UpdateInfo
		want string
	}{
		{
			name: "up to date",
			info: updater.UpdateInfo{LatestVersion: "0.4.0"},
			want: "Up to date (latest release: 0.4.0)",
		},
		{
			name: "update available",
			info: updater.UpdateInfo{LatestVersion: "0.5.0", Available: true, UpdateURL: "https://example.com/r", DownloadURL: "https://example.com/bin"},
			want: "hostsolo 0.5.0 is available: https://example.com/r\n   Download: https://example.com/bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.app.CheckUpdate = func(ctx context.Context, current string) (*updater.UpdateInfo, error) {
				if current != "test" {
					t.Errorf("current = %q", current)
				}
				info := tt.info
				return &info, nil
			}
			if err := env.run("version", "--check"); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(env.out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, env.out.String())
			}
		})
	}
}
