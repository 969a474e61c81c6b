package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

var allVars = []string{
	"DNSIMPLE_TOKEN", "DNSIMPLE_ACCOUNT_ID", "HETZNER_DNS_TOKEN",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION",
	"HOSTSOLO_AWS_REGION", "HOSTSOLO_DNSIMPLE_TOKEN",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DNSIMPLE_TOKEN", "tok")
	t.Setenv("DNSIMPLE_ACCOUNT_ID", "42")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "shh")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if s.DNSimpleToken != "tok" || s.DNSimpleAccountID != "42" {
		t.Errorf("unexpected DNSimple settings: %+v", s)
	}
	if s.AWSAccessKeyID != "AKIA" || s.AWSSecretAccessKey != "shh" {
		t.Errorf("unexpected AWS settings: %+v", s)
	}
	if s.AWSRegion != DefaultRegion {
		t.Errorf("AWSRegion = %q, want default %q", s.AWSRegion, DefaultRegion)
	}
}

func TestHostsoloPrefixWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("HOSTSOLO_AWS_REGION", "eu-central-1")
	t.Setenv("DNSIMPLE_TOKEN", "plain")
	t.Setenv("HOSTSOLO_DNSIMPLE_TOKEN", "override")

	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.AWSRegion != "eu-central-1" {
		t.Errorf("AWSRegion = %q, want eu-central-1", s.AWSRegion)
	}
	if s.DNSimpleToken != "override" {
		t.Errorf("DNSimpleToken = %q, want override", s.DNSimpleToken)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DNSIMPLE_ACCOUNT_ID", "from-env")
	root := t.TempDir()
	dotenv := "DNSIMPLE_TOKEN=from-file\nDNSIMPLE_ACCOUNT_ID=from-file\nHETZNER_DNS_TOKEN=\"quoted\"\n"
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte(dotenv), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.DNSimpleToken != "from-file" {
		t.Errorf("DNSimpleToken = %q, want from-file", s.DNSimpleToken)
	}
	if s.DNSimpleAccountID != "from-env" {
		t.Errorf("existing environment must win over .env, got %q", s.DNSimpleAccountID)
	}
	if s.HetznerDNSToken != "quoted" {
		t.Errorf("HetznerDNSToken = %q, want quoted", s.HetznerDNSToken)
	}
}

func TestLoadWithoutDotEnv(t *testing.T) {
	clearEnv(t)
	if _, err := Load(t.TempDir()); err != nil {
		t.Errorf("A missing .env must not be an error, got %v", err)
	}
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name        string
		settings    Settings
		check       func(*Settings) error
		wantMissing string
	}{
		{
			name:     "dnsimple complete",
			settings: Settings{DNSimpleToken: "t", DNSimpleAccountID: "1"},
			check:    (*Settings).RequireDNSimple,
		},
		{
			name:        "dnsimple missing account",
			settings:    Settings{DNSimpleToken: "t"},
			check:       (*Settings).RequireDNSimple,
			wantMissing: "DNSIMPLE_ACCOUNT_ID",
		},
		{
			name:        "hetzner missing token",
			check:       (*Settings).RequireHetzner,
			wantMissing: "HETZNER_DNS_TOKEN",
		},
		{
			name:     "s3 ignores dns fields",
			settings: Settings{AWSAccessKeyID: "a", AWSSecretAccessKey: "b", AWSRegion: "r"},
			check:    (*Settings).RequireS3,
		},
		{
			name:        "s3 missing secret",
			settings:    Settings{AWSAccessKeyID: "a", AWSRegion: "r"},
			check:       (*Settings).RequireS3,
			wantMissing: "AWS_SECRET_ACCESS_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(&tt.settings)
			if tt.wantMissing == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errdefs.IsValidation(err) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMissing) {
				t.Errorf("Expected %s in error, got %v", tt.wantMissing, err)
			}
		})
	}
}
