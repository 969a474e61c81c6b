// Package settings loads the credentials hostsolo needs for external
// services. Values come from the process environment, optionally seeded
// from a .env file next to hostsolo.yaml.
//
// Precedence, lowest first:
//
//  1. .env at the project root (never overrides variables already set)
//  2. AWS_* variables (aws_access_key_id, aws_region, ...)
//  3. HOSTSOLO_* variables (HOSTSOLO_AWS_REGION overrides AWS_REGION)
//
// The DNS tokens are read without a prefix (DNSIMPLE_TOKEN,
// DNSIMPLE_ACCOUNT_ID, HETZNER_DNS_TOKEN) because that is how the
// providers document them.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	koanf "github.com/knadh/koanf/v2"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

// DefaultRegion is used when no AWS region is configured.
const DefaultRegion = "us-east-1"

// Settings holds credentials for the DNS and backup providers.
type Settings struct {
	DNSimpleToken     string `koanf:"dnsimple_token" env:"DNSIMPLE_TOKEN" validate:"required"`
	DNSimpleAccountID string `koanf:"dnsimple_account_id" env:"DNSIMPLE_ACCOUNT_ID" validate:"required"`
	HetznerDNSToken   string `koanf:"hetzner_dns_token" env:"HETZNER_DNS_TOKEN" validate:"required"`

	AWSAccessKeyID     string `koanf:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID" validate:"required"`
	AWSSecretAccessKey string `koanf:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY" validate:"required"`
	AWSRegion          string `koanf:"aws_region" env:"AWS_REGION" validate:"required"`
}

// prefixes are loaded in order; later ones win.
var prefixes = []string{"DNSIMPLE_", "HETZNER_", "AWS_", "HOSTSOLO_"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report missing fields by their environment variable name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}

// Load reads projectRoot/.env when present, then overlays the environment.
// An empty projectRoot skips the .env file.
func Load(projectRoot string) (*Settings, error) {
	if projectRoot != "" {
		dotenv := filepath.Join(projectRoot, ".env")
		if _, err := os.Stat(dotenv); err == nil {
			if err := godotenv.Load(dotenv); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
			}
		}
	}

	k := koanf.New(".")
	for _, prefix := range prefixes {
		strip := prefix == "HOSTSOLO_"
		p := prefix
		if err := k.Load(env.Provider(p, ".", func(s string) string {
			if strip {
				s = strings.TrimPrefix(s, p)
			}
			return strings.ToLower(s)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to read %s* environment: %w", prefix, err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if s.AWSRegion == "" {
		s.AWSRegion = DefaultRegion
	}
	return &s, nil
}

// RequireDNSimple checks the DNSimple credentials are present.
func (s *Settings) RequireDNSimple() error {
	return s.require("DNSimple", "DNSimpleToken", "DNSimpleAccountID")
}

// RequireHetzner checks the Hetzner Cloud API token is present.
func (s *Settings) RequireHetzner() error {
	return s.require("Hetzner DNS", "HetznerDNSToken")
}

// RequireS3 checks the S3 credentials are present.
func (s *Settings) RequireS3() error {
	return s.require("S3", "AWSAccessKeyID", "AWSSecretAccessKey", "AWSRegion")
}

func (s *Settings) require(service string, fields ...string) error {
	err := validate.StructPartial(s, fields...)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &errdefs.ValidationError{
		Field:   strings.Join(missing, ", "),
		Message: fmt.Sprintf("%s credentials missing. Set them in the environment or in .env", service),
	}
}
