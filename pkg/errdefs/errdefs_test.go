package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		validation bool
		external   bool
	}{
		{
			name:     "not found",
			err:      fmt.Errorf("load: %w", NotFound("environment", "qa")),
			notFound: true,
		},
		{
			name:       "validation",
			err:        fmt.Errorf("load: %w", Invalid("domain", "is required")),
			validation: true,
		},
		{
			name:     "external",
			err:      fmt.Errorf("deploy: %w", &ExternalError{Op: "docker compose up", ExitCode: 1, Err: errors.New("boom")}),
			external: true,
		},
		{
			name: "plain",
			err:  errors.New("plain"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation() = %v, want %v", got, tt.validation)
			}
			if got := IsExternal(tt.err); got != tt.external {
				t.Errorf("IsExternal() = %v, want %v", got, tt.external)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NotFound("app", "web"), "app 'web' not found"},
		{&NotFoundError{Kind: "config file", Hint: "Run 'hostsolo init' to create one"}, "config file not found. Run 'hostsolo init' to create one"},
		{Invalid("email", "is required"), "email: is required"},
		{&ValidationError{Message: "failed to parse config", Err: errors.New("bad indent")}, "failed to parse config: bad indent"},
		{&ExternalError{Op: "list records", Status: 401, Err: errors.New("unauthorized")}, "list records: status 401: unauthorized"},
		{&ExternalError{Op: "docker compose down", ExitCode: 2, Err: errors.New("exit status 2")}, "docker compose down: exit code 2: exit status 2"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
