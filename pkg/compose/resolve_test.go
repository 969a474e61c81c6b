package compose

import (
	"testing"

	"github.com/hostsolo/hostsolo/pkg/config"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		vars  map[string]string
		want  string
	}{
		{
			name:  "all known",
			value: "postgres://${H}:${P}/${N}",
			vars:  map[string]string{"H": "localhost", "P": "5432", "N": "db"},
			want:  "postgres://localhost:5432/db",
		},
		{
			name:  "missing kept verbatim",
			value: "${MISSING}",
			vars:  map[string]string{},
			want:  "${MISSING}",
		},
		{
			name:  "mixed",
			value: "${A}-${B}",
			vars:  map[string]string{"A": "1"},
			want:  "1-${B}",
		},
		{
			name:  "unicode name",
			value: "${DÉBUT}/${名前_2}",
			vars:  map[string]string{"DÉBUT": "start", "名前_2": "name"},
			want:  "start/name",
		},
		{
			name:  "punctuation is not a name",
			value: "${A-B}",
			vars:  map[string]string{"A-B": "x"},
			want:  "${A-B}",
		},
		{
			name:  "bare dollar untouched",
			value: "$A and ${}",
			vars:  map[string]string{"A": "1"},
			want:  "$A and ${}",
		},
		{
			name:  "nil vars",
			value: "${A}",
			want:  "${A}",
		},
		{
			name:  "value containing reference is not expanded again",
			value: "${A}",
			vars:  map[string]string{"A": "${B}", "B": "2"},
			want:  "${B}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.value, tt.vars); got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolveVolume(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"./data/${ENV}/app:/data", "/root/data/prod/app:/data"},
		{"/var/lib/${ENV}:/data", "/var/lib/prod:/data"},
		{"named:/data", "named:/data"},
		{"./data/app:/data:ro", "/root/data/app:/data:ro"},
		{"./only", "/root/only"},
		{"../up:/data", "../up:/data"},
	}

	for _, tt := range tests {
		if got := ResolveVolume(tt.template, "prod", "/root"); got != tt.want {
			t.Errorf("ResolveVolume(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestResolveBackupPath(t *testing.T) {
	if got := ResolveBackupPath("./data/${ENV}/uploads/${ENV}", "dev"); got != "./data/dev/uploads/dev" {
		t.Errorf("got %q", got)
	}
}

func TestPrepareAppLeavesSourceUntouched(t *testing.T) {
	app := config.AppSpec{
		Image:   "nginx",
		Tag:     "1",
		Volumes: []string{"./data/${ENV}:/data"},
	}
	app.Environment.Set("DB_URL", "postgres://${DB_HOST}/app")
	app.Environment.Set("PLAIN", "x")

	out := PrepareApp(app, "dev", "/srv", map[string]string{"DB_HOST": "db"})

	if out.Volumes[0] != "/srv/data/dev:/data" {
		t.Errorf("volume = %q", out.Volumes[0])
	}
	if v, _ := out.Environment.Get("DB_URL"); v != "postgres://db/app" {
		t.Errorf("DB_URL = %q", v)
	}
	if keys := out.Environment.Keys(); len(keys) != 2 || keys[0] != "DB_URL" || keys[1] != "PLAIN" {
		t.Errorf("keys = %v", keys)
	}

	if app.Volumes[0] != "./data/${ENV}:/data" {
		t.Errorf("source volumes mutated: %v", app.Volumes)
	}
	if v, _ := app.Environment.Get("DB_URL"); v != "postgres://${DB_HOST}/app" {
		t.Errorf("source environment mutated: %q", v)
	}
}
