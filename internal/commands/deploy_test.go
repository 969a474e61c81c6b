package commands

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/hostsolo/hostsolo/pkg/compose"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
	"github.com/hostsolo/hostsolo/pkg/project"
)

func writeEnvFiles(t *testing.T, env *testEnv, envName string) {
	t.Helper()
	env.write(t, "config/web/shared.env", "DB_HOST=db\n")
	env.write(t, "config/web/"+envName+".env", "# nothing yet\n")
}

func TestDeployUp(t *testing.T) {
	env := newTestEnv(t)
	writeEnvFiles(t, env, "prod")

	if err := env.run("deploy", "up", "web"); err != nil {
		t.Fatalf("deploy up: %v", err)
	}

	file := env.path("apps", "prod", "web", "docker-compose.yml")
	want := []string{"pull", "up -d --remove-orphans"}
	if got := env.runner.commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("compose calls = %v, want %v", got, want)
	}
	for _, c := range env.runner.calls {
		if c.file != file {
			t.Errorf("compose called with %s, want %s", c.file, file)
		}
	}
	if !reflect.DeepEqual(env.engine.networks, []string{compose.NetworkName}) {
		t.Errorf("networks = %v", env.engine.networks)
	}

	rendered := env.read(t, "apps/prod/web/docker-compose.yml")
	for _, want := range []string{"nginx:latest", "postgres://db/app", env.path("data", "prod", "web"), "x.io"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("compose file missing %q:\n%s", want, rendered)
		}
	}
	if !project.Exists(env.path("data", "prod", "web")) {
		t.Error("data directory not created")
	}

	out := env.out.String()
	for _, want := range []string{"Created docker network", "URL: https://x.io"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDeployUpLocalWithTag(t *testing.T) {
	env := newTestEnv(t)
	writeEnvFiles(t, env, "staging")
	env.engine.networks = []string{compose.NetworkName}

	err := env.run("deploy", "up", "web", "-e", "staging", "-t", "1.2", "--local", "--pull=false")
	if err != nil {
		t.Fatalf("deploy up: %v", err)
	}

	if got := env.runner.commands(); !reflect.DeepEqual(got, []string{"up -d --remove-orphans"}) {
		t.Errorf("compose calls = %v", got)
	}
	if rendered := env.read(t, "apps/staging/web/docker-compose.yml"); !strings.Contains(rendered, "nginx:1.2") {
		t.Errorf("tag override not rendered:\n%s", rendered)
	}
	if strings.Contains(env.read(t, "hostsolo.yaml"), "1.2") {
		t.Error("tag override written to hostsolo.yaml")
	}

	out := env.out.String()
	if !strings.Contains(out, "URL: http://staging.x.io") {
		t.Errorf("output missing local URL:\n%s", out)
	}
	if strings.Contains(out, "Created docker network") {
		t.Error("existing network reported as created")
	}
}

func TestDeployUpPullFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	writeEnvFiles(t, env, "prod")
	env.runner.fail = map[string]error{"pull": errBoom}

	if err := env.run("deploy", "up", "web"); err != nil {
		t.Fatalf("deploy up: %v", err)
	}
	if !strings.Contains(env.out.String(), "Pull failed") {
		t.Errorf("no pull warning:\n%s", env.out.String())
	}
}

func TestDeployUpComposeFailure(t *testing.T) {
	env := newTestEnv(t)
	writeEnvFiles(t, env, "prod")
	env.runner.fail = map[string]error{"up": errBoom}

	err := env.run("deploy", "up", "web", "--pull=false")
	if err == nil || !strings.Contains(err.Error(), "failed to deploy web") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeployUpMissingEnvFiles(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv)
		want  []string
	}{
		{
			name:  "no config directory",
			setup: func(t *testing.T, env *testEnv) {},
			want:  []string{"Missing config/web/ directory"},
		},
		{
			name: "example present",
			setup: func(t *testing.T, env *testEnv) {
				env.write(t, "config/web/env.example", "# KEY=value\n")
			},
			want: []string{
				"cp config/web/env.example config/web/shared.env",
				"cp config/web/env.example config/web/prod.env",
			},
		},
		{
			name: "only env file missing",
			setup: func(t *testing.T, env *testEnv) {
				env.write(t, "config/web/shared.env", "")
			},
			want: []string{"touch config/web/prod.env"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(t, env)

			err := env.run("deploy", "up", "web")
			if !errdefs.IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
			out := env.out.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if len(env.runner.calls) != 0 {
				t.Errorf("compose called: %v", env.runner.commands())
			}
			if project.Exists(env.path("apps")) {
				t.Error("apps directory created")
			}
		})
	}
}

func TestDeployUnknownTargets(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "app", args: []string{"deploy", "up", "api"}},
		{name: "environment", args: []string{"deploy", "up", "web", "-e", "qa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			writeEnvFiles(t, env, "prod")
			if err := env.run(tt.args...); !errdefs.IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestDeployLifecycle(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"deploy", "stop", "web"}, want: "down"},
		{args: []string{"deploy", "restart", "web"}, want: "restart"},
		{args: []string{"deploy", "logs", "web", "-n", "5"}, want: "logs --tail=5"},
		{args: []string{"deploy", "logs", "web", "-f"}, want: "logs --tail=100 -f"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args[1:], " "), func(t *testing.T) {
			env := newTestEnv(t)
			env.write(t, "apps/prod/web/docker-compose.yml", "services: {}\n")

			if err := env.run(tt.args...); err != nil {
				t.Fatal(err)
			}
			if got := env.runner.commands(); !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("compose calls = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestDeployStopNotDeployed(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("deploy", "stop", "web", "-e", "staging")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "web is not deployed in staging") {
		t.Errorf("error = %q", err)
	}
	if len(env.runner.calls) != 0 {
		t.Errorf("compose called: %v", env.runner.commands())
	}
}

func TestProxyUp(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
		out  string
	}{
		{name: "default", args: []string{"proxy", "up"}, want: "up -d", out: "SSL certificates"},
		{name: "local", args: []string{"proxy", "up", "--local"}, want: "up -d", out: "Dashboard: http://localhost:8080"},
		{name: "foreground", args: []string{"proxy", "up", "--detach=false"}, want: "up", out: "Traefik started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			layout := project.New(env.root)

			if err := env.run(tt.args...); err != nil {
				t.Fatal(err)
			}
			if !project.Exists(layout.ProxyComposeFile()) {
				t.Error("proxy compose file not written")
			}
			if !project.Exists(layout.DynamicDir()) {
				t.Error("dynamic config directory not created")
			}
			info, err := os.Stat(layout.AcmeFile())
			if err != nil {
				t.Fatalf("acme.json: %v", err)
			}
			if perm := info.Mode().Perm(); perm != 0600 {
				t.Errorf("acme.json mode = %o, want 600", perm)
			}
			if got := env.runner.commands(); !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("compose calls = %v, want [%s]", got, tt.want)
			}
			if !strings.Contains(env.out.String(), tt.out) {
				t.Errorf("output missing %q:\n%s", tt.out, env.out.String())
			}
		})
	}
}

func TestProxyUpTightensAcmePermissions(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "traefik/acme.json", "{}")
	if err := os.Chmod(env.path("traefik", "acme.json"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := env.run("proxy", "up"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(env.path("traefik", "acme.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("acme.json mode = %o, want 600", perm)
	}
	if got := env.read(t, "traefik/acme.json"); got != "{}" {
		t.Errorf("acme.json contents replaced: %q", got)
	}
}

func TestProxyActionsNeedProxy(t *testing.T) {
	for _, action := range []string{"down", "restart", "logs"} {
		t.Run(action, func(t *testing.T) {
			env := newTestEnv(t)
			err := env.run("proxy", action)
			if !errdefs.IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
			if !strings.Contains(err.Error(), "not configured yet") {
				t.Errorf("error = %q", err)
			}
		})
	}
}

func TestProxyDown(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "traefik/docker-compose.yml", "services: {}\n")

	if err := env.run("proxy", "down"); err != nil {
		t.Fatal(err)
	}
	if got := env.runner.commands(); !reflect.DeepEqual(got, []string{"down"}) {
		t.Errorf("compose calls = %v", got)
	}
	if !strings.Contains(env.out.String(), "Traefik stopped") {
		t.Errorf("output = %s", env.out.String())
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "traefik/docker-compose.yml", "services: {}\n")
	env.write(t, "apps/prod/web/docker-compose.yml", "services: {}\n")
	env.write(t, "apps/staging/web/docker-compose.yml", "services: {}\n")

	env.runner.ps[env.path("traefik", "docker-compose.yml")] = `{"Name":"traefik","State":"running"}`
	env.runner.ps[env.path("apps", "prod", "web", "docker-compose.yml")] = `[{"Name":"prod-web-1","State":"running"},{"Name":"prod-web-2","State":"exited"}]`

	if err := env.run("status"); err != nil {
		t.Fatal(err)
	}

	out := env.out.String()
	for _, want := range []string{
		"Domain:   x.io",
		"API 1.45 (linux)",
		"traefik: running",
		"ENVIRONMENT",
		"partial",
		"stopped",
		"staging.x.io",
		"Next backup: 2026-03-14 12:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithoutDeployments(t *testing.T) {
	env := newTestEnv(t)
	env.engine.pingErr = errBoom

	if err := env.run("status"); err != nil {
		t.Fatal(err)
	}
	out := env.out.String()
	for _, want := range []string{"not reachable", "Not configured", "No apps deployed"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}
