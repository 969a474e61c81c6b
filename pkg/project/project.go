// Package project knows where hostsolo keeps things on disk relative to
// the directory holding hostsolo.yaml.
package project

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/hostsolo/hostsolo/pkg/envfile"
)

// ComposeFile is the name of every rendered compose document.
const ComposeFile = "docker-compose.yml"

// Layout resolves project paths.
type Layout struct {
	Root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{Root: root}
}

// AppDir is apps/{env}/{app}.
func (l Layout) AppDir(env, app string) string {
	return filepath.Join(l.Root, "apps", env, app)
}

// EnvAppsDir is apps/{env}.
func (l Layout) EnvAppsDir(env string) string {
	return filepath.Join(l.Root, "apps", env)
}

// AppComposeFile is apps/{env}/{app}/docker-compose.yml.
func (l Layout) AppComposeFile(env, app string) string {
	return filepath.Join(l.AppDir(env, app), ComposeFile)
}

// ProxyDir is traefik/.
func (l Layout) ProxyDir() string {
	return filepath.Join(l.Root, "traefik")
}

// ProxyComposeFile is traefik/docker-compose.yml.
func (l Layout) ProxyComposeFile() string {
	return filepath.Join(l.ProxyDir(), ComposeFile)
}

// AcmeFile stores Let's Encrypt certificates and must stay mode 0600.
func (l Layout) AcmeFile() string {
	return filepath.Join(l.ProxyDir(), "acme.json")
}

// DynamicDir holds Traefik file-provider configuration.
func (l Layout) DynamicDir() string {
	return filepath.Join(l.ProxyDir(), "dynamic")
}

// AppConfigDir is config/{app}.
func (l Layout) AppConfigDir(app string) string {
	return filepath.Join(l.Root, "config", app)
}

// SharedEnvFile is config/{app}/shared.env.
func (l Layout) SharedEnvFile(app string) string {
	return filepath.Join(l.AppConfigDir(app), envfile.SharedFile)
}

// EnvFile is config/{app}/{env}.env.
func (l Layout) EnvFile(app, env string) string {
	return filepath.Join(l.AppConfigDir(app), envfile.EnvFileName(env))
}

// DataDir is data/{env}/{app} below the configured data_dir.
func (l Layout) DataDir(dataDir, env, app string) string {
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(l.Root, dataDir)
	}
	return filepath.Join(dataDir, env, app)
}

// EnvDataDir is data/{env} below the configured data_dir.
func (l Layout) EnvDataDir(dataDir, env string) string {
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(l.Root, dataDir)
	}
	return filepath.Join(dataDir, env)
}

// DotEnvFile holds CLI credentials.
func (l Layout) DotEnvFile() string {
	return filepath.Join(l.Root, ".env")
}

// LogDir is where the CLI writes its own log file.
func (l Layout) LogDir() string {
	return filepath.Join(l.Root, ".hostsolo", "logs")
}

// Deployment is a rendered app found under apps/.
type Deployment struct {
	Env         string
	App         string
	ComposeFile string
}

// Deployments scans apps/{env}/{app}/docker-compose.yml, sorted by
// environment then app. A missing apps/ directory yields no deployments.
func (l Layout) Deployments() ([]Deployment, error) {
	appsDir := filepath.Join(l.Root, "apps")
	envEntries, err := os.ReadDir(appsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Deployment
	for _, envEntry := range envEntries {
		if !envEntry.IsDir() {
			continue
		}
		appEntries, err := os.ReadDir(filepath.Join(appsDir, envEntry.Name()))
		if err != nil {
			return nil, err
		}
		for _, appEntry := range appEntries {
			if !appEntry.IsDir() {
				continue
			}
			file := l.AppComposeFile(envEntry.Name(), appEntry.Name())
			if _, err := os.Stat(file); err != nil {
				continue
			}
			out = append(out, Deployment{Env: envEntry.Name(), App: appEntry.Name(), ComposeFile: file})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Env != out[j].Env {
			return out[i].Env < out[j].Env
		}
		return out[i].App < out[j].App
	})
	return out, nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
