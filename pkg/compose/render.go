// Package compose renders docker compose documents for the proxy and for
// each app/environment pair, and drives the docker compose CLI.
package compose

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hostsolo/hostsolo/pkg/config"
	"github.com/hostsolo/hostsolo/pkg/envfile"
)

const (
	// Prefix namespaces every container and compose project hostsolo creates.
	Prefix = "hostsolo"
	// NetworkName is the external docker network shared by the proxy and apps.
	NetworkName = "hostsolo"
	// ProxyContainerName is the Traefik container.
	ProxyContainerName = Prefix + "-traefik"
	// ProxyImage is the Traefik image used by the proxy.
	ProxyImage = "traefik:v3.1"
	// CertResolver is the ACME resolver configured on the proxy.
	CertResolver = "letsencrypt"
)

// Mode selects production routing or plain-HTTP local development.
type Mode int

const (
	ModeNormal Mode = iota
	ModeLocal
)

func (m Mode) String() string {
	if m == ModeLocal {
		return "local"
	}
	return "normal"
}

// ContainerName returns the deterministic container name for an app.
func ContainerName(envName, appName string) string {
	return fmt.Sprintf("%s-%s-%s", Prefix, envName, appName)
}

var funcs = template.FuncMap{
	"quote": quote,
	"key":   formatKey,
	"value": formatValue,
}

var (
	appTmpl   = template.Must(template.New("app").Funcs(funcs).Parse(AppTemplate))
	proxyTmpl = template.Must(template.New("proxy").Funcs(funcs).Parse(ProxyTemplate))
)

// AppParams is the input to RenderApp. App must already have been passed
// through PrepareApp; the app and environment are assumed to exist.
type AppParams struct {
	Config      *config.Config
	AppName     string
	App         config.AppSpec
	EnvName     string
	Domain      string
	Mode        Mode
	ProjectRoot string
}

type envVar struct {
	Key   string
	Value string
}

type appData struct {
	ProjectName   string
	Service       string
	Env           string
	Image         string
	ContainerName string
	EnvFiles      []string
	Environment   []envVar
	Expose        []string
	Ports         []string
	Volumes       []string
	Labels        []string
	Healthcheck   string
	Replicas      int
	Network       string
}

// RenderApp renders the compose document for one app in one environment.
func RenderApp(p AppParams) (string, error) {
	name := ContainerName(p.EnvName, p.AppName)

	data := appData{
		ProjectName: name,
		Service:     p.AppName,
		Env:         p.EnvName,
		Image:       p.App.Image + ":" + p.App.Tag,
		Volumes:     p.App.Volumes,
		Replicas:    p.App.Replicas,
		Network:     NetworkName,
	}

	// A fixed container_name prevents compose from scaling the service.
	if data.Replicas <= 1 {
		data.ContainerName = name
	}

	configDir := filepath.Join(p.ProjectRoot, "config", p.AppName)
	data.EnvFiles = []string{
		filepath.Join(configDir, envfile.SharedFile),
		filepath.Join(configDir, envfile.EnvFileName(p.EnvName)),
	}

	for _, k := range p.App.Environment.Keys() {
		v, _ := p.App.Environment.Get(k)
		data.Environment = append(data.Environment, envVar{Key: k, Value: v})
	}

	for _, port := range p.App.Ports {
		if strings.Contains(port, ":") {
			data.Ports = append(data.Ports, port)
		} else {
			data.Expose = append(data.Expose, port)
		}
	}

	servicePort := ""
	if len(p.App.Ports) > 0 {
		servicePort = ContainerPort(p.App.Ports[0])
	}

	data.Labels = routingLabels(name, p.Domain, servicePort, p.Mode)

	if p.App.HealthcheckPath != "" {
		port := servicePort
		if port == "" {
			port = "80"
		}
		path := p.App.HealthcheckPath
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		data.Healthcheck = fmt.Sprintf("wget -qO- http://localhost:%s%s || exit 1", port, path)
	}

	var buf bytes.Buffer
	if err := appTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render compose file for %s: %w", p.AppName, err)
	}
	return buf.String(), nil
}

func routingLabels(router, domain, servicePort string, mode Mode) []string {
	prefix := "traefik.http.routers." + router
	labels := []string{
		"traefik.enable=true",
		"traefik.docker.network=" + NetworkName,
		fmt.Sprintf("%s.rule=Host(`%s`)", prefix, domain),
	}

	if mode == ModeLocal {
		labels = append(labels,
			prefix+".entrypoints=web",
			prefix+".tls=false",
		)
	} else {
		labels = append(labels,
			prefix+".entrypoints=websecure",
			prefix+".tls=true",
			prefix+".tls.certresolver="+CertResolver,
		)
	}

	if servicePort != "" {
		labels = append(labels, fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port=%s", router, servicePort))
	}
	return labels
}

// ContainerPort extracts the container side of a port spec:
// "8055" -> "8055", "8080:80" -> "80", "127.0.0.1:8080:80/tcp" -> "80".
func ContainerPort(spec string) string {
	if i := strings.LastIndex(spec, ":"); i >= 0 {
		spec = spec[i+1:]
	}
	if i := strings.Index(spec, "/"); i >= 0 {
		spec = spec[:i]
	}
	return spec
}

// ProxyParams is the input to RenderProxy.
type ProxyParams struct {
	Config *config.Config
	Mode   Mode
}

type proxyData struct {
	ContainerName string
	Image         string
	Command       []string
	Ports         []string
	Volumes       []string
	Network       string
}

// RenderProxy renders the Traefik compose document. Paths are relative to
// the traefik/ directory the file is written to.
func RenderProxy(p ProxyParams) (string, error) {
	data := proxyData{
		ContainerName: ProxyContainerName,
		Image:         ProxyImage,
		Network:       NetworkName,
		Command: []string{
			"--providers.docker=true",
			"--providers.docker.exposedbydefault=false",
			"--providers.docker.network=" + NetworkName,
			"--providers.file.directory=/etc/traefik/dynamic",
			"--providers.file.watch=true",
			"--entrypoints.web.address=:80",
		},
		Ports: []string{"80:80"},
		Volumes: []string{
			"/var/run/docker.sock:/var/run/docker.sock:ro",
			"./dynamic:/etc/traefik/dynamic:ro",
		},
	}

	if p.Mode == ModeLocal {
		data.Command = append(data.Command,
			"--api.dashboard=true",
			"--api.insecure=true",
			"--log.level=DEBUG",
		)
		data.Ports = append(data.Ports, "8080:8080")
	} else {
		data.Command = append(data.Command,
			"--entrypoints.websecure.address=:443",
			"--entrypoints.web.http.redirections.entrypoint.to=websecure",
			"--entrypoints.web.http.redirections.entrypoint.scheme=https",
			"--certificatesresolvers."+CertResolver+".acme.email="+p.Config.Email,
			"--certificatesresolvers."+CertResolver+".acme.storage=/acme.json",
			"--certificatesresolvers."+CertResolver+".acme.httpchallenge.entrypoint=web",
		)
		data.Ports = append(data.Ports, "443:443")
		data.Volumes = append(data.Volumes, "./acme.json:/acme.json")
	}

	var buf bytes.Buffer
	if err := proxyTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render proxy compose file: %w", err)
	}
	return buf.String(), nil
}
