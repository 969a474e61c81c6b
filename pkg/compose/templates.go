package compose

// AppTemplate renders one app in one environment. Environment values are
// pre-formatted by formatValue; every other string goes through quote.
const AppTemplate = `# Generated by hostsolo for {{ .Service }} ({{ .Env }}). Changes are overwritten on the next deploy.
name: {{ .ProjectName }}

services:
  {{ key .Service }}:
    image: {{ quote .Image }}
{{- if .ContainerName }}
    container_name: {{ .ContainerName }}
{{- end }}
    restart: unless-stopped
    env_file:
{{- range .EnvFiles }}
      - {{ quote . }}
{{- end }}
{{- if .Environment }}
    environment:
{{- range .Environment }}
      {{ key .Key }}: {{ value .Value }}
{{- end }}
{{- end }}
{{- if .Expose }}
    expose:
{{- range .Expose }}
      - {{ quote . }}
{{- end }}
{{- end }}
{{- if .Ports }}
    ports:
{{- range .Ports }}
      - {{ quote . }}
{{- end }}
{{- end }}
{{- if .Volumes }}
    volumes:
{{- range .Volumes }}
      - {{ quote . }}
{{- end }}
{{- end }}
    labels:
{{- range .Labels }}
      - {{ quote . }}
{{- end }}
{{- if .Healthcheck }}
    healthcheck:
      test: ["CMD-SHELL", {{ quote .Healthcheck }}]
      interval: 30s
      timeout: 5s
      retries: 3
{{- end }}
{{- if gt .Replicas 1 }}
    deploy:
      replicas: {{ .Replicas }}
{{- end }}
    networks:
      - {{ .Network }}

networks:
  {{ .Network }}:
    external: true
`

// ProxyTemplate renders the Traefik service shared by every app.
const ProxyTemplate = `# Generated by hostsolo. Changes are overwritten by 'hostsolo proxy up'.
name: {{ .ContainerName }}

services:
  traefik:
    image: {{ quote .Image }}
    container_name: {{ .ContainerName }}
    restart: unless-stopped
    command:
{{- range .Command }}
      - {{ quote . }}
{{- end }}
    ports:
{{- range .Ports }}
      - {{ quote . }}
{{- end }}
    volumes:
{{- range .Volumes }}
      - {{ quote . }}
{{- end }}
    networks:
      - {{ .Network }}

networks:
  {{ .Network }}:
    external: true
`
