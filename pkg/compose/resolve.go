package compose

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hostsolo/hostsolo/pkg/config"
)

// EnvPlaceholder is the only token recognized in volume and backup path templates.
const EnvPlaceholder = "${ENV}"

// Names are letters, digits and underscores in any script.
var varPattern = regexp.MustCompile(`\$\{([\p{L}\p{N}_]+)\}`)

// Interpolate replaces ${NAME} references with values from vars. Unknown
// references are left exactly as written so docker compose can still
// resolve them from its own environment.
func Interpolate(value string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// ResolveVolume substitutes ${ENV} and turns a "./" relative source into an
// absolute path under projectRoot. Named volumes and absolute paths pass
// through unchanged.
func ResolveVolume(template, envName, projectRoot string) string {
	v := strings.ReplaceAll(template, EnvPlaceholder, envName)

	source, target, hasTarget := strings.Cut(v, ":")
	if strings.HasPrefix(source, "./") {
		source = filepath.Join(projectRoot, source[2:])
	}

	if !hasTarget {
		return source
	}
	return source + ":" + target
}

// ResolveBackupPath substitutes ${ENV} in a backup path template.
func ResolveBackupPath(template, envName string) string {
	return strings.ReplaceAll(template, EnvPlaceholder, envName)
}

// PrepareApp returns a copy of app ready for rendering: volumes resolved
// against projectRoot and environment values interpolated from vars.
func PrepareApp(app config.AppSpec, envName, projectRoot string, vars map[string]string) config.AppSpec {
	out := app.Clone()

	for i, v := range out.Volumes {
		out.Volumes[i] = ResolveVolume(v, envName, projectRoot)
	}

	for _, k := range out.Environment.Keys() {
		v, _ := out.Environment.Get(k)
		out.Environment.Set(k, Interpolate(v, vars))
	}

	return out
}
