// Package envfile reads the per-app KEY=VALUE secret files that live under
// config/{app}/.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SharedFile holds values common to every environment of an app.
	SharedFile = "shared.env"
	// ExampleFile is the template written by init.
	ExampleFile = "env.example"
)

// EnvFileName returns the file name holding values for one environment.
func EnvFileName(env string) string {
	return env + ".env"
}

// Load reads a single env file. A missing file yields an empty map.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	vars, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vars, nil
}

// Parse reads KEY=VALUE lines. Values are taken verbatim after the first
// '=' with surrounding whitespace trimmed; there is no quoting or escaping.
func Parse(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// Merge combines maps left to right; later maps win on conflicting keys.
func Merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// LoadLayered loads dir/shared.env then dir/{env}.env and merges them.
func LoadLayered(dir, env string) (map[string]string, error) {
	shared, err := Load(filepath.Join(dir, SharedFile))
	if err != nil {
		return nil, err
	}
	specific, err := Load(filepath.Join(dir, EnvFileName(env)))
	if err != nil {
		return nil, err
	}
	return Merge(shared, specific), nil
}
