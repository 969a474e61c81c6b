package compose

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Container is one entry of "docker compose ps --format json".
type Container struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Status  string `json:"Status"`
}

// Running reports whether the container state is "running".
func (c Container) Running() bool {
	return strings.EqualFold(c.State, "running")
}

// PS parses compose ps output. Older compose releases print a JSON array,
// newer ones print one object per line.
func PS(out []byte) ([]Container, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}

	if out[0] == '[' {
		var containers []Container
		if err := json.Unmarshal(out, &containers); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		return containers, nil
	}

	var containers []Container
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var c Container
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
		containers = append(containers, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read compose ps output: %w", err)
	}
	return containers, nil
}

// Deployment states reported by Summarize.
const (
	StateRunning = "running"
	StatePartial = "partial"
	StateStopped = "stopped"
)

// Summarize collapses container states into a single deployment state.
func Summarize(containers []Container) string {
	if len(containers) == 0 {
		return StateStopped
	}
	running := 0
	for _, c := range containers {
		if c.Running() {
			running++
		}
	}
	switch running {
	case len(containers):
		return StateRunning
	case 0:
		return StateStopped
	default:
		return StatePartial
	}
}
