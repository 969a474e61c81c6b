package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".hostsolo", "logs")

	log, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Infow("deploy started", "app", "web", "env", "prod")
	log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}

	var entry map[string]any
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "deploy started" || entry["app"] != "web" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if id, _ := entry["run_id"].(string); len(id) != 36 {
		t.Errorf("Expected a uuid run_id, got %v", entry["run_id"])
	}
}

func TestVerboseTeesToConsole(t *testing.T) {
	var console bytes.Buffer
	log, err := New(Options{Verbose: true, Console: &console})
	if err != nil {
		t.Fatal(err)
	}
	log.Debugw("rendering", "file", "docker-compose.yml")
	log.Sync()

	if !strings.Contains(console.String(), "rendering") {
		t.Errorf("Expected debug line on console, got %q", console.String())
	}
}

func TestNoSinksIsNop(t *testing.T) {
	log, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	log.Infow("ignored")
}
