package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostsolo/hostsolo/internal/commands"
	"github.com/hostsolo/hostsolo/internal/logger"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd(commands.NewApp("1.2.3"))

	want := []string{"init", "version", "status", "proxy", "deploy", "dns", "backup", "env", "config"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}

	for _, flag := range []string{"config", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Expected persistent flag --%s", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := commands.NewApp("1.2.3")
	app.Out = &out
	app.Err = &out

	root := NewRootCmd(app)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hostsolo version 1.2.3" {
		t.Errorf("version output = %q", got)
	}
}

func TestLoggerWritesIntoProject(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "hostsolo.yaml")
	if err := os.WriteFile(cfgPath, []byte("domain: x.io\nemail: ops@x.io\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	app := commands.NewApp("test")
	app.Out = &out
	app.Err = &out

	cmd := NewRootCmd(app)
	cmd.SetArgs([]string{"-c", cfgPath, "config", "validate"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config validate failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, ".hostsolo", "logs", logger.FileName)); err != nil {
		t.Errorf("Expected log file in project: %v", err)
	}
}
