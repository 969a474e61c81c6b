package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

// Runner invokes docker compose against a rendered file.
type Runner interface {
	// Run streams output to the runner's writers.
	Run(ctx context.Context, file string, args ...string) error

	// Output captures stdout, used for "ps --format json".
	Output(ctx context.Context, file string, args ...string) ([]byte, error)
}

// CLI runs the docker compose plugin through os/exec.
type CLI struct {
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// NewCLI returns a CLI writing to the process stdout and stderr.
func NewCLI() *CLI {
	return &CLI{Binary: "docker", Stdout: os.Stdout, Stderr: os.Stderr}
}

func (c *CLI) command(ctx context.Context, file string, args []string) *exec.Cmd {
	binary := c.Binary
	if binary == "" {
		binary = "docker"
	}
	full := append([]string{"compose", "-f", file}, args...)
	cmd := exec.CommandContext(ctx, binary, full...)
	cmd.Dir = filepath.Dir(file)
	return cmd
}

// Run executes docker compose -f file args... with the file's directory
// as working directory.
func (c *CLI) Run(ctx context.Context, file string, args ...string) error {
	cmd := c.command(ctx, file, args)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return wrapExit("docker compose "+firstArg(args), err)
	}
	return nil
}

// Output executes docker compose and returns its stdout.
func (c *CLI) Output(ctx context.Context, file string, args ...string) ([]byte, error) {
	cmd := c.command(ctx, file, args)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w\nOutput: %s", err, stderr.String())
		}
		return nil, wrapExit("docker compose "+firstArg(args), err)
	}
	return out, nil
}

func wrapExit(op string, err error) error {
	ext := &errdefs.ExternalError{Op: op, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ext.ExitCode = exitErr.ExitCode()
	}
	return ext
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// Up starts an app in the background, dropping services no longer in the file.
func Up(ctx context.Context, r Runner, file string) error {
	return r.Run(ctx, file, "up", "-d", "--remove-orphans")
}

// Pull fetches the images referenced by file.
func Pull(ctx context.Context, r Runner, file string) error {
	return r.Run(ctx, file, "pull")
}

// Down stops and removes the containers of file.
func Down(ctx context.Context, r Runner, file string) error {
	return r.Run(ctx, file, "down")
}

// Restart restarts the containers of file.
func Restart(ctx context.Context, r Runner, file string) error {
	return r.Run(ctx, file, "restart")
}

// Logs shows the last tail lines, following when follow is set.
func Logs(ctx context.Context, r Runner, file string, tail int, follow bool) error {
	args := []string{"logs", fmt.Sprintf("--tail=%d", tail)}
	if follow {
		args = append(args, "-f")
	}
	return r.Run(ctx, file, args...)
}

// Containers runs "ps --format json" and parses the result.
func Containers(ctx context.Context, r Runner, file string) ([]Container, error) {
	out, err := r.Output(ctx, file, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	return PS(out)
}
