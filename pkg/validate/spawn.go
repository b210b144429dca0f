package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/dkoosis/autograde/internal/logging"
)

// Environment shared between a grading run and its children.
const (
	// EnvBin names the autograde binary children are spawned from.
	EnvBin = "AUTOGRADE_BIN"
	// EnvChild is set in every child run.
	EnvChild = "AUTOGRADE_CHILD"
)

// Child is the outcome of one child process.
type Child struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Spawner starts a child autograde run and waits for it to exit.
// A non-zero exit is not an error; the artifact decides the outcome.
type Spawner interface {
	Spawn(ctx context.Context, dir string, args []string) (Child, error)
}

// ExecSpawner runs the autograde binary as a subprocess.
type ExecSpawner struct {
	Bin    string // defaults to $AUTOGRADE_BIN, then "autograde" on PATH
	Env    []string
	Logger *slog.Logger
}

func (s ExecSpawner) bin() string {
	if s.Bin != "" {
		return s.Bin
	}
	if b := os.Getenv(EnvBin); b != "" {
		return b
	}
	return "autograde"
}

// Spawn implements Spawner.
func (s ExecSpawner) Spawn(ctx context.Context, dir string, args []string) (Child, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	cmd := exec.CommandContext(ctx, s.bin(), args...)
	cmd.Dir = dir
	cmd.Env = append(append(os.Environ(), EnvChild+"=1"), s.Env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("spawning child", "bin", s.bin(), "dir", dir, "args", strings.Join(args, " "))
	err := cmd.Run()
	child := Child{Stdout: stdout.String(), Stderr: stderr.String()}
	logger.Debug("child exited", "stdout", child.Stdout, "stderr", child.Stderr)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return child, nil
	case errors.As(err, &exitErr):
		child.ExitCode = exitErr.ExitCode()
		return child, nil
	default:
		child.ExitCode = -1
		return child, fmt.Errorf("running %s: %w", s.bin(), err)
	}
}
