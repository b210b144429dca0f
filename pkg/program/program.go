// Package program runs a student's main package as a subprocess so tests
// can check what it prints.
package program

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Runner runs main packages with `go run`.
type Runner struct {
	GoBin string // defaults to "go"
	Env   []string
}

// Output is what a run produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs the main package in dir with stdin as its input. Paths under
// dir are removed from stderr so failures read the same on every machine.
func (r Runner) Exec(ctx context.Context, dir, stdin string) (Output, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Output{}, fmt.Errorf("resolving %s: %w", dir, err)
	}
	bin := r.GoBin
	if bin == "" {
		bin = "go"
	}
	cmd := exec.CommandContext(ctx, bin, "run", ".")
	cmd.Dir = abs
	cmd.Env = append(cmd.Environ(), r.Env...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var exitErr *exec.ExitError
	out := Output{}
	if err := cmd.Run(); errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		return Output{}, fmt.Errorf("running %s: %w", bin, err)
	}
	out.Stdout = stdout.String()
	out.Stderr = strings.ReplaceAll(stderr.String(), abs+string(filepath.Separator), "")
	return out, nil
}

// Run runs the main package in dir and returns its standard output. Any
// standard error output fails the test.
func Run(t testing.TB, dir, stdin string) string {
	t.Helper()
	return Runner{}.run(t, dir, stdin)
}

func (r Runner) run(t testing.TB, dir, stdin string) string {
	t.Helper()
	out, err := r.Exec(t.Context(), dir, stdin)
	if err != nil {
		t.Fatal(err)
		return ""
	}
	if out.Stderr != "" {
		t.Fatal(out.Stderr)
		return ""
	}
	return out.Stdout
}
