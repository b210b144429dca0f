// Package executor runs go test -json and feeds its events to an ingester.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/dkoosis/autograde/pkg/testjson"
)

// Options selects what go test runs and how.
type Options struct {
	GoBin        string   // defaults to "go"
	Dir          string   // working directory; defaults to the current one
	Packages     []string // defaults to "."
	Run          string   // -run pattern
	Overlay      string   // -overlay file
	CoverProfile string   // -coverprofile output; enables count mode
	Env          []string // appended to the inherited environment
}

// Args returns the go command arguments for opts.
func (o Options) Args() []string {
	args := []string{"test", "-json", "-count=1"}
	if o.Run != "" {
		args = append(args, "-run", o.Run)
	}
	if o.Overlay != "" {
		args = append(args, "-overlay", o.Overlay)
	}
	if o.CoverProfile != "" {
		args = append(args, "-covermode=count", "-coverprofile", o.CoverProfile)
	}
	return append(args, o.packages()...)
}

func (o Options) packages() []string {
	if len(o.Packages) == 0 {
		return []string{"."}
	}
	return o.Packages
}

func (o Options) goBin() string {
	if o.GoBin == "" {
		return "go"
	}
	return o.GoBin
}

// Result describes a finished go test invocation.
type Result struct {
	ExitCode int
	Stderr   string
	Summary  testjson.Summary
}

// Run executes go test with opts and streams its events into in.
// Test failures are reported through in, not as an error. When the go
// command cannot be started, in receives a collection failure and Run
// returns the start error.
func Run(ctx context.Context, opts Options, in *testjson.Ingester, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	args := opts.Args()
	cmd := exec.CommandContext(ctx, opts.goBin(), args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("go test stdout: %w", err)
	}

	logger.Debug("running go test", "dir", opts.Dir, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		in.CollectionFailure(strings.Join(opts.packages(), " ")+testjson.SuffixBuildFailed,
			fmt.Sprintf("could not run %s: %v", opts.goBin(), err))
		return Result{ExitCode: -1, Summary: in.Summary()}, fmt.Errorf("starting go test: %w", err)
	}

	ingestErr := in.Ingest(ctx, stdout)
	if ingestErr != nil {
		// drain so the child is not blocked on a full pipe
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()
	in.Finish(stderr.String())

	res := Result{Stderr: stderr.String(), Summary: in.Summary()}
	if stderr.Len() > 0 {
		logger.Debug("go test stderr", "text", strings.TrimSpace(stderr.String()))
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("waiting for go test: %w", waitErr)
	}
	if ingestErr != nil {
		return res, ingestErr
	}
	logger.Debug("go test finished", "exit", res.ExitCode, "summary", res.Summary.String())
	return res, nil
}
