package magetasks

import (
	"context"
	"errors"
	"os"

	"github.com/magefile/mage/sh"
	"golang.org/x/term"

	"github.com/dkoosis/autograde/internal/executor"
	"github.com/dkoosis/autograde/internal/logging"
	"github.com/dkoosis/autograde/pkg/session"
	"github.com/dkoosis/autograde/pkg/stream"
	"github.com/dkoosis/autograde/pkg/testjson"
)

// errTestsFailed is returned when go test reports failures.
var errTestsFailed = errors.New("tests failed")

// TestAll runs every test, streaming per-test progress.
func TestAll(ctx context.Context) error {
	PrintH2Header("Tests")

	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}
	progress := stream.New(Out, width, height, nil)
	// An inert session keeps no results; only the summary is needed.
	in := testjson.NewIngester(session.New(), testjson.WithObserver(progress.Observe))

	res, err := executor.Run(ctx, executor.Options{Packages: []string{"./..."}}, in, logging.FromEnv(os.Stderr))
	progress.Finish(res.Summary)
	if err != nil {
		return err
	}
	if !res.Summary.OK() {
		PrintError("Tests failed")
		return errTestsFailed
	}
	PrintSuccess("All tests passed")
	return nil
}

// TestCoverage runs tests with coverage.
func TestCoverage() error {
	PrintH2Header("Test Coverage")
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		PrintError("Tests failed")
		return err
	}
	_ = sh.RunV("go", "tool", "cover", "-func=coverage.out")
	PrintSuccess("Coverage report generated")
	return nil
}

// TestRace runs tests with the race detector.
func TestRace() error {
	PrintH2Header("Race Detector")
	if err := sh.RunV("go", "test", "-race", "./..."); err != nil {
		PrintError("Race detector found issues")
		return err
	}
	PrintSuccess("No race conditions detected")
	return nil
}
