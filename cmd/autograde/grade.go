package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dkoosis/autograde/internal/config"
	"github.com/dkoosis/autograde/internal/executor"
	"github.com/dkoosis/autograde/pkg/coverage"
	"github.com/dkoosis/autograde/pkg/render"
	"github.com/dkoosis/autograde/pkg/session"
	"github.com/dkoosis/autograde/pkg/stream"
	"github.com/dkoosis/autograde/pkg/stub"
	"github.com/dkoosis/autograde/pkg/testjson"
	"github.com/dkoosis/autograde/pkg/validate"
)

// gradeJob is one parsed invocation of autograde run.
type gradeJob struct {
	mode        session.Mode
	target      string
	cover       string
	coverageOut string
	runPattern  string
	packages    []string
}

func runGrade(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("run", stderr)
	modeFlag := fs.String("mode", "normal", "grading mode: normal, stub, pass")
	target := fs.String("target", "", "implementation file to stub in stub mode")
	cover := fs.String("cover", "", "implementation file to analyze for coverage")
	coverageOut := fs.String("coverage-out", coverage.DefaultPath, "coverage report path")
	runPattern := fs.String("run", "", "run only tests matching the regexp")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode, err := session.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(stderr, "autograde run: %v\n", err)
		return 2
	}
	if mode == session.ModeStub && *target == "" {
		fmt.Fprintf(stderr, "autograde run: --mode stub requires --target\n")
		return 2
	}

	cfg, logger, err := resolve(fs, cf, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "autograde run: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	job := gradeJob{
		mode:        mode,
		target:      *target,
		cover:       *cover,
		coverageOut: *coverageOut,
		runPattern:  *runPattern,
		packages:    fs.Args(),
	}
	return job.grade(ctx, cfg, logger, stdout, stderr)
}

func (j gradeJob) grade(ctx context.Context, cfg *config.ResolvedConfig, logger *slog.Logger, stdout, stderr io.Writer) (code int) {
	s := session.New(session.WithLogger(logger))
	if err := s.Start(j.mode, cfg.Results); err != nil {
		fmt.Fprintf(stderr, "autograde run: %v\n", err)
		return 2
	}
	child := os.Getenv(validate.EnvChild) != ""
	logger.Debug("grading", "session", s.ID(), "mode", j.mode.String(), "child", child, "packages", j.packages)

	ingestOpts := []testjson.IngestOption{testjson.WithLogger(logger)}
	var progress *stream.Progress
	if !child && isTTYWriter(stderr) {
		width, height := termSize(stderr)
		progress = stream.New(stderr, width, height, progressStyle(render.ThemeFor(cfg.Theme, cfg.NoColor)))
		ingestOpts = append(ingestOpts, testjson.WithObserver(progress.Observe))
	}
	in := testjson.NewIngester(s, ingestOpts...)

	// The document is written however the run ends.
	defer func() {
		doc, err := s.Finalize()
		if err != nil {
			fmt.Fprintf(stderr, "autograde run: %v\n", err)
			code = 2
			return
		}
		if !child {
			fmt.Fprintf(stdout, "autograde: wrote %s (score %g/%g)\n", cfg.Results, doc.Score, doc.MaxScore())
		}
	}()

	tmp, err := os.MkdirTemp("", "autograde-run-*")
	if err != nil {
		in.CollectionFailure(j.name()+testjson.SuffixBuildFailed, err.Error())
		fmt.Fprintf(stderr, "autograde run: %v\n", err)
		return 2
	}
	defer os.RemoveAll(tmp)

	opts := executor.Options{Packages: j.packages, Run: j.runPattern}
	if bin := j.selfBin(cfg); bin != "" {
		opts.Env = append(opts.Env, validate.EnvBin+"="+bin)
	}
	if j.mode == session.ModeStub {
		overlay, err := stub.WriteOverlay(tmp, j.target)
		if err != nil {
			in.CollectionFailure(j.name()+testjson.SuffixBuildFailed, fmt.Sprintf("stubbing %s: %v", j.target, err))
			fmt.Fprintf(stderr, "autograde run: %v\n", err)
			return 2
		}
		opts.Overlay = overlay
	}
	if j.cover != "" {
		opts.CoverProfile = filepath.Join(tmp, "cover.out")
	}

	res, err := executor.Run(ctx, opts, in, logger)
	if progress != nil {
		progress.Finish(res.Summary)
	}
	if err != nil {
		fmt.Fprintf(stderr, "autograde run: %v\n", err)
		return 2
	}

	if j.cover != "" {
		if err := j.writeCoverage(opts.CoverProfile); err != nil {
			// the parent reports the missing report
			logger.Warn("coverage report not written", "file", j.cover, "err", err)
		}
	}

	if j.mode == session.ModeNormal && !res.Summary.OK() {
		return 1
	}
	return 0
}

// name labels collection failures that happen before go test runs.
func (j gradeJob) name() string {
	if len(j.packages) == 0 {
		return "."
	}
	return j.packages[0]
}

// selfBin returns the binary validation children should run: the
// configured one, else this executable.
func (j gradeJob) selfBin(cfg *config.ResolvedConfig) string {
	if cfg.Bin != "" {
		return cfg.Bin
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return exe
}

func (j gradeJob) writeCoverage(profile string) error {
	f, err := coverage.FromProfileFile(profile, j.cover)
	if err != nil {
		return err
	}
	return coverage.Save(j.coverageOut, &coverage.Report{Files: map[string]coverage.File{j.cover: f}})
}

// progressStyle colors progress lines with the theme.
func progressStyle(theme render.Theme) stream.StyleFunc {
	return func(kind stream.LineKind, text string) string {
		switch kind {
		case stream.KindPass:
			return theme.Success.Render(text)
		case stream.KindFail, stream.KindBuildFail:
			return theme.Error.Render(text)
		case stream.KindSkip:
			return theme.Warning.Render(text)
		case stream.KindOutput, stream.KindSeparator:
			return theme.Muted.Render(text)
		default:
			return text
		}
	}
}
