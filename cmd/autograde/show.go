package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dkoosis/autograde/internal/detect"
	"github.com/dkoosis/autograde/pkg/coverage"
	"github.com/dkoosis/autograde/pkg/mapper"
	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/render"
	"github.com/dkoosis/autograde/pkg/results"
	"github.com/dkoosis/autograde/pkg/sarif"
	"github.com/dkoosis/autograde/pkg/session"
	"github.com/dkoosis/autograde/pkg/testjson"
	"github.com/dkoosis/autograde/pkg/tui"
)

func runShow(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("show", stderr)
	formatFlag := fs.String("format", "auto", "output format: auto, terminal, llm, json")
	interactive := fs.Bool("interactive", false, "browse the results in a terminal UI")
	compare := fs.String("compare", "", "earlier results document to compare against")
	branches := fs.Bool("branches", false, "include missing branches in coverage output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := resolve(fs, cf, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "autograde show: %v\n", err)
		return 2
	}

	input, source, err := readShowInput(fs.Args(), cfg.Results, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "autograde show: %v\n", err)
		return 2
	}
	format := detect.Sniff(input)
	logger.Debug("show input", "source", source, "format", format.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var patterns []pattern.Pattern
	var doc *results.Document
	switch format {
	case detect.Results:
		doc = &results.Document{}
		if err := json.Unmarshal(input, doc); err != nil {
			fmt.Fprintf(stderr, "autograde show: parsing %s: %v\n", source, err)
			return 2
		}
	case detect.GoTestJSON:
		doc, err = gradeStream(ctx, input)
		if err != nil {
			fmt.Fprintf(stderr, "autograde show: %v\n", err)
			return 2
		}
	case detect.Coverage:
		var r coverage.Report
		if err := json.Unmarshal(input, &r); err != nil {
			fmt.Fprintf(stderr, "autograde show: parsing %s: %v\n", source, err)
			return 2
		}
		patterns = mapper.FromCoverage(&r, *branches)
	case detect.SARIF:
		findings, err := sarif.ReadBytes(input)
		if err != nil {
			fmt.Fprintf(stderr, "autograde show: parsing %s: %v\n", source, err)
			return 2
		}
		patterns = mapper.FromSARIF(findings)
	default:
		fmt.Fprintf(stderr, "autograde show: unrecognized input in %s (expected results.json, coverage.json, SARIF or go test -json)\n", source)
		return 2
	}

	if doc != nil {
		if *interactive {
			if !isTTYWriter(stdout) {
				fmt.Fprintf(stderr, "autograde show: --interactive needs a terminal\n")
				return 2
			}
			if err := tui.Browse(ctx, doc, render.ThemeFor(cfg.Theme, cfg.NoColor)); err != nil {
				fmt.Fprintf(stderr, "autograde show: %v\n", err)
				return 2
			}
			return exitCode(mapper.FromResults(doc))
		}
		patterns = mapper.FromResults(doc)
		if *compare != "" {
			before, err := results.Load(*compare)
			if err != nil {
				fmt.Fprintf(stderr, "autograde show: %v\n", err)
				return 2
			}
			patterns = append(patterns, mapper.Compare(before, doc))
		}
	}

	mode := resolveFormat(*formatFlag, stdout)
	width, _ := termSize(stdout)
	renderer, ok := render.ForFormat(mode, render.ThemeFor(cfg.Theme, cfg.NoColor), width)
	if !ok {
		fmt.Fprintf(stderr, "autograde show: unknown format %q (expected auto, terminal, llm, json)\n", *formatFlag)
		return 2
	}
	fmt.Fprint(stdout, renderer.Render(patterns))
	return exitCode(patterns)
}

// readShowInput reads the named file ("-" for stdin). Without an argument
// it reads piped stdin, falling back to the configured results document.
func readShowInput(args []string, resultsPath string, stdin io.Reader) ([]byte, string, error) {
	if len(args) > 1 {
		return nil, "", errors.New("at most one input file")
	}
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		return data, args[0], err
	}
	if len(args) == 1 || !isTerminalReader(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "stdin", fmt.Errorf("reading stdin: %w", err)
		}
		if len(args) == 1 || len(bytes.TrimSpace(data)) > 0 {
			return data, "stdin", nil
		}
	}
	data, err := os.ReadFile(resultsPath)
	return data, resultsPath, err
}

func isTerminalReader(r io.Reader) bool {
	if r == nil {
		return true
	}
	f, ok := r.(*os.File)
	return ok && isTTYWriter(f)
}

// gradeStream grades a recorded go test -json stream in a scratch session.
func gradeStream(ctx context.Context, input []byte) (*results.Document, error) {
	tmp, err := os.MkdirTemp("", "autograde-show-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	s := session.New()
	if err := s.Start(session.ModeNormal, filepath.Join(tmp, "results.json")); err != nil {
		return nil, err
	}
	in := testjson.NewIngester(s)
	if err := in.Ingest(ctx, bytes.NewReader(input)); err != nil {
		return nil, err
	}
	in.Finish("")
	return s.Finalize()
}

func resolveFormat(format string, w io.Writer) string {
	if format != "auto" {
		return format
	}
	if isTTYWriter(w) {
		return "terminal"
	}
	return "llm"
}

// exitCode returns 1 when any rendered row failed.
func exitCode(patterns []pattern.Pattern) int {
	for _, p := range patterns {
		if t, ok := p.(*pattern.TestTable); ok {
			for _, r := range t.Results {
				if r.Status == pattern.StatusFail || r.Status == pattern.StatusGated {
					return 1
				}
			}
		}
	}
	return 0
}
