// autograde grades Go assignments and writes a Gradescope results.json.
//
// Usage:
//
//	autograde run [flags] [packages]      grade the packages' tests
//	autograde limit                       enforce the submission limit
//	autograde show [flags] [file]         render results, coverage, SARIF or go test -json
//	autograde package                     build the Gradescope autograder.zip
//	autograde audit [-format sarif] <file.go>...
//	                                      report forbidden imports and calls
//	autograde version
//
// Exit codes: 0 success, 1 failing tests, a refused submission or audit
// violations, 2 usage or I/O errors.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/dkoosis/autograde/internal/config"
	"github.com/dkoosis/autograde/internal/logging"
	"github.com/dkoosis/autograde/internal/version"
)

const usage = `usage: autograde <command> [flags]

commands:
  run       grade the tests of the given packages
  limit     check the submission limit and seed the results document
  show      render a results document, coverage report, SARIF or go test -json stream
  package   build the Gradescope autograder zip
  audit     report forbidden imports and calls in Go files
  version   print build information
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "run":
		return runGrade(args[1:], stdout, stderr)
	case "limit":
		return runLimit(args[1:], stdout, stderr)
	case "show":
		return runShow(args[1:], stdin, stdout, stderr)
	case "package":
		return runPackage(args[1:], stdout, stderr)
	case "audit":
		return runAudit(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "autograde: unknown command %q\n", args[0])
		fmt.Fprint(stderr, usage)
		return 2
	}
}

// commonFlags registers the flags every command shares.
type commonFlags struct {
	results *string
	theme   *string
	debug   *bool
	noColor *bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet("autograde "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, commonFlags{
		results: fs.String("results", "", "results document path (default "+config.DefaultResults+")"),
		theme:   fs.String("theme", "", "terminal theme: default, orca, mono"),
		debug:   fs.Bool("debug", false, "enable debug logging"),
		noColor: fs.Bool("no-color", false, "disable colors"),
	}
}

// resolve loads .autograde.yaml and applies the environment and the
// explicitly set flags on top of it.
func resolve(fs *flag.FlagSet, cf commonFlags, stderr io.Writer) (*config.ResolvedConfig, *slog.Logger, error) {
	flags := config.CliFlags{
		Results: *cf.results,
		Theme:   *cf.theme,
		Debug:   *cf.debug,
		NoColor: *cf.noColor,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			flags.DebugSet = true
		case "no-color":
			flags.NoColorSet = true
		}
	})

	bootstrap := logging.FromEnv(stderr)
	file, err := config.LoadConfig(".", bootstrap)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.ResolveConfig(flags, file)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(stderr, cfg.Debug)
	logger.Debug("configuration resolved",
		"config", file.Path(),
		"results", cfg.Results, "results_source", cfg.ResultsSource,
		"limit", cfg.SubmissionLimit, "limit_source", cfg.LimitSource,
		"time_zone", cfg.Location.String(), "time_zone_source", cfg.TimeZoneSource)
	return cfg, logger, nil
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}
