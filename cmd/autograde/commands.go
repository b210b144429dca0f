package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkoosis/autograde/internal/bundle"
	"github.com/dkoosis/autograde/internal/limit"
	"github.com/dkoosis/autograde/internal/version"
	"github.com/dkoosis/autograde/pkg/audit"
	"github.com/dkoosis/autograde/pkg/meta"
	"github.com/dkoosis/autograde/pkg/sarif"
)

func runLimit(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("limit", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := resolve(fs, cf, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "autograde limit: %v\n", err)
		return 2
	}

	m, err := meta.Load(cfg.Metadata)
	switch {
	case errors.Is(err, meta.ErrNoMetadata):
		logger.Warn("no submission metadata, counting this as the first submission", "path", cfg.Metadata)
	case err != nil:
		fmt.Fprintf(stderr, "autograde limit: %v\n", err)
		return 2
	}

	v := limit.Check(m, cfg.SubmissionLimit, cfg.Location, time.Now())
	if err := limit.Seed(cfg.Results, v); err != nil {
		fmt.Fprintf(stderr, "autograde limit: %v\n", err)
		return 2
	}
	fmt.Fprintln(stdout, v.Output)
	logger.Debug("submission counted", "number", v.Number, "limit", v.Limit, "exceeded", v.Exceeded)
	if v.Exceeded {
		return 1
	}
	return 0
}

func runPackage(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("package", stderr)
	output := fs.String("o", "", "zip file to write (default from .autograde.yaml or autograder.zip)")
	ver := fs.String("version", "", "autograde version installed by setup.sh (default this build)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := resolve(fs, cf, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "autograde package: %v\n", err)
		return 2
	}

	spec := bundle.Spec{
		Dir:             ".",
		SubmissionFiles: cfg.Package.SubmissionFiles,
		AdditionalFiles: cfg.Package.AdditionalFiles,
		Version:         *ver,
	}
	if spec.Version == "" {
		spec.Version = installVersion(version.Version)
	}
	if gomod, err := os.ReadFile("go.mod"); err == nil {
		spec.GoVersion = bundle.GoVersion(gomod)
	}
	if len(spec.SubmissionFiles) == 0 {
		fmt.Fprintf(stderr, "autograde package: package.submission_files is not set in .autograde.yaml\n")
		return 2
	}

	out := *output
	if out == "" {
		out = cfg.Package.Output
	}
	files, err := bundle.BuildFile(out, spec)
	if err != nil {
		fmt.Fprintf(stderr, "autograde package: %v\n", err)
		return 2
	}
	logger.Debug("packaged", "output", out, "files", strings.Join(files, " "), "go", spec.GoVersion)
	fmt.Fprintf(stdout, "autograde: wrote %s (%d files)\n", out, len(files))
	return 0
}

// installVersion maps a build version to a go install version query.
func installVersion(v string) string {
	if v == "" || v == "dev" {
		return "latest"
	}
	return v
}

func runAudit(args []string, stdout, stderr io.Writer) int {
	fs, _ := newFlagSet("audit", stderr)
	format := fs.String("format", "text", "output format: text, sarif")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(stderr, "autograde audit: no files given\n")
		return 2
	}
	violations, err := audit.Check(fs.Args()...)
	if err != nil {
		fmt.Fprintf(stderr, "autograde audit: %v\n", err)
		return 2
	}

	switch *format {
	case "text":
		for _, v := range violations {
			fmt.Fprintln(stdout, v.String())
		}
	case "sarif":
		b := sarif.NewBuilder("autograde-audit", version.Version).
			AddRule(audit.RuleImport, audit.Rules[audit.RuleImport]).
			AddRule(audit.RuleCall, audit.Rules[audit.RuleCall])
		for _, v := range violations {
			b.AddResult(v.Rule, "error", v.Message, filepath.ToSlash(v.Pos.Filename), v.Pos.Line, v.Pos.Column)
		}
		if _, err := b.WriteTo(stdout); err != nil {
			fmt.Fprintf(stderr, "autograde audit: writing output: %v\n", err)
			return 2
		}
	default:
		fmt.Fprintf(stderr, "autograde audit: unknown format %q (expected text, sarif)\n", *format)
		return 2
	}
	if len(violations) > 0 {
		return 1
	}
	return 0
}
