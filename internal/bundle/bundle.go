// Package bundle builds the autograder.zip uploaded to Gradescope.
package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"
)

// Spec describes the contents of an autograder bundle.
type Spec struct {
	Dir             string   // assignment directory; paths are relative to it
	SubmissionFiles []string // files students upload, copied into place at grading time
	AdditionalFiles []string // glob patterns of grader files to include
	Version         string   // autograde version installed by setup.sh
	GoVersion       string   // Go toolchain installed by setup.sh, e.g. "1.24.7"
}

// Always included when present in Dir.
var implicit = []string{"go.mod", "go.sum", ".autograde.yaml"}

var scripts = template.Must(template.New("setup.sh").Parse(`#!/usr/bin/env bash
set -euo pipefail

curl -fsSL https://go.dev/dl/go{{.GoVersion}}.linux-amd64.tar.gz | tar -C /usr/local -xz
export PATH=/usr/local/go/bin:/root/go/bin:$PATH
go install github.com/dkoosis/autograde/cmd/autograde@{{.Version}}
cd /autograder/source && go mod download
`))

func init() {
	template.Must(scripts.New("run_autograder").Parse(`#!/usr/bin/env bash
export PATH=/usr/local/go/bin:/root/go/bin:$PATH
RESULTS=/autograder/results/results.json
cd /autograder/source
{{range .SubmissionFiles}}
cp /autograder/submission/{{.}} {{.}} 2>/dev/null || true
{{- end}}

autograde limit --results "$RESULTS" || exit 0
autograde run --results "$RESULTS" ./...
`))
}

// Files resolves the grader files the bundle will contain, sorted.
func Files(s Spec) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(rel string) error {
		rel = filepath.ToSlash(filepath.Clean(rel))
		if seen[rel] {
			return nil
		}
		if slices.Contains(s.SubmissionFiles, rel) {
			return fmt.Errorf("%s is a submission file and cannot be bundled", rel)
		}
		seen[rel] = true
		out = append(out, rel)
		return nil
	}

	for _, name := range implicit {
		if _, err := os.Stat(filepath.Join(s.Dir, name)); err == nil {
			if err := add(name); err != nil {
				return nil, err
			}
		}
	}
	for _, pattern := range s.AdditionalFiles {
		matches, err := filepath.Glob(filepath.Join(s.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", pattern)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(s.Dir, m)
			if err != nil {
				return nil, err
			}
			if err := add(rel); err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Build writes the zip archive to w and returns the names of its entries.
func Build(w io.Writer, s Spec) ([]string, error) {
	if s.Version == "" {
		s.Version = "latest"
	}
	if s.GoVersion == "" {
		return nil, errors.New("go version is required")
	}
	files, err := Files(s)
	if err != nil {
		return nil, err
	}

	zw := zip.NewWriter(w)
	var names []string
	for _, name := range []string{"setup.sh", "run_autograder"} {
		var buf bytes.Buffer
		if err := scripts.ExecuteTemplate(&buf, name, s); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		if err := writeEntry(zw, name, buf.Bytes(), 0o755); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		if err := writeEntry(zw, rel, data, 0o644); err != nil {
			return nil, err
		}
		names = append(names, rel)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return names, nil
}

// BuildFile writes the archive to path, replacing any existing file.
func BuildFile(path string, s Spec) ([]string, error) {
	var buf bytes.Buffer
	names, err := Build(&buf, s)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return names, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, mode fs.FileMode) error {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()}
	h.SetMode(mode)
	ew, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// GoVersion returns the toolchain version from a go.mod's go or toolchain
// line, preferring toolchain.
func GoVersion(gomod []byte) string {
	var goLine, toolchain string
	for _, line := range strings.Split(string(gomod), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		switch fields[0] {
		case "go":
			goLine = fields[1]
		case "toolchain":
			toolchain = strings.TrimPrefix(fields[1], "go")
		}
	}
	if toolchain != "" {
		return toolchain
	}
	return goLine
}
