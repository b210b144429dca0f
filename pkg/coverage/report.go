// Package coverage converts go test cover profiles into per-function
// reports of missing lines and branches.
package coverage

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

// DefaultPath is the report location used when none is configured.
const DefaultPath = "coverage.json"

// ErrNoReport is returned when the coverage report does not exist.
var ErrNoReport = errors.New("coverage report not found")

// Report is the persisted coverage artifact.
type Report struct {
	Files map[string]File `json:"files"`
}

// File holds the functions of one source file.
type File struct {
	Functions map[string]Function `json:"functions"`
}

// Function lists what the tests did not exercise in one function.
type Function struct {
	StartLine       int      `json:"start_line"`
	MissingLines    []int    `json:"missing_lines"`
	MissingBranches []string `json:"missing_branches"`
}

// Complete reports whether nothing is missing.
func (f Function) Complete() bool {
	return len(f.MissingLines) == 0 && len(f.MissingBranches) == 0
}

// Names returns the function names of f in source order.
func (f File) Names() []string {
	names := make([]string, 0, len(f.Functions))
	for name := range f.Functions {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(f.Functions[a].StartLine, f.Functions[b].StartLine), cmp.Compare(a, b))
	})
	return names
}

// Lookup returns the entry for path. A report with a single file matches
// any path.
func (r *Report) Lookup(path string) (File, bool) {
	if f, ok := r.Files[path]; ok {
		return f, true
	}
	if len(r.Files) == 1 {
		for _, f := range r.Files {
			return f, true
		}
	}
	return File{}, false
}

// Load reads the report at path. A missing file yields ErrNoReport.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoReport)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}

// Consume loads the report at path and removes the file.
func Consume(path string) (*Report, error) {
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("removing %s: %w", path, err)
	}
	return r, nil
}

// Save writes the report to path.
func Save(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding coverage: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Penalty returns the points charged for what f misses. Branches count
// only when withBranches is set.
func Penalty(f Function, linePenalty, branchPenalty float64, withBranches bool) float64 {
	p := float64(len(f.MissingLines)) * linePenalty
	if withBranches {
		p += float64(len(f.MissingBranches)) * branchPenalty
	}
	return p
}
