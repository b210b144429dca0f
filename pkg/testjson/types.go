// Package testjson turns go test -json NDJSON streams into grading input.
//
// Stream decodes events; Ingester folds them into phase reports and
// directives for a session.
package testjson

import (
	"strings"
	"time"
)

// Event actions emitted by go test -json.
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionOutput      = "output"
	ActionPass        = "pass"
	ActionFail        = "fail"
	ActionSkip        = "skip"
	ActionBench       = "bench"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// TestEvent represents a single event from go test -json output.
type TestEvent struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	Test        string    `json:"Test"`
	Elapsed     float64   `json:"Elapsed"`
	Output      string    `json:"Output"`
	ImportPath  string    `json:"ImportPath"`  // build-output and build-fail only
	FailedBuild string    `json:"FailedBuild"` // set on a package fail caused by a build failure
}

// ProcessFunc receives each decoded event.
type ProcessFunc func(TestEvent)

// Terminal reports whether the event ends a test or a package.
func (e TestEvent) Terminal() bool {
	return e.Action == ActionPass || e.Action == ActionFail || e.Action == ActionSkip
}

// TopLevel returns the top-level test a (sub)test name belongs to.
func TopLevel(name string) string {
	top, _, _ := strings.Cut(name, "/")
	return top
}

// Collection failure entries are named after the package with one of these suffixes.
const (
	SuffixBuildFailed = " [build failed]"
	SuffixNoTests     = " [no tests]"
)

// IsCollectionFailure reports whether a result name marks a package whose
// tests could not be collected.
func IsCollectionFailure(name string) bool {
	return strings.HasSuffix(name, SuffixBuildFailed) || strings.HasSuffix(name, SuffixNoTests)
}
