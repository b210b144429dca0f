// Package validate grades the tests a student wrote.
//
// AssertFail runs the student's tests against stubs that return random
// values and expects every test to fail. AssertPass runs them against the
// real implementation and expects every test to pass. AssertCover measures
// which lines and branches of the implementation the tests leave
// unexercised. Each runs one child autograde process, reads back its
// artifact, and charges a penalty on the calling test's record.
package validate

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dkoosis/autograde/internal/config"
	"github.com/dkoosis/autograde/internal/logging"
	"github.com/dkoosis/autograde/pkg/coverage"
	"github.com/dkoosis/autograde/pkg/grade"
	"github.com/dkoosis/autograde/pkg/results"
	"github.com/dkoosis/autograde/pkg/testjson"
)

// Messages for a child run that left no usable artifact.
const (
	MsgNoResults  = "autograde failed to generate test results"
	MsgNoCoverage = "autograde failed to generate coverage results"
)

type options struct {
	penalty       float64
	linePenalty   float64
	branchPenalty float64
	branches      bool
	spawner       Spawner
	logger        *slog.Logger
}

// Option configures an assertion.
type Option func(*options)

// WithPenalty sets the points charged per misbehaving test. Default 1.
func WithPenalty(p float64) Option {
	return func(o *options) { o.penalty = p }
}

// WithLinePenalty sets the points charged per missed line. Default 1.
func WithLinePenalty(p float64) Option {
	return func(o *options) { o.linePenalty = p }
}

// WithBranchPenalty sets the points charged per missed branch. Default 1.
func WithBranchPenalty(p float64) Option {
	return func(o *options) { o.branchPenalty = p }
}

// WithBranches charges and reports missed branches as well as lines.
func WithBranches() Option {
	return func(o *options) { o.branches = true }
}

// WithSpawner replaces the process spawner.
func WithSpawner(s Spawner) Option {
	return func(o *options) { o.spawner = s }
}

// WithLogger sets the logger for child runs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// newOptions starts from the penalties and binary configured in dir's
// .autograde.yaml and applies opts over them.
func newOptions(dir string, opts []Option) options {
	o := options{penalty: 1, linePenalty: 1, branchPenalty: 1}
	var bin string
	if cfg, err := config.LoadConfig(dir, nil); err == nil {
		o.linePenalty, o.branchPenalty, o.penalty = cfg.Penalties()
		bin = cfg.Bin
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.FromEnv(os.Stderr)
	}
	if o.spawner == nil {
		o.spawner = ExecSpawner{Bin: bin, Logger: o.logger}
	}
	return o
}

// AssertFail checks that every test in testFile fails when the functions
// of implFile return random values.
func AssertFail(t testing.TB, rec *grade.Record, implFile, testFile string, opts ...Option) {
	t.Helper()
	assertStatus(t, rec, implFile, testFile, results.StatusFailed, opts)
}

// AssertPass checks that every test in testFile passes against the real
// implementation.
func AssertPass(t testing.TB, rec *grade.Record, implFile, testFile string, opts ...Option) {
	t.Helper()
	assertStatus(t, rec, implFile, testFile, results.StatusPassed, opts)
}

func assertStatus(t testing.TB, rec *grade.Record, implFile, testFile, want string, opts []Option) {
	t.Helper()
	c, err := prepare(t, implFile, testFile)
	if err != nil {
		t.Fatalf("autograde: %v", err)
		return
	}
	defer c.cleanup()
	o := newOptions(c.dir, opts)

	mode := "pass"
	if want == results.StatusFailed {
		mode = "stub"
	}

	doc, err := o.runStatus(t, c, mode, c.names)
	if err != nil || !collected(doc) {
		if err != nil && !errors.Is(err, results.ErrNoDocument) {
			o.logger.Warn("unreadable child results", "run", c.id, "error", err)
		}
		t.Fatal(MsgNoResults)
		return
	}

	// A panic ends the test binary, so tests after it never report.
	tests := doc.Tests
	missing := absent(c.names, tests)
	for len(missing) > 0 {
		o.logger.Debug("rerunning unreported tests", "run", c.id, "tests", missing)
		rerun, err := o.runStatus(t, c, mode, missing)
		if err != nil || !collected(rerun) {
			break
		}
		tests = append(tests, rerun.Tests...)
		left := absent(c.names, tests)
		if len(left) == len(missing) {
			break
		}
		missing = left
	}

	defects, output := Defects(tests, missing, want)
	charge(t, rec, float64(defects)*o.penalty, output)
}

// runStatus runs one child over the named tests and reads back its document.
func (o options) runStatus(t testing.TB, c childRun, mode string, names []string) (*results.Document, error) {
	args := []string{"run", "--mode", mode, "--results", c.results, "--run", RunPattern(names)}
	if mode == "stub" {
		args = append(args, "--target", c.impl)
	}
	args = append(args, ".")

	o.logger.Debug("validating tests", "run", c.id, "mode", mode, "tests", names)
	if _, err := o.spawner.Spawn(t.Context(), c.dir, args); err != nil {
		o.logger.Warn("child run failed", "run", c.id, "error", err)
	}
	return results.Consume(c.results)
}

// absent returns the names with no entry in tests, in order.
func absent(names []string, tests []results.Test) []string {
	seen := make(map[string]bool, len(tests))
	for _, test := range tests {
		seen[test.Name] = true
	}
	var out []string
	for _, n := range names {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out
}

// AssertCover checks that the tests in testFile exercise every line of
// implFile, and every branch when WithBranches is given.
func AssertCover(t testing.TB, rec *grade.Record, implFile, testFile string, opts ...Option) {
	t.Helper()
	c, err := prepare(t, implFile, testFile)
	if err != nil {
		t.Fatalf("autograde: %v", err)
		return
	}
	defer c.cleanup()
	o := newOptions(c.dir, opts)

	report := filepath.Join(c.tmp, coverage.DefaultPath)
	args := []string{"run", "--cover", c.impl, "--coverage-out", report,
		"--results", c.results, "--run", c.pattern, "."}

	o.logger.Debug("measuring coverage", "run", c.id, "tests", c.pattern)
	if _, err := o.spawner.Spawn(t.Context(), c.dir, args); err != nil {
		o.logger.Warn("child run failed", "run", c.id, "error", err)
	}
	_ = os.Remove(c.results)

	r, err := coverage.Consume(report)
	if err != nil {
		if !errors.Is(err, coverage.ErrNoReport) {
			o.logger.Warn("unreadable coverage report", "run", c.id, "error", err)
		}
		t.Fatal(MsgNoCoverage)
		return
	}
	f, ok := r.Lookup(c.impl)
	if !ok {
		t.Fatal(MsgNoCoverage)
		return
	}

	points, output := Incomplete(f, o.linePenalty, o.branchPenalty, o.branches)
	charge(t, rec, points, output)
}

// charge fails t with output and lowers the record's score by points.
func charge(t testing.TB, rec *grade.Record, points float64, output string) {
	t.Helper()
	if points <= 0 {
		return
	}
	if rec != nil && rec.Weight() > 0 {
		rec.SetScore(max(rec.Weight()-points, 0))
	}
	t.Error(output)
}

// collected reports whether a child document holds real test results.
func collected(doc *results.Document) bool {
	if doc == nil || len(doc.Tests) == 0 {
		return false
	}
	for _, test := range doc.Tests {
		if testjson.IsCollectionFailure(test.Name) {
			return false
		}
	}
	return true
}

// Defects counts the tests whose status is not want and describes them.
// Every name in missing produced no result at all and counts as a defect.
func Defects(tests []results.Test, missing []string, want string) (int, string) {
	verb := strings.TrimSuffix(want, "ed")
	var sb strings.Builder
	if want == results.StatusFailed {
		sb.WriteString("random return values\n")
	} else {
		sb.WriteString("actual return values\n")
	}
	defects := 0
	for _, test := range tests {
		if test.Status == want {
			continue
		}
		defects++
		fmt.Fprintf(&sb, "* %s did not %s\n", test.Name, verb)
		if test.Output != "" {
			sb.WriteString(indent(test.Output, "    "))
			sb.WriteString("\n")
		}
	}
	for _, name := range missing {
		defects++
		fmt.Fprintf(&sb, "* %s did not report a result\n", name)
	}
	return defects, sb.String()
}

// Incomplete totals the coverage penalty of f and describes what is missing.
func Incomplete(f coverage.File, linePenalty, branchPenalty float64, withBranches bool) (float64, string) {
	var (
		points float64
		sb     strings.Builder
	)
	sb.WriteString("incomplete coverage\n")
	for _, name := range f.Names() {
		fn := f.Functions[name]
		lines := fn.MissingLines
		var branches []string
		if withBranches {
			branches = fn.MissingBranches
		}
		if len(lines) == 0 && len(branches) == 0 {
			continue
		}
		points += coverage.Penalty(fn, linePenalty, branchPenalty, withBranches)
		fmt.Fprintf(&sb, "* %s\n", name)
		if len(lines) > 0 {
			fmt.Fprintf(&sb, "    Lines: %s\n", joinInts(lines))
		}
		if len(branches) > 0 {
			fmt.Fprintf(&sb, "    Branches: %s\n", strings.Join(branches, ", "))
		}
	}
	return points, sb.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// childRun holds the paths of one child invocation.
type childRun struct {
	id      string
	dir     string   // package directory the child runs in
	impl    string   // implementation file relative to dir
	names   []string // the student's top-level tests
	pattern string   // -run pattern selecting them
	tmp     string
	results string
}

func (c childRun) cleanup() {
	_ = os.RemoveAll(c.tmp)
}

func prepare(t testing.TB, implFile, testFile string) (childRun, error) {
	dir, err := filepath.Abs(filepath.Dir(testFile))
	if err != nil {
		return childRun{}, fmt.Errorf("resolving %s: %w", testFile, err)
	}
	impl, err := filepath.Abs(implFile)
	if err != nil {
		return childRun{}, fmt.Errorf("resolving %s: %w", implFile, err)
	}
	if rel, err := filepath.Rel(dir, impl); err == nil {
		impl = rel
	}

	names, err := TestNames(testFile)
	if err != nil {
		return childRun{}, err
	}
	caller := testjson.TopLevel(t.Name())
	names = slices.DeleteFunc(names, func(n string) bool { return n == caller })
	if len(names) == 0 {
		return childRun{}, fmt.Errorf("no tests found in %s", testFile)
	}

	id := uuid.NewString()
	tmp, err := os.MkdirTemp("", "autograde-"+id[:8]+"-")
	if err != nil {
		return childRun{}, fmt.Errorf("creating child directory: %w", err)
	}
	return childRun{
		id:      id,
		dir:     dir,
		impl:    impl,
		names:   names,
		pattern: RunPattern(names),
		tmp:     tmp,
		results: filepath.Join(tmp, results.DefaultPath),
	}, nil
}

// TestNames returns the top-level test functions declared in a _test.go file.
func TestNames(testFile string) ([]string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), testFile, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", testFile, err)
	}
	var names []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || !isTestName(fn.Name.Name) {
			continue
		}
		params := fn.Type.Params.List
		if len(params) != 1 || len(params[0].Names) > 1 {
			continue
		}
		if star, ok := params[0].Type.(*ast.StarExpr); ok {
			if sel, ok := star.X.(*ast.SelectorExpr); ok && sel.Sel.Name == "T" {
				names = append(names, fn.Name.Name)
			}
		}
	}
	return names, nil
}

// isTestName matches the go test rule: Test followed by nothing or a
// non-lowercase rune.
func isTestName(name string) bool {
	rest, ok := strings.CutPrefix(name, "Test")
	if !ok {
		return false
	}
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsLower(r)
}

// RunPattern returns a -run pattern matching exactly the given tests.
func RunPattern(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}
