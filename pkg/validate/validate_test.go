package validate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/coverage"
	"github.com/dkoosis/autograde/pkg/grade"
	"github.com/dkoosis/autograde/pkg/results"
)

// fakeTB records failures instead of failing the real test.
type fakeTB struct {
	testing.TB
	errors []string
	fatal  bool
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Error(args ...any) { f.errors = append(f.errors, fmt.Sprint(args...)) }

func (f *fakeTB) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Fatal(args ...any) {
	f.fatal = true
	f.Error(args...)
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.fatal = true
	f.Errorf(format, args...)
}

// fakeSpawner writes canned artifacts to the paths named in the arguments.
// docs are written one per call; once they run out doc is written.
type fakeSpawner struct {
	doc    *results.Document
	docs   []*results.Document
	report *coverage.Report
	calls  [][]string
	dirs   []string
}

func (s *fakeSpawner) Spawn(_ context.Context, dir string, args []string) (Child, error) {
	s.calls = append(s.calls, args)
	s.dirs = append(s.dirs, dir)
	d := s.doc
	if n := len(s.calls) - 1; n < len(s.docs) {
		d = s.docs[n]
	}
	if d != nil {
		if err := results.Save(flag(args, "--results"), d); err != nil {
			return Child{}, err
		}
	}
	if s.report != nil {
		if err := coverage.Save(flag(args, "--coverage-out"), s.report); err != nil {
			return Child{}, err
		}
	}
	return Child{ExitCode: 1}, nil
}

func flag(args []string, name string) string {
	for i, a := range args {
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

const studentTests = `package shapes

import "testing"

func TestArea(t *testing.T) {}

func TestPerimeter(t *testing.T) {}

func TestAutograde(t *testing.T) {}

func Testlowercase(t *testing.T) {}

func helper(t *testing.T) {}

func BenchmarkArea(b *testing.B) {}
`

func writePackage(t *testing.T) (impl, tests string) {
	t.Helper()
	dir := t.TempDir()
	impl = filepath.Join(dir, "shapes.go")
	tests = filepath.Join(dir, "shapes_test.go")
	require.NoError(t, os.WriteFile(impl, []byte("package shapes\n"), 0o644))
	require.NoError(t, os.WriteFile(tests, []byte(studentTests), 0o644))
	return impl, tests
}

// doc reports statuses for the student tests in declaration order.
func doc(statuses ...string) *results.Document {
	return docFor([]string{"TestArea", "TestPerimeter", "TestAutograde"}, statuses...)
}

func docFor(names []string, statuses ...string) *results.Document {
	d := results.New()
	for i, st := range statuses {
		d.Tests = append(d.Tests, results.Test{Name: names[i], Status: st, Output: "shapes_test.go:9: got 3"})
	}
	return d
}

func TestTestNames(t *testing.T) {
	_, tests := writePackage(t)
	names, err := TestNames(tests)
	require.NoError(t, err)
	assert.Equal(t, []string{"TestArea", "TestPerimeter", "TestAutograde"}, names)
}

func TestRunPattern(t *testing.T) {
	assert.Equal(t, "^(TestA|TestB)$", RunPattern([]string{"TestA", "TestB"}))
	assert.Equal(t, `^(Test\.x)$`, RunPattern([]string{"Test.x"}))
}

func TestAssertFail_AllFailedChargesNothing(t *testing.T) {
	impl, tests := writePackage(t)
	spawner := &fakeSpawner{doc: doc(results.StatusFailed, results.StatusFailed, results.StatusFailed)}
	tb := &fakeTB{TB: t}
	var out bytes.Buffer
	rec := grade.NewWriter(tb, &out, grade.Weight(4))
	out.Reset()

	AssertFail(tb, rec, impl, tests, WithSpawner(spawner))

	assert.Empty(t, tb.errors)
	assert.Empty(t, out.String(), "no score override")
	require.Len(t, spawner.calls, 1)
	args := spawner.calls[0]
	assert.Equal(t, "stub", flag(args, "--mode"))
	assert.Equal(t, "shapes.go", flag(args, "--target"))
	assert.Equal(t, "^(TestArea|TestPerimeter|TestAutograde)$", flag(args, "--run"))
	assert.Equal(t, ".", args[len(args)-1])
	assert.Equal(t, filepath.Dir(tests), spawner.dirs[0])
}

func TestAssertFail_ChargesDefects(t *testing.T) {
	impl, tests := writePackage(t)
	spawner := &fakeSpawner{doc: doc(results.StatusPassed, results.StatusFailed, results.StatusFailed)}
	tb := &fakeTB{TB: t}
	var out bytes.Buffer
	rec := grade.NewWriter(tb, &out, grade.Weight(4))
	out.Reset()

	AssertFail(tb, rec, impl, tests, WithSpawner(spawner), WithPenalty(1.5))

	require.Len(t, tb.errors, 1)
	assert.Equal(t, "random return values\n* TestArea did not fail\n    shapes_test.go:9: got 3\n", tb.errors[0])
	d, ok, err := grade.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, grade.KindScore, d.Kind)
	assert.InDelta(t, 2.5, *d.Score, 1e-9)
}

func TestAssertPass_ScoreFloorsAtZero(t *testing.T) {
	impl, tests := writePackage(t)
	spawner := &fakeSpawner{doc: doc(results.StatusFailed, results.StatusFailed, results.StatusFailed)}
	tb := &fakeTB{TB: t}
	var out bytes.Buffer
	rec := grade.NewWriter(tb, &out, grade.Weight(1))
	out.Reset()

	AssertPass(tb, rec, impl, tests, WithSpawner(spawner))

	require.Len(t, tb.errors, 1)
	assert.True(t, strings.HasPrefix(tb.errors[0], "actual return values\n* TestArea did not pass\n"))
	assert.Equal(t, "pass", flag(spawner.calls[0], "--mode"))
	assert.Empty(t, flag(spawner.calls[0], "--target"))
	d, _, err := grade.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Zero(t, *d.Score)
}

func TestAssertPass_UnweightedRecordOnlyFails(t *testing.T) {
	impl, tests := writePackage(t)
	spawner := &fakeSpawner{doc: doc(results.StatusFailed, results.StatusPassed, results.StatusPassed)}
	tb := &fakeTB{TB: t}
	var out bytes.Buffer
	rec := grade.NewWriter(tb, &out)
	out.Reset()

	AssertPass(tb, rec, impl, tests, WithSpawner(spawner))

	assert.Len(t, tb.errors, 1)
	assert.Empty(t, out.String())
}

func TestAssertFail_RerunsTestsCutShortByPanic(t *testing.T) {
	impl, tests := writePackage(t)
	spawner := &fakeSpawner{docs: []*results.Document{
		doc(results.StatusFailed),
		docFor([]string{"TestPerimeter", "TestAutograde"}, results.StatusPassed, results.StatusFailed),
	}}
	tb := &fakeTB{TB: t}
	var out bytes.Buffer
	rec := grade.NewWriter(tb, &out, grade.Weight(4))
	out.Reset()

	AssertFail(tb, rec, impl, tests, WithSpawner(spawner))

	require.Len(t, spawner.calls, 2)
	assert.Equal(t, "^(TestPerimeter|TestAutograde)$", flag(spawner.calls[1], "--run"))
	assert.Equal(t, "shapes.go", flag(spawner.calls[1], "--target"))
	require.Len(t, tb.errors, 1)
	assert.Equal(t, "random return values\n* TestPerimeter did not fail\n    shapes_test.go:9: got 3\n", tb.errors[0])
	d, _, err := grade.Parse(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, *d.Score, 1e-9)
}

func TestAssertFail_UnreportedTestIsDefect(t *testing.T) {
	impl, tests := writePackage(t)
	partial := doc(results.StatusFailed, results.StatusFailed)
	cases := []struct {
		name    string
		spawner *fakeSpawner
	}{
		{"rerun reports nothing new", &fakeSpawner{doc: partial}},
		{"rerun leaves no document", &fakeSpawner{docs: []*results.Document{partial}}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tb := &fakeTB{TB: t}
			var out bytes.Buffer
			rec := grade.NewWriter(tb, &out, grade.Weight(4))
			out.Reset()

			AssertFail(tb, rec, impl, tests, WithSpawner(tt.spawner))

			require.Len(t, tt.spawner.calls, 2)
			assert.Equal(t, "^(TestAutograde)$", flag(tt.spawner.calls[1], "--run"))
			assert.Equal(t, []string{"random return values\n* TestAutograde did not report a result\n"}, tb.errors)
			d, _, err := grade.Parse(strings.TrimSpace(out.String()))
			require.NoError(t, err)
			assert.InDelta(t, 3.0, *d.Score, 1e-9)
		})
	}
}

func TestDefects(t *testing.T) {
	n, out := Defects(doc(results.StatusPassed, results.StatusPassed).Tests, []string{"TestAutograde"}, results.StatusPassed)
	assert.Equal(t, 1, n)
	assert.Equal(t, "actual return values\n* TestAutograde did not report a result\n", out)
}

func TestAssertFail_MissingResults(t *testing.T) {
	impl, tests := writePackage(t)
	tb := &fakeTB{TB: t}

	AssertFail(tb, nil, impl, tests, WithSpawner(&fakeSpawner{}))

	assert.True(t, tb.fatal)
	assert.Equal(t, []string{MsgNoResults}, tb.errors)
}

func TestAssertFail_CollectionFailureCountsAsMissing(t *testing.T) {
	impl, tests := writePackage(t)
	d := results.New()
	d.Tests = []results.Test{{Name: "example.com/shapes [build failed]", Status: results.StatusFailed}}
	tb := &fakeTB{TB: t}

	AssertFail(tb, nil, impl, tests, WithSpawner(&fakeSpawner{doc: d}))

	assert.Equal(t, []string{MsgNoResults}, tb.errors)
}

func TestAssertCover(t *testing.T) {
	impl, tests := writePackage(t)
	report := &coverage.Report{Files: map[string]coverage.File{
		"shapes.go": {Functions: map[string]coverage.Function{
			"Area":      {StartLine: 3},
			"Perimeter": {StartLine: 8, MissingLines: []int{10, 12}, MissingBranches: []string{"9->10"}},
		}},
	}}

	cases := []struct {
		name   string
		opts   []Option
		score  float64
		output string
	}{
		{
			name:   "lines",
			score:  8,
			output: "incomplete coverage\n* Perimeter\n    Lines: 10, 12\n",
		},
		{
			name:   "branches",
			opts:   []Option{WithBranches(), WithBranchPenalty(3)},
			score:  5,
			output: "incomplete coverage\n* Perimeter\n    Lines: 10, 12\n    Branches: 9->10\n",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			spawner := &fakeSpawner{report: report}
			tb := &fakeTB{TB: t}
			var out bytes.Buffer
			rec := grade.NewWriter(tb, &out, grade.Weight(10))
			out.Reset()

			AssertCover(tb, rec, impl, tests, append(tt.opts, WithSpawner(spawner))...)

			require.Equal(t, []string{tt.output}, tb.errors)
			d, _, err := grade.Parse(strings.TrimSpace(out.String()))
			require.NoError(t, err)
			assert.InDelta(t, tt.score, *d.Score, 1e-9)
			assert.Equal(t, "shapes.go", flag(spawner.calls[0], "--cover"))
		})
	}
}

func TestAssertCover_MissingReport(t *testing.T) {
	impl, tests := writePackage(t)
	tb := &fakeTB{TB: t}

	AssertCover(tb, nil, impl, tests, WithSpawner(&fakeSpawner{}))

	assert.Equal(t, []string{MsgNoCoverage}, tb.errors)
}

func TestIncomplete_CompleteFile(t *testing.T) {
	f := coverage.File{Functions: map[string]coverage.Function{"Area": {StartLine: 1}}}
	points, _ := Incomplete(f, 1, 1, true)
	assert.Zero(t, points)
}
