package testjson

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dkoosis/autograde/pkg/grade"
	"github.com/dkoosis/autograde/pkg/results"
	"github.com/dkoosis/autograde/pkg/session"
)

// Sink receives what the ingester learns about each test.
// *session.Session implements it.
type Sink interface {
	Register(id string)
	Alias(id, short string)
	Record(r session.PhaseReport)
	Complete(id string)
	Declare(id string, d session.Declaration)
	SetScore(id string, score float64)
	SetOutput(id, output string)
	AddLeaderboard(id string, entries ...results.LeaderboardEntry)
	Postpone(p session.Placeholder)
}

// Ingester converts go test -json events into phase reports.
//
// Tests are identified as package.Test and shown under their bare name
// unless another package has a test of the same name. Directives resolve
// against the package that printed them. Each top-level test yields one
// call phase when it finishes; subtest
// output is folded into its parent. A package that fails to build or runs
// no tests yields one failed setup phase for a synthetic entry named after
// the package. Tests still running when their package ends get a failed
// call phase carrying the package output.
type Ingester struct {
	sink     Sink
	logger   *slog.Logger
	observer ProcessFunc

	packages map[string]*pkgState
	order    []string
	builds   map[string][]string // build output by import path
	summary  Summary
}

type pkgState struct {
	name      string
	output    []string // package-level lines
	tests     map[string]*testState // by bare test name
	testOrder []string
	partial   map[string]string // unterminated output by test name
	done      bool
}

type testState struct {
	id       string
	lines    []string
	abort    *string
	finished bool
}

// IngestOption configures an Ingester.
type IngestOption func(*Ingester)

// WithLogger sets the logger for malformed directives and synthetic reports.
func WithLogger(l *slog.Logger) IngestOption {
	return func(in *Ingester) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithObserver passes every event to fn after the ingester has handled it.
func WithObserver(fn ProcessFunc) IngestOption {
	return func(in *Ingester) { in.observer = fn }
}

// NewIngester returns an ingester feeding sink.
func NewIngester(sink Sink, opts ...IngestOption) *Ingester {
	in := &Ingester{
		sink:     sink,
		logger:   slog.New(slog.DiscardHandler),
		packages: make(map[string]*pkgState),
		builds:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest reads events from r until EOF or cancellation. Call Finish once
// the producing process has exited.
func (in *Ingester) Ingest(ctx context.Context, r io.Reader) error {
	malformed, err := Stream(ctx, r, in.Handle)
	in.summary.Malformed += malformed
	if malformed > 0 {
		in.logger.Warn("skipped malformed test events", "count", malformed)
	}
	if err != nil {
		return fmt.Errorf("reading test events: %w", err)
	}
	return nil
}

// Summary returns counts of what has been ingested so far.
func (in *Ingester) Summary() Summary {
	return in.summary
}

func (in *Ingester) pkg(name string) *pkgState {
	if p, ok := in.packages[name]; ok {
		return p
	}
	p := &pkgState{
		name:    name,
		tests:   make(map[string]*testState),
		partial: make(map[string]string),
	}
	in.packages[name] = p
	in.order = append(in.order, name)
	in.summary.Packages++
	return p
}

func (in *Ingester) test(p *pkgState, name string) *testState {
	if ts, ok := p.tests[name]; ok {
		return ts
	}
	ts := &testState{id: testKey(p.name, name)}
	p.tests[name] = ts
	p.testOrder = append(p.testOrder, name)
	in.sink.Register(ts.id)
	in.sink.Alias(ts.id, name)
	return ts
}

// testKey identifies test name within pkg.
func testKey(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// Handle processes one event.
func (in *Ingester) Handle(e TestEvent) {
	switch e.Action {
	case ActionBuildOutput:
		in.builds[e.ImportPath] = append(in.builds[e.ImportPath], strings.TrimRight(e.Output, "\n"))
	case ActionBuildFail:
	case ActionStart:
		in.pkg(e.Package)
	case ActionRun:
		if e.Test != "" && !strings.Contains(e.Test, "/") {
			in.test(in.pkg(e.Package), e.Test)
		}
	case ActionOutput:
		in.output(in.pkg(e.Package), e.Test, e.Output)
	case ActionPass, ActionFail, ActionSkip:
		p := in.pkg(e.Package)
		switch {
		case e.Test == "":
			in.finishPackage(p, e, "")
		case !strings.Contains(e.Test, "/"):
			in.finishTest(p, e)
		}
	}
	if in.observer != nil {
		in.observer(e)
	}
}

// output splits raw output into lines; a line may span several events.
func (in *Ingester) output(p *pkgState, test, text string) {
	text = p.partial[test] + text
	lines := strings.Split(text, "\n")
	p.partial[test] = lines[len(lines)-1]
	if p.partial[test] == "" {
		delete(p.partial, test)
	}
	for _, line := range lines[:len(lines)-1] {
		in.line(p, test, line)
	}
}

func (in *Ingester) flush(p *pkgState, test string) {
	if rest, ok := p.partial[test]; ok {
		delete(p.partial, test)
		in.line(p, test, rest)
	}
}

func (in *Ingester) line(p *pkgState, test, line string) {
	line = strings.TrimSuffix(line, "\r")
	d, ok, err := grade.Parse(line)
	if err != nil {
		in.logger.Warn("ignoring malformed directive", "package", p.name, "test", test, "error", err)
		return
	}
	if ok {
		in.apply(p, d)
		return
	}
	if test == "" {
		p.output = append(p.output, line)
		return
	}
	ts := in.test(p, TopLevel(test))
	ts.lines = append(ts.lines, line)
}

func (in *Ingester) apply(p *pkgState, d grade.Directive) {
	switch d.Kind {
	case grade.KindDeclare:
		id := in.test(p, d.Test).id
		in.sink.Declare(id, session.Declaration{Name: d.Name, Weight: d.Weight, Required: d.Required})
	case grade.KindScore:
		if d.Score != nil {
			in.sink.SetScore(in.test(p, d.Test).id, *d.Score)
		}
	case grade.KindOutput:
		in.sink.SetOutput(in.test(p, d.Test).id, d.Output)
	case grade.KindLeaderboard:
		if d.Entry != nil {
			in.sink.AddLeaderboard(in.test(p, d.Test).id, *d.Entry)
		}
	case grade.KindAbort:
		msg := d.Message
		if strings.TrimSpace(msg) == "" {
			msg = "test aborted"
		}
		in.test(p, d.Test).abort = &msg
	case grade.KindPostpone:
		in.sink.Postpone(session.Placeholder{Title: d.Title, Message: d.Message})
	}
}

func (in *Ingester) finishTest(p *pkgState, e TestEvent) {
	for name := range p.partial {
		if TopLevel(name) == e.Test {
			in.flush(p, name)
		}
	}
	ts := in.test(p, e.Test)
	if ts.finished {
		return
	}
	ts.finished = true

	report := session.PhaseReport{Test: ts.id, Phase: session.PhaseCall}
	switch e.Action {
	case ActionPass:
		report.Outcome = session.Passed
		in.summary.Passed++
	case ActionFail:
		report.Outcome = session.Failed
		report.Diagnostic = Extract(ts.lines)
		in.summary.Failed++
	case ActionSkip:
		report.Outcome = session.Skipped
		report.SkipReason = Extract(ts.lines).Message
		in.summary.Skipped++
	}
	if ts.abort != nil {
		// An abort skips the test body; the report passes and carries
		// the abort message, which fails the test.
		switch report.Outcome {
		case session.Skipped:
			report.Outcome = session.Passed
			report.SkipReason = ""
			report.Diagnostic = session.Diagnostic{Kind: session.KindAbort, Message: *ts.abort, Detail: *ts.abort}
		case session.Failed:
			report.Diagnostic.Message = joinLines(report.Diagnostic.Message, *ts.abort)
			report.Diagnostic.Detail = joinLines(report.Diagnostic.Detail, *ts.abort)
		}
	}
	in.summary.Tests++
	in.sink.Record(report)
	in.sink.Complete(ts.id)
}

// finishPackage closes out p. fallback is used when a collection failure
// has no output of its own.
func (in *Ingester) finishPackage(p *pkgState, e TestEvent, fallback string) {
	if p.done {
		return
	}
	p.done = true
	for name := range p.partial {
		in.flush(p, name)
	}
	if e.Elapsed > 0 {
		in.summary.Elapsed = max(in.summary.Elapsed, time.Duration(e.Elapsed*float64(time.Second)))
	}

	if len(p.testOrder) == 0 {
		in.collectionFailure(p, e, fallback)
		return
	}

	for _, name := range p.testOrder {
		ts := p.tests[name]
		if ts.finished {
			continue
		}
		ts.finished = true
		diag := Extract(append(append([]string{}, ts.lines...), p.output...))
		if diag.Kind != session.KindPanic && strings.TrimSpace(diag.Message) == "" {
			diag.Message = "test did not finish"
		}
		in.logger.Debug("test did not finish", "package", p.name, "test", name)
		in.summary.Tests++
		in.summary.Failed++
		in.sink.Record(session.PhaseReport{Test: ts.id, Phase: session.PhaseCall, Outcome: session.Failed, Diagnostic: diag})
		in.sink.Complete(ts.id)
	}
}

func (in *Ingester) collectionFailure(p *pkgState, e TestEvent, fallback string) {
	var (
		name = p.name + SuffixNoTests
		text string
	)
	if e.Action == ActionFail || e.FailedBuild != "" {
		name = p.name + SuffixBuildFailed
		text = strings.Join(in.builds[e.FailedBuild], "\n")
	}
	if strings.TrimSpace(text) == "" {
		text = Extract(p.output).Detail
	}
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "no tests to run"
	}
	in.CollectionFailure(name, text)
}

// CollectionFailure records a synthetic failed entry for a unit whose tests
// could not be collected.
func (in *Ingester) CollectionFailure(name, text string) {
	in.logger.Debug("collection failure", "name", name)
	in.summary.CollectionFailures++
	in.sink.Register(name)
	in.sink.Record(session.PhaseReport{
		Test:       name,
		Phase:      session.PhaseSetup,
		Outcome:    session.Failed,
		Diagnostic: session.Diagnostic{Kind: session.KindBuild, Message: text, Detail: text},
	})
	in.sink.Complete(name)
}

// Finish closes every package the stream left open, as when the test
// binary was killed. fallback (typically go test's stderr) is used as the
// text of collection failures that produced no output.
func (in *Ingester) Finish(fallback string) {
	for _, name := range in.order {
		p := in.packages[name]
		if p.done {
			continue
		}
		action := ActionFail
		if len(p.testOrder) == 0 && strings.TrimSpace(fallback) == "" && len(p.output) == 0 {
			action = ActionPass
		}
		in.finishPackage(p, TestEvent{Action: action, Package: name}, fallback)
	}
}

func joinLines(a, b string) string {
	if strings.TrimSpace(a) == "" {
		return b
	}
	return a + "\n" + b
}
