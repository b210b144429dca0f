package stream

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dkoosis/autograde/pkg/grade"
	"github.com/dkoosis/autograde/pkg/testjson"
)

// LineKind identifies the type of output line for styling.
type LineKind int

const (
	KindPass LineKind = iota
	KindFail
	KindSkip
	KindBuildFail
	KindOutput
	KindSeparator
)

// StyleFunc formats a line with colors/symbols. If nil, no styling is applied.
type StyleFunc func(kind LineKind, text string) string

// activeTest is a top-level test that has started but not finished.
type activeTest struct {
	pkg     string
	name    string
	started time.Time
}

// Progress renders one line per finished top-level test, with failure
// output beneath, and a footer listing the tests still running. Feed it
// events through Observe.
type Progress struct {
	tw    *termWriter
	style StyleFunc
	now   func() time.Time

	active  map[string]*activeTest // keyed by "pkg\x00test"
	order   []string
	weights map[string]float64 // declared weights by test name
	output  map[string][]string
	builds  map[string][]string // build output by import path
	failed  bool
}

// New creates a Progress writing to out, a terminal of the given size.
func New(out io.Writer, width, height int, style StyleFunc) *Progress {
	return &Progress{
		tw:      newTermWriter(out, width, height),
		style:   style,
		now:     time.Now,
		active:  make(map[string]*activeTest),
		weights: make(map[string]float64),
		output:  make(map[string][]string),
		builds:  make(map[string][]string),
	}
}

func key(pkg, test string) string {
	return pkg + "\x00" + test
}

func shortPkg(pkg string) string {
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

func (p *Progress) styleLine(kind LineKind, text string) string {
	if p.style != nil {
		return p.style(kind, text)
	}
	return text
}

func (p *Progress) print(kind LineKind, text string) {
	p.tw.EraseFooter()
	p.tw.PrintLine(p.styleLine(kind, text))
}

// Observe handles one go test event. It has the testjson.ProcessFunc shape.
func (p *Progress) Observe(e testjson.TestEvent) {
	switch e.Action {
	case testjson.ActionBuildOutput:
		p.builds[e.ImportPath] = append(p.builds[e.ImportPath], strings.TrimRight(e.Output, "\n"))
	case testjson.ActionBuildFail:
		p.failed = true
		p.print(KindBuildFail, fmt.Sprintf("  ✗ %s [build failed]", e.ImportPath))
		for _, line := range p.builds[e.ImportPath] {
			p.print(KindOutput, "      "+line)
		}
		delete(p.builds, e.ImportPath)
	case testjson.ActionRun:
		if e.Test != "" && !strings.Contains(e.Test, "/") {
			k := key(e.Package, e.Test)
			p.active[k] = &activeTest{pkg: e.Package, name: e.Test, started: p.now()}
			p.order = append(p.order, k)
		}
	case testjson.ActionOutput:
		p.observeOutput(e)
	case testjson.ActionPass, testjson.ActionFail, testjson.ActionSkip:
		if e.Test == "" {
			p.finishPackage(e)
		} else if !strings.Contains(e.Test, "/") {
			p.finishTest(e)
		}
	}
	p.redrawFooter()
}

func (p *Progress) observeOutput(e testjson.TestEvent) {
	line := strings.TrimRight(e.Output, "\n")
	if line == "" {
		return
	}
	if grade.IsDirective(line) {
		if d, ok, err := grade.Parse(line); ok && err == nil && d.Kind == grade.KindDeclare {
			p.weights[d.Test] = d.Weight
		}
		return
	}
	if isBoilerplate(line) {
		return
	}
	test := testjson.TopLevel(e.Test)
	k := key(e.Package, test)
	p.output[k] = append(p.output[k], line)
}

func (p *Progress) finishTest(e testjson.TestEvent) {
	k := key(e.Package, e.Test)
	delete(p.active, k)

	pts := ""
	if w := p.weights[e.Test]; w > 0 {
		pts = fmt.Sprintf("%g pts", w)
	}
	var kind LineKind
	var symbol string
	switch e.Action {
	case testjson.ActionPass:
		kind, symbol = KindPass, "·"
	case testjson.ActionFail:
		kind, symbol = KindFail, "✗"
		p.failed = true
	default:
		kind, symbol = KindSkip, "○"
	}
	p.print(kind, fmt.Sprintf("  %-10s %s %-40s %8s %5.2fs", shortPkg(e.Package), symbol, e.Test, pts, e.Elapsed))

	if kind == KindFail {
		for _, line := range p.output[k] {
			p.print(KindOutput, "             "+line)
		}
	}
	delete(p.output, k)
}

func (p *Progress) finishPackage(e testjson.TestEvent) {
	k := key(e.Package, "")
	if e.Action == testjson.ActionFail {
		p.failed = true
		for _, line := range p.output[k] {
			if strings.Contains(line, "panic:") || strings.HasPrefix(line, "FAIL") {
				p.print(KindOutput, "  "+line)
			}
		}
	}
	delete(p.output, k)
}

func isBoilerplate(s string) bool {
	trimmed := strings.TrimSpace(s)
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "--- FAIL", "--- PASS", "--- SKIP"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func (p *Progress) redrawFooter() {
	live := p.order[:0]
	for _, k := range p.order {
		if _, ok := p.active[k]; ok {
			live = append(live, k)
		}
	}
	p.order = live
	if len(p.order) == 0 {
		return
	}

	lines := []string{"  ─── running " + strings.Repeat("─", 30)}
	now := p.now()
	for _, k := range p.order {
		t := p.active[k]
		lines = append(lines, fmt.Sprintf("  %-10s %-40s %5.1fs", shortPkg(t.pkg), t.name, now.Sub(t.started).Seconds()))
	}
	p.tw.EraseFooter()
	p.tw.DrawFooter(lines)
}

// Finish erases the footer and prints the run's summary line.
func (p *Progress) Finish(s testjson.Summary) {
	p.tw.EraseFooter()
	p.tw.PrintLine(p.styleLine(KindSeparator, "  "+strings.Repeat("─", 45)))
	kind := KindPass
	if p.failed || !s.OK() {
		kind = KindFail
	}
	p.tw.PrintLine(p.styleLine(kind, "  "+s.String()))
}
