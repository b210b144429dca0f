package testjson

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkoosis/autograde/pkg/session"
)

func TestExtract_AssertionDetail(t *testing.T) {
	lines := []string{
		"=== RUN   TestArea",
		"radius is 7",
		"    circle_test.go:14: incorrect surface_area",
		"    circle_test.go:15: want 6",
		"        got 5",
		"--- FAIL: TestArea (0.00s)",
	}
	d := Extract(lines)

	assert.Equal(t, session.KindAssertion, d.Kind)
	assert.Equal(t, "incorrect surface_area\nwant 6\ngot 5", d.Message)
	assert.Equal(t, "radius is 7\n    circle_test.go:14: incorrect surface_area\n    circle_test.go:15: want 6\n        got 5", d.Detail)
}

func TestExtract_TestifyContinuation(t *testing.T) {
	lines := []string{
		"    area_test.go:21: ",
		"        \tError Trace:\t/work/area_test.go:21",
		"        \tError:      \tNot equal: ",
		"        \t            \texpected: 6",
		"        \t            \tactual  : 5",
		"--- FAIL: TestArea (0.00s)",
	}
	d := Extract(lines)

	assert.Equal(t, "Error Trace:\t/work/area_test.go:21\n"+
		"Error:      \tNot equal:\n"+
		"            \texpected: 6\n"+
		"            \tactual  : 5", d.Message)
}

func TestExtract_SubtestDetail(t *testing.T) {
	lines := []string{
		"=== RUN   TestTable/zero",
		"    --- FAIL: TestTable/zero (0.00s)",
		"        table_test.go:30: divide by zero",
		"            input was 0",
	}
	d := Extract(lines)
	assert.Equal(t, "divide by zero\ninput was 0", d.Message)
}

func TestExtract_Panic(t *testing.T) {
	lines := []string{
		"--- FAIL: TestIndex (0.00s)",
		"panic: runtime error: index out of range [5] with length 3 [recovered]",
		"\tpanic: runtime error: index out of range [5] with length 3",
		"",
		"goroutine 7 [running]:",
		"testing.tRunner.func1.2({0x5f2a40, 0xc000018090})",
	}
	d := Extract(lines)

	assert.Equal(t, session.KindPanic, d.Kind)
	assert.Equal(t, "panic: runtime error: index out of range [5] with length 3 [recovered]\n"+
		"panic: runtime error: index out of range [5] with length 3", d.Message)
	assert.Contains(t, d.Detail, "goroutine 7 [running]:")
}

func TestExtract_FallsBackToOutput(t *testing.T) {
	d := Extract([]string{"=== RUN   TestExit", "unexpected call to os.Exit(3) during test"})
	assert.Equal(t, "unexpected call to os.Exit(3) during test", d.Message)
}

func TestExtract_Empty(t *testing.T) {
	d := Extract([]string{"=== RUN   TestSkip", "--- SKIP: TestSkip (0.00s)"})
	assert.True(t, d.Empty())
}

func TestExtract_BlankContinuationLines(t *testing.T) {
	lines := []string{
		"    grade_test.go:40: random return values",
		"        * TestArea did not fail",
		"        ",
		"            want 6, got 5",
		"--- FAIL: TestStubs (0.10s)",
	}
	d := Extract(lines)
	assert.Equal(t, "random return values\n* TestArea did not fail\n\n    want 6, got 5", d.Message)
}
