package testjson

import (
	"fmt"
	"time"
)

// Summary counts the tests and packages an Ingester has seen.
type Summary struct {
	Packages           int
	Tests              int
	Passed             int
	Failed             int
	Skipped            int
	CollectionFailures int
	Malformed          int
	Elapsed            time.Duration
}

// OK reports whether every test passed or was skipped and every package
// was collected.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.CollectionFailures == 0
}

func (s Summary) String() string {
	status := "PASS"
	if !s.OK() {
		status = "FAIL"
	}
	out := fmt.Sprintf("%s %d passed, %d failed, %d skipped in %d packages (%.1fs)",
		status, s.Passed, s.Failed, s.Skipped, s.Packages, s.Elapsed.Seconds())
	if s.CollectionFailures > 0 {
		out += fmt.Sprintf(", %d not collected", s.CollectionFailures)
	}
	return out
}
