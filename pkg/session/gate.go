package session

import (
	"strings"

	"github.com/dkoosis/autograde/pkg/results"
)

// GateNotice is appended to a required test that failed.
const GateNotice = "This test must pass before other results are visible."

// gate stops the result list after the first required test that fails.
type gate struct {
	stoppedBy string
}

// admit reports whether processing may continue after v. A failed required
// test gets the notice appended and ends the list.
func (g *gate) admit(rec *TestRecord, v *verdict) bool {
	if !rec.Required || !v.failed() {
		return true
	}
	v.test.Output = strings.TrimSpace(v.test.Output + "\n\n" + GateNotice)
	if v.test.Status != "" {
		v.test.Status = results.StatusFailed
	}
	g.stoppedBy = rec.DisplayName()
	return false
}

func (g *gate) stopped() bool {
	return g.stoppedBy != ""
}
