package session

import (
	"strings"

	"github.com/dkoosis/autograde/pkg/results"
)

// verdict is the synthesized summary of one test.
type verdict struct {
	test   results.Test
	score  float64
	status string
}

func (v verdict) failed() bool {
	return v.status == results.StatusFailed
}

// synthesize computes score, status and output for one test.
//
// Output precedence: the test's own output first, then per phase in arrival
// order the skip reason, the assertion detail of a failure, or the full text
// of a diagnostic attached to a phase that nonetheless passed (an abort).
// An abort counts as a failure for status, score and gating.
func synthesize(o CorrelatedOutcome, mode Mode) verdict {
	rec := o.Record

	status := results.StatusPassed
	if o.any(Skipped) {
		status = results.StatusSkipped
	}

	parts := []string{rec.Output}
	for _, r := range o.Reports {
		switch {
		case r.Outcome == Skipped:
			parts = append(parts, r.SkipReason)
		case r.Outcome == Failed:
			parts = append(parts, r.Diagnostic.Message)
			status = results.StatusFailed
		case !r.Diagnostic.Empty():
			parts = append(parts, r.Diagnostic.full())
			status = results.StatusFailed
		}
	}

	var score float64
	switch {
	case rec.Score != nil:
		score = *rec.Score
	case status == results.StatusFailed:
		score = 0
	default:
		score = rec.Weight
	}

	v := verdict{
		test: results.Test{
			Name:   rec.DisplayName(),
			Output: joinOutput(parts),
		},
		score:  score,
		status: status,
	}
	// A 0/0 bar reads as a deduction; leave it off.
	if rec.Weight != 0 || score != 0 {
		v.test.Score = results.Float(score)
		v.test.MaxScore = results.Float(rec.Weight)
	}
	if mode.Validating() {
		v.test.Status = status
	}
	return v
}

// joinOutput concatenates the non-empty parts one per line and trims the result.
func joinOutput(parts []string) string {
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(p)
	}
	return strings.TrimSpace(sb.String())
}
