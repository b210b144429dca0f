// Package limit enforces the per-assignment submission limit.
package limit

import (
	"fmt"
	"time"

	"github.com/dkoosis/autograde/pkg/meta"
	"github.com/dkoosis/autograde/pkg/results"
)

// ExceededMessage is appended to the output when the limit is exceeded.
const ExceededMessage = "Limit exceeded. Please click the Submission History button " +
	"and activate the submission you would like to be graded."

const stampLayout = "Jan 02 at 15:04:05"

// Verdict is the outcome of a limit check.
type Verdict struct {
	Number   int // this submission's number among counted submissions
	Limit    int // negative means unlimited
	Output   string
	Exceeded bool
}

// Check counts this submission against limit. m may be nil when no
// metadata is available, in which case now is used as the timestamp and
// there are no previous submissions.
func Check(m *meta.Metadata, limit int, loc *time.Location, now time.Time) Verdict {
	stamp := now
	total := 1
	if m != nil {
		stamp = m.CreatedAt
		for _, s := range m.PreviousSubmissions {
			if s.Counted() {
				total++
			}
		}
	}
	if loc != nil {
		stamp = stamp.In(loc)
	}

	v := Verdict{Number: total, Limit: limit}
	if limit < 0 {
		v.Output = fmt.Sprintf("Submission %d of unlimited -- %s", total, stamp.Format(stampLayout))
		return v
	}
	v.Output = fmt.Sprintf("Submission %d of %d -- %s", total, limit, stamp.Format(stampLayout))
	if total > limit {
		v.Output += "\n\n" + ExceededMessage
		v.Exceeded = true
	}
	return v
}

// Seed writes the results document a later grading run builds on. The
// valid_files marker is what lets future submissions count this one.
func Seed(path string, v Verdict) error {
	doc := results.New()
	if err := doc.SetExtra("extra_data", map[string]any{"valid_files": true}); err != nil {
		return err
	}
	if err := doc.SetExtra("output", v.Output); err != nil {
		return err
	}
	return results.Save(path, doc)
}
