package session

import "iter"

// CorrelatedOutcome is every phase report received for one test.
type CorrelatedOutcome struct {
	Record  *TestRecord
	Reports []PhaseReport
}

// Clean reports whether every phase passed.
func (o CorrelatedOutcome) Clean() bool {
	for _, r := range o.Reports {
		if r.Outcome != Passed {
			return false
		}
	}
	return true
}

func (o CorrelatedOutcome) any(outcome Outcome) bool {
	for _, r := range o.Reports {
		if r.Outcome == outcome {
			return true
		}
	}
	return false
}

// Correlator groups phase reports by test identity in first-observed order.
type Correlator struct {
	records  map[string]*TestRecord
	reports  map[string][]PhaseReport
	order    []string
	consumed bool
}

// NewCorrelator returns an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{
		records: make(map[string]*TestRecord),
		reports: make(map[string][]PhaseReport),
	}
}

// Register returns the record for id, creating it on first sight.
func (c *Correlator) Register(id string) *TestRecord {
	if rec, ok := c.records[id]; ok {
		return rec
	}
	rec := &TestRecord{ID: id}
	c.records[id] = rec
	c.order = append(c.order, id)
	return rec
}

// Lookup returns the record for id without creating it.
func (c *Correlator) Lookup(id string) (*TestRecord, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// Record appends a phase report to its test's bucket.
func (c *Correlator) Record(r PhaseReport) {
	c.Register(r.Test)
	c.reports[r.Test] = append(c.reports[r.Test], r)
}

// markAmbiguous flags every record whose short name another record shares.
func (c *Correlator) markAmbiguous() {
	seen := make(map[string]int, len(c.records))
	for _, rec := range c.records {
		if rec.Short != "" {
			seen[rec.Short]++
		}
	}
	for _, rec := range c.records {
		rec.ambiguous = seen[rec.Short] > 1
	}
}

// Len returns the number of tests observed.
func (c *Correlator) Len() int {
	return len(c.order)
}

// Outcomes yields one CorrelatedOutcome per test in first-observed order.
// The sequence can be consumed once; later calls yield nothing.
func (c *Correlator) Outcomes() iter.Seq[CorrelatedOutcome] {
	return func(yield func(CorrelatedOutcome) bool) {
		if c.consumed {
			return
		}
		c.consumed = true
		for _, id := range c.order {
			if !yield(CorrelatedOutcome{Record: c.records[id], Reports: c.reports[id]}) {
				return
			}
		}
	}
}
