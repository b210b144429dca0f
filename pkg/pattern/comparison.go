package pattern

// Comparison represents before/after score changes between two runs.
type Comparison struct {
	Label   string
	Changes []ComparisonItem
}

// ComparisonItem is a single before/after delta.
type ComparisonItem struct {
	Label  string
	Before string
	After  string
	Change float64 // positive or negative
	Unit   string  // e.g., "pts"
}

func (c *Comparison) Type() PatternType { return PatternTypeComparison }
