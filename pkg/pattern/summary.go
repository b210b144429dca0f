package pattern

// SummaryKind identifies the source artifact for dispatch.
type SummaryKind string

const (
	SummaryKindResults    SummaryKind = "results"
	SummaryKindCoverage   SummaryKind = "coverage"
	SummaryKindComparison SummaryKind = "comparison"
	SummaryKindAnalysis   SummaryKind = "analysis"
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string
	Kind    SummaryKind
	Metrics []SummaryItem
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string // e.g., "Score", "Failed", "Missing lines"
	Value string // formatted value
	Kind  string // "success", "error", "warning", "info"; affects coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
