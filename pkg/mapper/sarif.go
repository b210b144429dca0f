package mapper

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/sarif"
)

// FromSARIF converts static findings into a Summary and one TestTable per
// file. Errors are failing rows; warnings and notes are skipped rows.
func FromSARIF(doc *sarif.Document) []pattern.Pattern {
	counts := sarif.Count(doc)
	total := 0
	for _, n := range counts {
		total += n
	}

	label := "CLEAN no findings"
	if total > 0 {
		label = fmt.Sprintf("FINDINGS %d", total)
	}
	var metrics []pattern.SummaryItem
	for _, level := range []struct{ name, label, kind string }{
		{"error", "Errors", kindError},
		{"warning", "Warnings", kindWarning},
		{"note", "Notes", kindInfo},
	} {
		if n := counts[level.name]; n > 0 {
			metrics = append(metrics, pattern.SummaryItem{Label: level.label, Value: strconv.Itoa(n), Kind: level.kind})
		}
	}
	patterns := []pattern.Pattern{&pattern.Summary{Label: label, Kind: pattern.SummaryKindAnalysis, Metrics: metrics}}

	for _, g := range sarif.GroupByFile(doc) {
		results := slices.Clone(g.Results)
		slices.SortStableFunc(results, func(a, b sarif.Result) int {
			return cmp.Or(cmp.Compare(levelRank(a.Level), levelRank(b.Level)), cmp.Compare(line(a), line(b)))
		})
		items := make([]pattern.TestTableItem, 0, len(results))
		for _, r := range results {
			status := pattern.StatusSkip
			if r.Level == "error" {
				status = pattern.StatusFail
			}
			name := r.RuleID
			if l := line(r); l > 0 {
				name = fmt.Sprintf("%s:%d", r.RuleID, l)
			}
			items = append(items, pattern.TestTableItem{Name: name, Status: status, Details: r.Message.Text})
		}
		patterns = append(patterns, &pattern.TestTable{Label: g.Key, Results: items})
	}
	return patterns
}

func levelRank(level string) int {
	switch level {
	case "error":
		return 0
	case "warning":
		return 1
	default:
		return 2
	}
}

func line(r sarif.Result) int {
	if len(r.Locations) == 0 {
		return 0
	}
	return r.Locations[0].PhysicalLocation.Region.StartLine
}
