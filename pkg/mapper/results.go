// Package mapper converts autograde artifacts into visualization patterns.
package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/results"
)

const (
	kindSuccess = "success"
	kindError   = "error"
	kindWarning = "warning"
	kindInfo    = "info"
)

// FromResults converts a grading document into patterns.
// Returns: Summary, score Sparkline when scores are visible, a TestTable of
// failing tests, a TestTable of the rest, then the Leaderboard.
func FromResults(doc *results.Document) []pattern.Pattern {
	var failing, rest []pattern.TestTableItem
	var fractions []float64
	counts := map[string]int{}

	for _, t := range doc.Tests {
		status := TestStatus(t)
		counts[status]++
		item := pattern.TestTableItem{
			Name:    t.Name,
			Status:  status,
			Score:   formatScore(t),
			Details: strings.TrimRight(t.Output, "\n"),
		}
		if t.Score != nil && t.MaxScore != nil && *t.MaxScore > 0 {
			fractions = append(fractions, 100*(*t.Score)/(*t.MaxScore))
		}
		if status == pattern.StatusFail {
			failing = append(failing, item)
		} else {
			rest = append(rest, item)
		}
	}

	patterns := []pattern.Pattern{resultsSummary(doc, counts)}
	if len(fractions) > 1 {
		patterns = append(patterns, &pattern.Sparkline{
			Label:  "Scores",
			Values: fractions,
			Min:    0,
			Max:    100,
			Unit:   "%",
		})
	}
	if len(failing) > 0 {
		patterns = append(patterns, &pattern.TestTable{
			Label:   fmt.Sprintf("Failed (%d)", len(failing)),
			Results: failing,
		})
	}
	if len(rest) > 0 {
		label := fmt.Sprintf("Tests (%d)", len(rest))
		if len(failing) > 0 {
			label = fmt.Sprintf("Other Tests (%d)", len(rest))
		}
		patterns = append(patterns, &pattern.TestTable{Label: label, Results: rest})
	}
	if lb := leaderboard(doc.Leaderboard); lb != nil {
		patterns = append(patterns, lb)
	}
	return patterns
}

// TestStatus classifies a test summary. An explicit status wins; otherwise
// a visible score decides, and a test with neither is pending.
func TestStatus(t results.Test) string {
	switch t.Status {
	case results.StatusPassed:
		return pattern.StatusPass
	case results.StatusFailed:
		return pattern.StatusFail
	case results.StatusSkipped:
		return pattern.StatusSkip
	}
	if t.Score != nil && t.MaxScore != nil {
		if *t.Score >= *t.MaxScore {
			return pattern.StatusPass
		}
		return pattern.StatusFail
	}
	return pattern.StatusWIP
}

func resultsSummary(doc *results.Document, counts map[string]int) *pattern.Summary {
	var metrics []pattern.SummaryItem
	total := doc.MaxScore()
	if total > 0 || doc.Score > 0 {
		kind := kindSuccess
		if doc.Score < total {
			kind = kindWarning
		}
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Score", Value: formatPoints(doc.Score) + "/" + formatPoints(total), Kind: kind,
		})
	}
	if n := counts[pattern.StatusFail]; n > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Failed", Value: fmt.Sprintf("%d/%d tests", n, len(doc.Tests)), Kind: kindError,
		})
	}
	if n := counts[pattern.StatusPass]; n > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Passed", Value: fmt.Sprintf("%d/%d tests", n, len(doc.Tests)), Kind: kindSuccess,
		})
	}
	if n := counts[pattern.StatusSkip]; n > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Skipped", Value: strconv.Itoa(n), Kind: kindWarning,
		})
	}
	if n := counts[pattern.StatusWIP]; n > 0 {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Pending", Value: strconv.Itoa(n), Kind: kindInfo,
		})
	}
	if doc.Status == results.StatusGated {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Gated", Value: "a required test failed", Kind: kindError,
		})
	}

	var label string
	switch {
	case len(doc.Tests) == 0:
		label = "NO TESTS"
	case counts[pattern.StatusFail] > 0 || doc.Status == results.StatusGated:
		label = fmt.Sprintf("FAIL %d/%d tests", counts[pattern.StatusFail], len(doc.Tests))
	default:
		label = fmt.Sprintf("PASS %d tests", len(doc.Tests))
	}
	if total > 0 {
		label += fmt.Sprintf(" (score %s/%s)", formatPoints(doc.Score), formatPoints(total))
	}
	return &pattern.Summary{Label: label, Kind: pattern.SummaryKindResults, Metrics: metrics}
}

func leaderboard(entries []results.LeaderboardEntry) *pattern.Leaderboard {
	if len(entries) == 0 {
		return nil
	}
	items := make([]pattern.LeaderboardItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, pattern.LeaderboardItem{
			Name:   e.Name,
			Metric: formatValue(e.Value),
			Order:  e.Order,
			Rank:   i + 1,
		})
	}
	return &pattern.Leaderboard{Label: "Leaderboard", Items: items}
}

func formatScore(t results.Test) string {
	switch {
	case t.Score != nil && t.MaxScore != nil:
		return formatPoints(*t.Score) + "/" + formatPoints(*t.MaxScore)
	case t.Score != nil:
		return formatPoints(*t.Score)
	case t.MaxScore != nil:
		return "-/" + formatPoints(*t.MaxScore)
	}
	return ""
}

// formatPoints drops trailing zeros: 2 -> "2", 2.5 -> "2.5".
func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return formatPoints(x)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
