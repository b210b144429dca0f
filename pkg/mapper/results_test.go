package mapper

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/results"
)

func pts(v float64) *float64 { return &v }

func sampleDoc() *results.Document {
	doc := results.New()
	doc.Score = 6
	doc.Tests = []results.Test{
		{Name: "TestArea", Score: pts(4), MaxScore: pts(4)},
		{Name: "TestPerimeter", Score: pts(2), MaxScore: pts(4), Output: "shapes_test.go:12: got 3, want 4\n"},
		{Name: "TestStyle"},
	}
	doc.Leaderboard = []results.LeaderboardEntry{{Name: "Speed", Value: 1.5, Order: "asc"}}
	return doc
}

func TestFromResults(t *testing.T) {
	patterns := FromResults(sampleDoc())
	require.Len(t, patterns, 5)

	summary := patterns[0].(*pattern.Summary)
	assert.Equal(t, "FAIL 1/3 tests (score 6/8)", summary.Label)
	assert.Equal(t, pattern.SummaryKindResults, summary.Kind)
	assert.Equal(t, pattern.SummaryItem{Label: "Score", Value: "6/8", Kind: kindWarning}, summary.Metrics[0])

	spark := patterns[1].(*pattern.Sparkline)
	assert.Equal(t, []float64{100, 50}, spark.Values)

	failed := patterns[2].(*pattern.TestTable)
	want := &pattern.TestTable{
		Label: "Failed (1)",
		Results: []pattern.TestTableItem{{
			Name:    "TestPerimeter",
			Status:  pattern.StatusFail,
			Score:   "2/4",
			Details: "shapes_test.go:12: got 3, want 4",
		}},
	}
	if diff := cmp.Diff(want, failed); diff != "" {
		t.Errorf("failed table mismatch (-want +got):\n%s", diff)
	}

	rest := patterns[3].(*pattern.TestTable)
	assert.Equal(t, "Other Tests (2)", rest.Label)
	assert.Equal(t, pattern.StatusWIP, rest.Results[1].Status)

	lb := patterns[4].(*pattern.Leaderboard)
	assert.Equal(t, []pattern.LeaderboardItem{{Name: "Speed", Metric: "1.5", Order: "asc", Rank: 1}}, lb.Items)
}

func TestFromResults_GatedAndEmpty(t *testing.T) {
	doc := results.New()
	doc.Status = results.StatusGated
	doc.Tests = []results.Test{{Name: "TestRequired", Score: pts(0), MaxScore: pts(0), Output: "gate"}}
	summary := FromResults(doc)[0].(*pattern.Summary)
	assert.Equal(t, "FAIL 0/1 tests", summary.Label)
	assert.Equal(t, "Gated", summary.Metrics[len(summary.Metrics)-1].Label)

	summary = FromResults(results.New())[0].(*pattern.Summary)
	assert.Equal(t, "NO TESTS", summary.Label)
}

func TestTestStatus(t *testing.T) {
	tests := []struct {
		name string
		test results.Test
		want string
	}{
		{"explicit failed", results.Test{Status: results.StatusFailed, Score: pts(1), MaxScore: pts(1)}, pattern.StatusFail},
		{"explicit skipped", results.Test{Status: results.StatusSkipped}, pattern.StatusSkip},
		{"full score", results.Test{Score: pts(3), MaxScore: pts(3)}, pattern.StatusPass},
		{"extra credit", results.Test{Score: pts(1), MaxScore: pts(0)}, pattern.StatusPass},
		{"partial", results.Test{Score: pts(1), MaxScore: pts(3)}, pattern.StatusFail},
		{"hidden", results.Test{}, pattern.StatusWIP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TestStatus(tt.test))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", formatValue(3.0))
	assert.Equal(t, "fast", formatValue("fast"))
	assert.Equal(t, "true", formatValue(true))
	assert.Empty(t, formatValue(nil))
}
