package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkoosis/autograde/pkg/pattern"
)

func TestLLM_Render(t *testing.T) {
	patterns := []pattern.Pattern{
		&pattern.Summary{
			Label:   "FAIL 1/2 tests (score 4/8)",
			Kind:    pattern.SummaryKindResults,
			Metrics: []pattern.SummaryItem{{Label: "Score", Value: "4/8", Kind: "warning"}},
		},
		&pattern.Sparkline{Label: "Scores", Values: []float64{100, 0}},
		&pattern.TestTable{
			Label: "Failed (1)",
			Results: []pattern.TestTableItem{{
				Name:    "TestPerimeter",
				Status:  pattern.StatusFail,
				Score:   "0/4",
				Details: "1\n2\n3\n4\n5\n6\n7",
			}},
		},
		&pattern.TestTable{
			Label:   "Other Tests (1)",
			Results: []pattern.TestTableItem{{Name: "TestArea", Status: pattern.StatusPass, Score: "4/4"}},
		},
		&pattern.Leaderboard{Label: "Leaderboard", Items: []pattern.LeaderboardItem{{Name: "Speed", Metric: "1.5", Order: "asc"}}},
	}

	want := `SCOPE: FAIL 1/2 tests (score 4/8)
  Score: 4/8

Failed (1)
  FAIL TestPerimeter (0/4)
    1
    2
    3
    4
    5
    ... (2 more lines)

Other Tests (1)
  PASS TestArea (4/4)

Leaderboard
  Speed = 1.5 (asc)
`
	assert.Equal(t, want, NewLLM().Render(patterns))
}

func TestLLM_RenderComparison(t *testing.T) {
	out := NewLLM().Render([]pattern.Pattern{&pattern.Comparison{
		Label:   "Changes",
		Changes: []pattern.ComparisonItem{{Label: "Total", Before: "4", After: "7", Change: 3, Unit: " pts"}},
	}})
	assert.Equal(t, "\nChanges\n  Total: 4 -> 7 (+3 pts)\n", out)
}

func TestLLM_PendingStatus(t *testing.T) {
	out := NewLLM().Render([]pattern.Pattern{&pattern.TestTable{
		Label:   "Tests (1)",
		Results: []pattern.TestTableItem{{Name: "Ready to grade", Status: pattern.StatusWIP, Details: "later"}},
	}})
	assert.Contains(t, out, "  PENDING Ready to grade\n    later\n")
}
