package mapper

import (
	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/results"
)

// Compare lists how test scores changed from before to after. Tests are
// matched by name in after's order; tests only in before are appended.
func Compare(before, after *results.Document) *pattern.Comparison {
	prev := make(map[string]results.Test, len(before.Tests))
	for _, t := range before.Tests {
		prev[t.Name] = t
	}

	c := &pattern.Comparison{Label: "Changes"}
	c.Changes = append(c.Changes, delta("Total", scoreOf(before.Score), scoreOf(after.Score)))
	seen := map[string]bool{}
	for _, t := range after.Tests {
		seen[t.Name] = true
		old, ok := prev[t.Name]
		if !ok {
			c.Changes = append(c.Changes, delta(t.Name, nil, t.Score))
			continue
		}
		if equalScore(old.Score, t.Score) {
			continue
		}
		c.Changes = append(c.Changes, delta(t.Name, old.Score, t.Score))
	}
	for _, t := range before.Tests {
		if !seen[t.Name] {
			c.Changes = append(c.Changes, delta(t.Name, t.Score, nil))
		}
	}
	return c
}

func scoreOf(v float64) *float64 { return &v }

func equalScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func delta(label string, before, after *float64) pattern.ComparisonItem {
	item := pattern.ComparisonItem{Label: label, Before: "-", After: "-", Unit: " pts"}
	var b, a float64
	if before != nil {
		b = *before
		item.Before = formatPoints(b)
	}
	if after != nil {
		a = *after
		item.After = formatPoints(a)
	}
	item.Change = a - b
	return item
}
