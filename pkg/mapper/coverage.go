package mapper

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dkoosis/autograde/pkg/coverage"
	"github.com/dkoosis/autograde/pkg/pattern"
)

// FromCoverage converts a coverage report into a Summary and one TestTable
// per file, each row a function. Branches are listed only with branches set.
func FromCoverage(r *coverage.Report, branches bool) []pattern.Pattern {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var tables []pattern.Pattern
	var funcs, incomplete, lines, missedBranches int
	for _, path := range paths {
		f := r.Files[path]
		items := make([]pattern.TestTableItem, 0, len(f.Functions))
		for _, name := range f.Names() {
			fn := f.Functions[name]
			funcs++
			item := pattern.TestTableItem{Name: name, Status: pattern.StatusPass}
			missing := len(fn.MissingLines) > 0 || (branches && len(fn.MissingBranches) > 0)
			if missing {
				incomplete++
				item.Status = pattern.StatusFail
				item.Details = missingDetails(fn, branches)
			}
			lines += len(fn.MissingLines)
			if branches {
				missedBranches += len(fn.MissingBranches)
			}
			items = append(items, item)
		}
		tables = append(tables, &pattern.TestTable{Label: path, Results: items})
	}

	label := fmt.Sprintf("COVERED %d functions", funcs)
	if incomplete > 0 {
		label = fmt.Sprintf("INCOMPLETE %d/%d functions", incomplete, funcs)
	}
	metrics := []pattern.SummaryItem{
		{Label: "Files", Value: strconv.Itoa(len(paths)), Kind: kindInfo},
		{Label: "Missing lines", Value: strconv.Itoa(lines), Kind: severity(lines)},
	}
	if branches {
		metrics = append(metrics, pattern.SummaryItem{
			Label: "Missing branches", Value: strconv.Itoa(missedBranches), Kind: severity(missedBranches),
		})
	}
	summary := &pattern.Summary{Label: label, Kind: pattern.SummaryKindCoverage, Metrics: metrics}
	return append([]pattern.Pattern{summary}, tables...)
}

func missingDetails(fn coverage.Function, branches bool) string {
	var parts []string
	if len(fn.MissingLines) > 0 {
		nums := make([]string, len(fn.MissingLines))
		for i, n := range fn.MissingLines {
			nums[i] = strconv.Itoa(n)
		}
		parts = append(parts, "Lines: "+strings.Join(nums, ", "))
	}
	if branches && len(fn.MissingBranches) > 0 {
		parts = append(parts, "Branches: "+strings.Join(fn.MissingBranches, ", "))
	}
	return strings.Join(parts, "\n")
}

func severity(n int) string {
	if n > 0 {
		return kindError
	}
	return kindSuccess
}
