package sarif

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ReadBytes parses a SARIF document.
func ReadBytes(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode sarif: %w", err)
	}
	if doc.Version == "" {
		return nil, errors.New("missing sarif version")
	}
	return &doc, nil
}

// Count returns the number of results per level across all runs.
func Count(doc *Document) map[string]int {
	byLevel := make(map[string]int)
	for _, run := range doc.Runs {
		for _, r := range run.Results {
			byLevel[r.Level]++
		}
	}
	return byLevel
}

// GroupedResults holds the results for one file.
type GroupedResults struct {
	Key     string
	Results []Result
}

// GroupByFile organizes results by file path in first-seen order.
func GroupByFile(doc *Document) []GroupedResults {
	byFile := make(map[string][]Result)
	var order []string
	for _, run := range doc.Runs {
		for _, result := range run.Results {
			file := "unknown"
			if len(result.Locations) > 0 {
				file = result.Locations[0].PhysicalLocation.ArtifactLocation.URI
			}
			if _, seen := byFile[file]; !seen {
				order = append(order, file)
			}
			byFile[file] = append(byFile[file], result)
		}
	}

	groups := make([]GroupedResults, 0, len(order))
	for _, file := range order {
		groups = append(groups, GroupedResults{Key: file, Results: byFile[file]})
	}
	return groups
}
