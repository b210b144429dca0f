package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/sarif"
)

func TestFromSARIF(t *testing.T) {
	b := sarif.NewBuilder("autograde-audit", "")
	b.AddResult("printf", "warning", "bad verb", "shapes.go", 4, 1)
	b.AddResult("forbidden-import", "error", "imports os/exec", "shapes.go", 9, 2)
	b.AddResult("forbidden-call", "error", "calls os.Exit()", "main.go", 12, 3)

	patterns := FromSARIF(b.Document())
	require.Len(t, patterns, 3)

	summary := patterns[0].(*pattern.Summary)
	assert.Equal(t, "FINDINGS 3", summary.Label)
	assert.Equal(t, []pattern.SummaryItem{
		{Label: "Errors", Value: "2", Kind: "error"},
		{Label: "Warnings", Value: "1", Kind: "warning"},
	}, summary.Metrics)

	shapes := patterns[1].(*pattern.TestTable)
	assert.Equal(t, "shapes.go", shapes.Label)
	assert.Equal(t, []pattern.TestTableItem{
		{Name: "forbidden-import:9", Status: pattern.StatusFail, Details: "imports os/exec"},
		{Name: "printf:4", Status: pattern.StatusSkip, Details: "bad verb"},
	}, shapes.Results)
}

func TestFromSARIF_Clean(t *testing.T) {
	patterns := FromSARIF(sarif.NewBuilder("vet", "").Document())
	require.Len(t, patterns, 1)
	assert.Equal(t, "CLEAN no findings", patterns[0].(*pattern.Summary).Label)
}
