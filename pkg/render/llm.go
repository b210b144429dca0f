package render

import (
	"fmt"
	"strings"

	"github.com/dkoosis/autograde/pkg/pattern"
)

// maxDetailLines bounds the output kept per row.
const maxDetailLines = 5

// LLM renders patterns as terse plain text optimized for AI consumption.
// Zero ANSI codes, a SCOPE line first, failures before passes.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		if s, ok := p.(*pattern.Summary); ok {
			sb.WriteString("SCOPE: " + s.Label + "\n")
			for _, m := range s.Metrics {
				sb.WriteString("  " + m.Label + ": " + m.Value + "\n")
			}
		}
	}

	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.TestTable:
			l.renderTable(&sb, v)
		case *pattern.Leaderboard:
			sb.WriteString("\n" + v.Label + "\n")
			for _, item := range v.Items {
				line := fmt.Sprintf("  %s = %s", item.Name, item.Metric)
				if item.Order != "" {
					line += " (" + item.Order + ")"
				}
				sb.WriteString(line + "\n")
			}
		case *pattern.Comparison:
			sb.WriteString("\n" + v.Label + "\n")
			for _, c := range v.Changes {
				sb.WriteString(fmt.Sprintf("  %s: %s -> %s (%+g%s)\n", c.Label, c.Before, c.After, c.Change, c.Unit))
			}
		}
	}
	return sb.String()
}

func (l *LLM) renderTable(sb *strings.Builder, t *pattern.TestTable) {
	sb.WriteString("\n" + t.Label + "\n")
	for _, item := range t.Results {
		prefix := "  " + strings.ToUpper(llmStatus(item.Status))
		score := ""
		if item.Score != "" {
			score = " (" + item.Score + ")"
		}
		sb.WriteString(fmt.Sprintf("%s %s%s\n", prefix, item.Name, score))

		if item.Details == "" {
			continue
		}
		lines := strings.Split(item.Details, "\n")
		n := min(len(lines), maxDetailLines)
		for _, line := range lines[:n] {
			sb.WriteString("    " + line + "\n")
		}
		if len(lines) > maxDetailLines {
			sb.WriteString(fmt.Sprintf("    ... (%d more lines)\n", len(lines)-maxDetailLines))
		}
	}
}

func llmStatus(status string) string {
	switch status {
	case pattern.StatusPass, pattern.StatusFail, pattern.StatusSkip, pattern.StatusGated:
		return status
	case pattern.StatusWIP:
		return "pending"
	default:
		return "info"
	}
}
