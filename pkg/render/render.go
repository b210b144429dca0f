// Package render provides output renderers for autograde's visualization patterns.
package render

import "github.com/dkoosis/autograde/pkg/pattern"

// Renderer converts patterns to formatted output.
type Renderer interface {
	Render(patterns []pattern.Pattern) string
}

// ForFormat returns the renderer for a --format value: "terminal", "llm"
// or "json".
func ForFormat(format string, theme Theme, width int) (Renderer, bool) {
	switch format {
	case "", "terminal":
		return NewTerminal(theme, width), true
	case "llm":
		return NewLLM(), true
	case "json":
		return NewJSON(), true
	default:
		return nil, false
	}
}
