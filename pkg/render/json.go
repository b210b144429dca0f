package render

import (
	"encoding/json"

	"github.com/dkoosis/autograde/pkg/pattern"
)

// jsonFormatVersion is bumped when the envelope shape changes.
const jsonFormatVersion = "1.0"

// JSON renders patterns as an indented envelope for scripts and CI.
type JSON struct{}

// NewJSON creates a JSON renderer.
func NewJSON() *JSON {
	return &JSON{}
}

type envelope struct {
	Version  string  `json:"version"`
	Patterns []entry `json:"patterns"`
}

type entry struct {
	Type pattern.PatternType `json:"type"`
	Data pattern.Pattern     `json:"data"`
}

// Render formats all patterns as JSON. A marshal failure is reported as
// an {"error": ...} object so the output stays parseable.
func (j *JSON) Render(patterns []pattern.Pattern) string {
	env := envelope{Version: jsonFormatVersion, Patterns: make([]entry, 0, len(patterns))}
	for _, p := range patterns {
		env.Patterns = append(env.Patterns, entry{Type: p.Type(), Data: p})
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		failure, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(failure)
	}
	return string(data) + "\n"
}
