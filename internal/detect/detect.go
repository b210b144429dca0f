// Package detect sniffs input to determine which autograde artifact it holds.
package detect

import (
	"bytes"
	"encoding/json"
)

// Format represents a recognized input format.
type Format int

const (
	Unknown    Format = iota
	Results           // results.json grading document
	Coverage          // coverage.json report
	GoTestJSON        // go test -json NDJSON stream
	SARIF             // SARIF 2.1.0 document
)

func (f Format) String() string {
	switch f {
	case Results:
		return "results"
	case Coverage:
		return "coverage"
	case GoTestJSON:
		return "go test -json"
	case SARIF:
		return "sarif"
	default:
		return "unknown"
	}
}

// Sniff examines input to determine its format. Documents are detected
// from their top-level keys; a test stream from its first line.
func Sniff(data []byte) Format {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 || data[0] != '{' {
		return Unknown
	}

	if f := document(data); f != Unknown {
		return f
	}
	if isGoTestJSON(data) {
		return GoTestJSON
	}
	return Unknown
}

func document(data []byte) Format {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Unknown
	}
	if _, ok := probe["files"]; ok {
		return Coverage
	}
	_, runs := probe["runs"]
	_, version := probe["version"]
	if runs && version {
		return SARIF
	}
	_, tests := probe["tests"]
	_, score := probe["score"]
	if tests || score {
		return Results
	}
	return Unknown
}

func isGoTestJSON(data []byte) bool {
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))

	var event struct {
		Action  string `json:"Action"`
		Package string `json:"Package"`
	}
	if err := json.Unmarshal(firstLine, &event); err != nil {
		return false
	}

	validActions := map[string]bool{
		"start": true, "run": true, "pause": true, "cont": true,
		"pass": true, "bench": true, "fail": true, "output": true, "skip": true,
		"build-output": true, "build-fail": true,
	}
	return validActions[event.Action]
}
