package grade

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkoosis/autograde/pkg/results"
)

// Prefix starts every directive line a test writes to stdout.
const Prefix = "##autograde "

// Kind identifies what a directive changes.
type Kind string

const (
	KindDeclare     Kind = "declare"
	KindScore       Kind = "score"
	KindOutput      Kind = "output"
	KindLeaderboard Kind = "leaderboard"
	KindAbort       Kind = "abort"
	KindPostpone    Kind = "postpone"
)

// Directive is one instruction from a test body to the grading engine.
// Test names the top-level test the directive applies to; it is empty
// only for package-level directives such as postpone.
type Directive struct {
	Kind     Kind                      `json:"kind"`
	Test     string                    `json:"test,omitempty"`
	Name     string                    `json:"name,omitempty"`
	Weight   float64                   `json:"weight,omitempty"`
	Required bool                      `json:"required,omitempty"`
	Score    *float64                  `json:"score,omitempty"`
	Output   string                    `json:"output,omitempty"`
	Entry    *results.LeaderboardEntry `json:"entry,omitempty"`
	Title    string                    `json:"title,omitempty"`
	Message  string                    `json:"message,omitempty"`
}

// Encode renders d as a single directive line without the trailing newline.
func (d Directive) Encode() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding %s directive: %w", d.Kind, err)
	}
	return Prefix + string(data), nil
}

// Parse decodes a directive line. ok is false when line is not a directive;
// err is set when it looks like one but cannot be decoded.
func Parse(line string) (d Directive, ok bool, err error) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), strings.TrimSpace(Prefix))
	if !found {
		return Directive{}, false, nil
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest)), &d); err != nil {
		return Directive{}, true, fmt.Errorf("malformed directive: %w", err)
	}
	switch d.Kind {
	case KindDeclare, KindScore, KindOutput, KindLeaderboard, KindAbort:
		if d.Test == "" {
			return Directive{}, true, fmt.Errorf("%s directive without a test", d.Kind)
		}
	case KindPostpone:
	default:
		return Directive{}, true, fmt.Errorf("unknown directive kind %q", d.Kind)
	}
	return d, true, nil
}

// IsDirective reports whether line carries a directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), strings.TrimSpace(Prefix))
}
