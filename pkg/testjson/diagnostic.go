package testjson

import (
	"regexp"
	"strings"

	"github.com/dkoosis/autograde/pkg/session"
)

// detailLine matches the header of a t.Error/t.Log/t.Skip message:
// indentation, the test file position, then the message text.
// Indented lines that follow belong to the same message.
var detailLine = regexp.MustCompile(`^( +)\S+_test\.go:\d+: ?(.*)$`)

var framingPrefixes = []string{
	"=== RUN", "=== PAUSE", "=== CONT", "=== NAME",
	"--- PASS", "--- FAIL", "--- SKIP",
}

// isFraming reports whether line is go test bookkeeping rather than test output.
func isFraming(line string) bool {
	t := strings.TrimSpace(line)
	for _, p := range framingPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return t == "PASS" || t == "FAIL" ||
		strings.HasPrefix(t, "ok  \t") ||
		strings.HasPrefix(t, "FAIL\t") ||
		strings.HasPrefix(t, "exit status ")
}

func isPanic(line string) bool {
	t := strings.TrimLeft(line, "\t")
	return strings.HasPrefix(t, "panic: ") || strings.HasPrefix(t, "fatal error: ")
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// Extract builds the diagnostic of one test from its output lines.
//
// Message keeps the message text of every detail line plus its indented
// continuation, and the panic lines of a crash. Detail is the full output
// without framing lines. When no detail line is found Message falls back
// to Detail.
func Extract(lines []string) session.Diagnostic {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if !isFraming(l) {
			kept = append(kept, l)
		}
	}
	d := session.Diagnostic{
		Kind:   session.KindAssertion,
		Detail: strings.Trim(strings.Join(kept, "\n"), "\n"),
	}

	var msg []string
	block := -1
	for _, l := range kept {
		if m := detailLine.FindStringSubmatch(l); m != nil {
			block = len(m[1])
			if m[2] != "" {
				msg = append(msg, m[2])
			}
			continue
		}
		if isPanic(l) {
			d.Kind = session.KindPanic
			msg = append(msg, strings.TrimLeft(l, "\t"))
			block = -1
			continue
		}
		if block < 0 {
			continue
		}
		if strings.TrimSpace(l) == "" {
			msg = append(msg, "")
			continue
		}
		if indent(l) > block {
			cont := strings.TrimPrefix(l, strings.Repeat(" ", min(indent(l), block+4)))
			msg = append(msg, strings.TrimRight(strings.TrimPrefix(cont, "\t"), " "))
			continue
		}
		block = -1
		msg = trimBlank(msg)
	}

	d.Message = strings.TrimSpace(strings.Join(trimBlank(msg), "\n"))
	if d.Message == "" {
		d.Message = strings.TrimSpace(d.Detail)
	}
	return d
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
