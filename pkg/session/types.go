package session

import (
	"fmt"

	"github.com/dkoosis/autograde/pkg/results"
)

// Mode selects how a session grades and what its artifact records.
type Mode int

const (
	// ModeInert is the zero value: the session was never started and
	// ignores everything it receives.
	ModeInert Mode = iota
	// ModeNormal is a regular grading run.
	ModeNormal
	// ModeStub is a child run against stubbed functions; every test should fail.
	ModeStub
	// ModePass is a child run against the real implementation; every test should pass.
	ModePass
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeStub:
		return "stub"
	case ModePass:
		return "pass"
	default:
		return "inert"
	}
}

// Validating reports whether the mode is one of the child validation modes.
func (m Mode) Validating() bool {
	return m == ModeStub || m == ModePass
}

// ParseMode converts a --mode flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "normal":
		return ModeNormal, nil
	case "stub":
		return ModeStub, nil
	case "pass":
		return ModePass, nil
	default:
		return ModeInert, fmt.Errorf("unknown mode %q (expected normal, stub, pass)", s)
	}
}

// Phase is one execution stage of a test case.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Outcome is the result of one phase.
type Outcome string

const (
	Passed  Outcome = "passed"
	Failed  Outcome = "failed"
	Skipped Outcome = "skipped"
)

// DiagnosticKind classifies a phase diagnostic.
type DiagnosticKind string

const (
	KindAssertion DiagnosticKind = "assertion"
	KindPanic     DiagnosticKind = "panic"
	KindAbort     DiagnosticKind = "abort"
	KindBuild     DiagnosticKind = "build"
)

// Diagnostic is the structured failure text of a phase.
// Message holds only the assertion detail shown to students;
// Detail holds the full rendered output.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Detail  string
}

// Empty reports whether the diagnostic carries no text.
func (d Diagnostic) Empty() bool {
	return d.Message == "" && d.Detail == ""
}

// full returns the complete text, falling back to the message.
func (d Diagnostic) full() string {
	if d.Detail != "" {
		return d.Detail
	}
	return d.Message
}

// PhaseReport is one phase outcome emitted by the executor.
type PhaseReport struct {
	Test       string
	Phase      Phase
	Outcome    Outcome
	Diagnostic Diagnostic
	SkipReason string
}

// TestRecord holds what a test declared about itself.
type TestRecord struct {
	ID          string
	Name        string
	Short       string // unqualified name, shown unless another test shares it
	Weight      float64
	Required    bool
	Score       *float64 // override; wins over the computed score
	Output      string   // prepended to extracted diagnostics
	Leaderboard []results.LeaderboardEntry

	declared  bool
	complete  bool
	ambiguous bool
}

// DisplayName is the name shown in the artifact: the declared name, else
// the short name when no other test shares it, else the ID.
func (r *TestRecord) DisplayName() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Short != "" && !r.ambiguous:
		return r.Short
	}
	return r.ID
}

// Declaration is the one-time self-description of a test.
type Declaration struct {
	Name     string
	Weight   float64
	Required bool
}
