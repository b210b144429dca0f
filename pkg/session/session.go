// Package session aggregates phase reports into a grading artifact.
//
// A Session is created per invocation, started in one of the grading modes,
// fed phase reports and test declarations as the executor runs, and finalized
// exactly once into a results.Document. A Session that was never started is
// inert: it accepts every call and records nothing.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dkoosis/autograde/pkg/results"
)

// ErrFinalized is returned when a session is used after Finalize.
var ErrFinalized = errors.New("session already finalized")

// Placeholder replaces every result when grading is postponed.
type Placeholder struct {
	Title   string
	Message string
}

// Session is the state of one grading invocation.
type Session struct {
	mu        sync.Mutex
	id        string
	mode      Mode
	path      string
	doc       *results.Document
	corr      *Correlator
	postponed *Placeholder
	finalized bool
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an inert session.
func New(opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the mode the session was started in.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Start activates the session. The artifact at path seeds the document when
// it exists; otherwise the document starts empty.
func (s *Session) Start(mode Mode, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrFinalized
	}
	if s.mode != ModeInert {
		return fmt.Errorf("session already started in %s mode", s.mode)
	}
	if mode == ModeInert {
		return errors.New("cannot start a session in inert mode")
	}

	doc, err := results.Load(path)
	switch {
	case err == nil:
		s.logger.Debug("seeded from base document", "session", s.id, "path", path)
	case errors.Is(err, results.ErrNoDocument):
		doc = results.New()
	default:
		return fmt.Errorf("starting session: %w", err)
	}

	s.mode = mode
	s.path = path
	s.doc = doc
	s.corr = NewCorrelator()
	s.logger.Debug("session started", "session", s.id, "mode", mode.String(), "path", path)
	return nil
}

// active reports whether the session accepts input. Callers hold mu.
func (s *Session) active() bool {
	return s.mode != ModeInert && !s.finalized
}

// Register records that the executor started test id.
func (s *Session) Register(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return
	}
	s.corr.Register(id)
}

// Alias sets the name test id is shown under when no other test shares it.
func (s *Session) Alias(id, short string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return
	}
	s.corr.Register(id).Short = short
}

// Record accepts one phase report.
func (s *Session) Record(r PhaseReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return
	}
	s.corr.Record(r)
}

// Complete marks test id as finished; its record becomes read-only.
func (s *Session) Complete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return
	}
	s.corr.Register(id).complete = true
}

// mutable returns the record for id if the test body may still change it.
func (s *Session) mutable(id string) (*TestRecord, bool) {
	if !s.active() {
		return nil, false
	}
	rec := s.corr.Register(id)
	if rec.complete {
		s.logger.Warn("ignoring change to finished test", "session", s.id, "test", id)
		return nil, false
	}
	return rec, true
}

// Declare sets the name, weight and required flag of test id.
// Only the first declaration takes effect.
func (s *Session) Declare(id string, d Declaration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.mutable(id)
	if !ok {
		return
	}
	if rec.declared {
		s.logger.Warn("ignoring repeated declaration", "session", s.id, "test", id)
		return
	}
	if d.Weight < 0 {
		s.logger.Warn("negative weight treated as zero", "session", s.id, "test", id, "weight", d.Weight)
		d.Weight = 0
	}
	rec.declared = true
	rec.Name = d.Name
	rec.Weight = d.Weight
	rec.Required = d.Required
}

// SetScore overrides the computed score of test id.
func (s *Session) SetScore(id string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.mutable(id); ok {
		rec.Score = results.Float(score)
	}
}

// SetOutput sets the text shown before any extracted diagnostics of test id.
func (s *Session) SetOutput(id, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.mutable(id); ok {
		rec.Output = output
	}
}

// AddLeaderboard attaches leaderboard entries to test id.
func (s *Session) AddLeaderboard(id string, entries ...results.LeaderboardEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.mutable(id); ok {
		rec.Leaderboard = append(rec.Leaderboard, entries...)
	}
}

// Postpone replaces all results with a single placeholder entry.
func (s *Session) Postpone(p Placeholder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() {
		return
	}
	s.postponed = &p
}

// Tests returns the number of tests observed so far.
func (s *Session) Tests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corr == nil {
		return 0
	}
	return s.corr.Len()
}

// Finalize builds the document and writes it to the session path.
// An inert session returns a nil document and writes nothing.
func (s *Session) Finalize() (*results.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil, ErrFinalized
	}
	if s.mode == ModeInert {
		return nil, nil
	}
	s.finalized = true

	doc := s.build()
	if err := results.Save(s.path, doc); err != nil {
		return doc, fmt.Errorf("finalizing session: %w", err)
	}
	s.logger.Debug("session finalized", "session", s.id,
		"tests", len(doc.Tests), "score", doc.Score, "status", doc.Status)
	return doc, nil
}

// build assembles the final document. Callers hold mu.
func (s *Session) build() *results.Document {
	doc := s.doc
	doc.Tests = []results.Test{}
	doc.Leaderboard = nil
	doc.Status = ""
	doc.Score = 0

	if s.postponed != nil {
		doc.Tests = append(doc.Tests, results.Test{
			Name:   s.postponed.Title,
			Output: s.postponed.Message,
		})
		return doc
	}

	var (
		g         gate
		total     float64
		available float64
	)
	s.corr.markAmbiguous()
	for o := range s.corr.Outcomes() {
		v := synthesize(o, s.mode)
		doc.Leaderboard = append(doc.Leaderboard, o.Record.Leaderboard...)
		cont := g.admit(o.Record, &v)
		doc.Tests = append(doc.Tests, v.test)
		total += v.score
		available += o.Record.Weight
		if !cont {
			break
		}
	}
	if g.stopped() {
		doc.Status = results.StatusGated
		s.logger.Debug("results gated", "session", s.id, "test", g.stoppedBy)
	}

	// Override scores may exceed a weight; the total never does.
	doc.Score = min(max(total, 0), available)
	return doc
}
