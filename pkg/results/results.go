// Package results reads and writes the grading artifact (results.json).
//
// The document follows the Gradescope autograder results format. Fields the
// engine does not manage (output, extra_data, visibility, ...) are carried
// through unchanged from the document the session started with.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath is the artifact location used when none is configured.
const DefaultPath = "results.json"

// StatusGated marks a document whose test list was truncated by a required test.
const StatusGated = "gated"

// Test status values written in validation modes.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrNoDocument is returned when the artifact does not exist.
var ErrNoDocument = errors.New("results document not found")

// Document is the persisted grading artifact.
type Document struct {
	Score       float64            `json:"score"`
	Tests       []Test             `json:"tests"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
	Status      string             `json:"status,omitempty"`

	extra map[string]json.RawMessage
}

// Test is the summary of one graded test.
type Test struct {
	Name     string   `json:"name"`
	Score    *float64 `json:"score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`
	Output   string   `json:"output,omitempty"`
	Status   string   `json:"status,omitempty"`
}

// LeaderboardEntry is one named leaderboard value.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Order string `json:"order,omitempty"` // "asc" or "desc"
}

// known lists the keys owned by Document's typed fields.
var known = map[string]bool{"score": true, "tests": true, "leaderboard": true, "status": true}

// New returns an empty document.
func New() *Document {
	return &Document{Tests: []Test{}}
}

// Float returns a pointer to v, for the optional score fields.
func Float(v float64) *float64 {
	return &v
}

// Extra returns a passthrough field, or nil if absent.
func (d *Document) Extra(key string) json.RawMessage {
	return d.extra[key]
}

// SetExtra stores a passthrough field. Keys owned by typed fields are rejected.
func (d *Document) SetExtra(key string, v any) error {
	if known[key] {
		return fmt.Errorf("results: %q is not a passthrough field", key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("results: encoding %q: %w", key, err)
	}
	if d.extra == nil {
		d.extra = make(map[string]json.RawMessage)
	}
	d.extra[key] = data
	return nil
}

// ExtraKeys returns the passthrough keys present in the document.
func (d *Document) ExtraKeys() []string {
	keys := make([]string, 0, len(d.extra))
	for k := range d.extra {
		keys = append(keys, k)
	}
	return keys
}

// MaxScore returns the sum of max_score over all tests.
func (d *Document) MaxScore() float64 {
	var total float64
	for _, t := range d.Tests {
		if t.MaxScore != nil {
			total += *t.MaxScore
		}
	}
	return total
}

// TestScore returns the sum of score over all tests.
func (d *Document) TestScore() float64 {
	var total float64
	for _, t := range d.Tests {
		if t.Score != nil {
			total += *t.Score
		}
	}
	return total
}

type documentFields Document

// MarshalJSON merges the typed fields with the passthrough fields.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.Tests == nil {
		d.Tests = []Test{}
	}
	typed, err := json.Marshal(documentFields(d))
	if err != nil {
		return nil, err
	}
	if len(d.extra) == 0 {
		return typed, nil
	}
	merged := make(map[string]json.RawMessage, len(d.extra)+len(known))
	for k, v := range d.extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the typed fields and keeps everything else as passthrough.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields documentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range known {
		delete(all, k)
	}
	*d = Document(fields)
	if len(all) > 0 {
		d.extra = all
	}
	if d.Tests == nil {
		d.Tests = []Test{}
	}
	return nil
}

// Load reads the document at path. A missing file yields ErrNoDocument.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoDocument)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

// Consume loads the document at path and removes the file.
// Child artifacts are read exactly once.
func Consume(path string) (*Document, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("removing %s: %w", path, err)
	}
	return doc, nil
}

// Save writes the document to path, replacing any existing file atomically.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
