// Package meta reads the submission metadata Gradescope provides to the
// autograder.
//
// Offline, where no metadata file exists, Username returns its default and
// the submission window is treated as closed.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dkoosis/autograde/internal/config"
)

// ErrNoMetadata is returned by Load when the metadata file does not exist.
var ErrNoMetadata = errors.New("submission metadata not found")

// Metadata is the subset of submission_metadata.json autograde uses.
type Metadata struct {
	CreatedAt           time.Time    `json:"created_at"`
	Users               []User       `json:"users"`
	PreviousSubmissions []Submission `json:"previous_submissions"`
}

// User is one submitter.
type User struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	SID        string     `json:"sid"`
	Assignment Assignment `json:"assignment"`
}

// Assignment holds the dates that apply to a user.
type Assignment struct {
	ReleaseDate time.Time  `json:"release_date"`
	DueDate     time.Time  `json:"due_date"`
	LateDueDate *time.Time `json:"late_due_date"`
}

// Submission is an earlier submission of the same assignment.
type Submission struct {
	SubmissionTime time.Time       `json:"submission_time"`
	Results        json.RawMessage `json:"results"`
}

// Counted reports whether the submission passed the submission limit check,
// which marks its results with extra_data.valid_files.
func (s Submission) Counted() bool {
	var r struct {
		ExtraData struct {
			ValidFiles *bool `json:"valid_files"`
		} `json:"extra_data"`
	}
	if len(s.Results) == 0 || json.Unmarshal(s.Results, &r) != nil {
		return false
	}
	return r.ExtraData.ValidFiles != nil
}

// Path returns the metadata location, honoring AUTOGRADE_METADATA.
func Path() string {
	if p := os.Getenv(config.EnvMetadata); p != "" {
		return p
	}
	return config.DefaultMetadata
}

// Load reads a metadata file.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoMetadata
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// User returns the first submitter.
func (m *Metadata) User() (User, error) {
	if len(m.Users) == 0 {
		return User{}, errors.New("user not found in submission metadata")
	}
	return m.Users[0], nil
}

// Open reports whether now falls inside the user's submission window,
// widened by before and after.
func (m *Metadata) Open(now time.Time, before, after time.Duration) bool {
	u, err := m.User()
	if err != nil {
		return false
	}
	a := u.Assignment
	end := a.DueDate
	if a.LateDueDate != nil {
		end = *a.LateDueDate
	}
	return !now.Before(a.ReleaseDate.Add(-before)) && !now.After(end.Add(after))
}

// Username returns the local part of the submitter's email, or def when
// running offline.
func Username(def string) string {
	m, err := Load(Path())
	if err != nil {
		return def
	}
	u, err := m.User()
	if err != nil {
		return def
	}
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

// SubmissionOpen reports whether the current time is within the submission
// window, extended by before minutes prior to release and after minutes past
// the due (or late due) date.
func SubmissionOpen(before, after int) bool {
	m, err := Load(Path())
	if err != nil {
		return false
	}
	return m.Open(time.Now(), time.Duration(before)*time.Minute, time.Duration(after)*time.Minute)
}

// SubmissionClosed is the negation of SubmissionOpen(5, 5).
func SubmissionClosed() bool {
	return !SubmissionOpen(5, 5)
}
