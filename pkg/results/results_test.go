package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "results.json"))
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocument)
}

func TestSave_KeepsPassthroughFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	seed := `{
		"score": 3,
		"tests": [{"name": "old"}],
		"output": "Submission 2 of 10",
		"extra_data": {"submission_count": 2},
		"visibility": "after_due_date"
	}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"output", "extra_data", "visibility"}, doc.ExtraKeys())

	doc.Score = 7
	doc.Tests = []Test{{Name: "TestNew", Score: Float(7), MaxScore: Float(8)}}
	require.NoError(t, Save(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"score": 7,
		"tests": [{"name": "TestNew", "score": 7, "max_score": 8}],
		"output": "Submission 2 of 10",
		"extra_data": {"submission_count": 2},
		"visibility": "after_due_date"
	}`, string(data))
}

func TestSave_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Save(path, New()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 0, "tests": []}`, string(data))
}

func TestSetExtra_RejectsTypedKeys(t *testing.T) {
	doc := New()
	assert.Error(t, doc.SetExtra("tests", nil))
	require.NoError(t, doc.SetExtra("output", "hello"))
	assert.JSONEq(t, `"hello"`, string(doc.Extra("output")))
}

func TestConsume_RemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Save(path, New()))

	_, err := Consume(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Consume(path)
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestScoreSums(t *testing.T) {
	doc := &Document{Tests: []Test{
		{Name: "a", Score: Float(1), MaxScore: Float(2)},
		{Name: "b"},
		{Name: "c", Score: Float(3), MaxScore: Float(3)},
	}}
	assert.Equal(t, 4.0, doc.TestScore())
	assert.Equal(t, 5.0, doc.MaxScore())
}
