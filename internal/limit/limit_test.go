package limit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/meta"
	"github.com/dkoosis/autograde/pkg/results"
)

func metadata(t *testing.T, counted, uncounted int) *meta.Metadata {
	t.Helper()
	m := &meta.Metadata{CreatedAt: time.Date(2024, 9, 10, 21, 5, 9, 0, time.UTC)}
	for range counted {
		m.PreviousSubmissions = append(m.PreviousSubmissions,
			meta.Submission{Results: json.RawMessage(`{"extra_data":{"valid_files":true}}`)})
	}
	for range uncounted {
		m.PreviousSubmissions = append(m.PreviousSubmissions,
			meta.Submission{Results: json.RawMessage(`{"score":0}`)})
	}
	return m
}

func TestCheck(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	tests := []struct {
		name     string
		meta     *meta.Metadata
		limit    int
		want     string
		exceeded bool
	}{
		{
			name:  "unlimited",
			meta:  metadata(t, 2, 1),
			limit: -1,
			want:  "Submission 3 of unlimited -- Sep 10 at 15:05:09",
		},
		{
			name:  "within limit",
			meta:  metadata(t, 9, 4),
			limit: 10,
			want:  "Submission 10 of 10 -- Sep 10 at 15:05:09",
		},
		{
			name:     "over limit",
			meta:     metadata(t, 10, 0),
			limit:    10,
			want:     "Submission 11 of 10 -- Sep 10 at 15:05:09\n\n" + ExceededMessage,
			exceeded: true,
		},
		{
			name:  "no metadata",
			limit: 3,
			want:  "Submission 1 of 3 -- Jan 02 at 08:00:00",
		},
	}
	now := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Check(tt.meta, tt.limit, denver, now)
			assert.Equal(t, tt.want, v.Output)
			assert.Equal(t, tt.exceeded, v.Exceeded)
		})
	}
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), results.DefaultPath)
	require.NoError(t, Seed(path, Verdict{Output: "Submission 1 of 3"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"extra_data":{"valid_files":true},"output":"Submission 1 of 3","score":0,"tests":[]}`, string(data))

	doc, err := results.Load(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid_files":true}`, string(doc.Extra("extra_data")))
}
