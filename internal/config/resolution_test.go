package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestResolveConfig_Defaults(t *testing.T) {
	isolate(t)
	r, err := ResolveConfig(CliFlags{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultResults, r.Results)
	assert.Equal(t, DefaultMetadata, r.Metadata)
	assert.Equal(t, -1, r.SubmissionLimit)
	assert.Equal(t, DefaultPackageOutput, r.Package.Output)
	assert.Equal(t, SourceDefault, r.ResultsSource)
	assert.InDelta(t, 1.0, r.DefectPenalty, 1e-9)
	assert.False(t, r.Debug)
}

func TestResolveConfig_PriorityOrder(t *testing.T) {
	file := &AppConfig{
		Results:         "file.json",
		SubmissionLimit: intPtr(5),
		TimeZone:        "UTC",
		Theme:           "orca",
		BranchPenalty:   floatPtr(2),
	}

	tests := []struct {
		name         string
		flags        CliFlags
		env          map[string]string
		wantResults  string
		wantLimit    int
		wantLimitSrc string
		wantZone     string
		wantTheme    string
	}{
		{
			name:         "file over defaults",
			wantResults:  "file.json",
			wantLimit:    5,
			wantLimitSrc: SourceFile,
			wantZone:     "UTC",
			wantTheme:    "orca",
		},
		{
			name:         "env over file",
			env:          map[string]string{EnvSubmissionLimit: "10", EnvTimeZone: "America/Denver"},
			wantResults:  "file.json",
			wantLimit:    10,
			wantLimitSrc: SourceEnv,
			wantZone:     "America/Denver",
			wantTheme:    "orca",
		},
		{
			name:         "cli over file",
			flags:        CliFlags{Results: "cli.json", Theme: "mono"},
			wantResults:  "cli.json",
			wantLimit:    5,
			wantLimitSrc: SourceFile,
			wantZone:     "UTC",
			wantTheme:    "mono",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			r, err := ResolveConfig(tt.flags, file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResults, r.Results)
			assert.Equal(t, tt.wantLimit, r.SubmissionLimit)
			assert.Equal(t, tt.wantLimitSrc, r.LimitSource)
			assert.Equal(t, tt.wantZone, r.Location.String())
			assert.Equal(t, tt.wantTheme, r.Theme)
			assert.InDelta(t, 2.0, r.BranchPenalty, 1e-9)
		})
	}
}

func TestResolveConfig_DebugAndColor(t *testing.T) {
	isolate(t)
	t.Setenv("AUTOGRADE_DEBUG", "1")
	t.Setenv(EnvNoColor, "1")

	r, err := ResolveConfig(CliFlags{}, nil)
	require.NoError(t, err)
	assert.True(t, r.Debug)
	assert.True(t, r.NoColor)

	r, err = ResolveConfig(CliFlags{Debug: false, DebugSet: true, NoColorSet: true}, nil)
	require.NoError(t, err)
	assert.False(t, r.Debug)
	assert.False(t, r.NoColor)
}

func TestResolveConfig_Validation(t *testing.T) {
	tests := []struct {
		name  string
		flags CliFlags
		file  *AppConfig
		env   map[string]string
	}{
		{name: "unknown theme", flags: CliFlags{Theme: "neon"}},
		{name: "negative penalty", file: &AppConfig{LinePenalty: floatPtr(-1)}},
		{name: "bad limit", env: map[string]string{EnvSubmissionLimit: "ten"}},
		{name: "bad zone", file: &AppConfig{TimeZone: "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ResolveConfig(tt.flags, tt.file)
			assert.Error(t, err)
		})
	}
}
