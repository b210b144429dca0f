package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dkoosis/autograde/internal/logging"
)

// Environment variable names.
const (
	EnvSubmissionLimit = "SUBMISSION_LIMIT"
	EnvTimeZone        = "SCHOOL_TIME_ZONE"
	EnvBin             = "AUTOGRADE_BIN"
	EnvMetadata        = "AUTOGRADE_METADATA"
	EnvNoColor         = "NO_COLOR"
)

// Value sources, reported for debugging.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// CliFlags holds the values of command-line flags.
type CliFlags struct {
	Results string
	Theme   string
	Debug   bool
	NoColor bool

	// Flags to track if they were explicitly set by the user
	DebugSet   bool
	NoColorSet bool
}

// ResolvedConfig holds the final configuration after applying all priority rules.
type ResolvedConfig struct {
	Results         string
	Metadata        string
	SubmissionLimit int
	Location        *time.Location
	Bin             string
	LinePenalty     float64
	BranchPenalty   float64
	DefectPenalty   float64
	Theme           string
	Debug           bool
	NoColor         bool
	Package         PackageConfig

	// Resolution metadata
	ResultsSource  string
	LimitSource    string
	TimeZoneSource string
}

// ResolveConfig resolves configuration from all sources.
func ResolveConfig(flags CliFlags, file *AppConfig) (*ResolvedConfig, error) {
	if file == nil {
		file = &AppConfig{}
	}
	r := &ResolvedConfig{
		Results:         DefaultResults,
		Metadata:        DefaultMetadata,
		SubmissionLimit: DefaultSubmissionLimit,
		Location:        time.Local,
		Theme:           DefaultTheme,
		Debug:           file.Debug,
		Package:         file.Package,
		ResultsSource:   SourceDefault,
		LimitSource:     SourceDefault,
		TimeZoneSource:  SourceDefault,
	}
	r.LinePenalty, r.BranchPenalty, r.DefectPenalty = file.Penalties()
	if r.Package.Output == "" {
		r.Package.Output = DefaultPackageOutput
	}

	// Results: CLI > file > default
	switch {
	case flags.Results != "":
		r.Results, r.ResultsSource = flags.Results, SourceCLI
	case file.Results != "":
		r.Results, r.ResultsSource = file.Results, SourceFile
	}

	// Metadata: env > file > default
	if v := os.Getenv(EnvMetadata); v != "" {
		r.Metadata = v
	} else if file.Metadata != "" {
		r.Metadata = file.Metadata
	}

	// SubmissionLimit: env > file > default
	if v := os.Getenv(EnvSubmissionLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSubmissionLimit, err)
		}
		r.SubmissionLimit, r.LimitSource = n, SourceEnv
	} else if file.SubmissionLimit != nil {
		r.SubmissionLimit, r.LimitSource = *file.SubmissionLimit, SourceFile
	}

	// TimeZone: env > file > default
	zone, source := os.Getenv(EnvTimeZone), SourceEnv
	if zone == "" {
		zone, source = file.TimeZone, SourceFile
	}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("time zone %q: %w", zone, err)
		}
		r.Location, r.TimeZoneSource = loc, source
	}

	// Bin: env > file
	if v := os.Getenv(EnvBin); v != "" {
		r.Bin = v
	} else {
		r.Bin = file.Bin
	}

	// Theme: CLI > file > default
	if flags.Theme != "" {
		r.Theme = flags.Theme
	} else if file.Theme != "" {
		r.Theme = file.Theme
	}

	// Debug: CLI > env > file
	if flags.DebugSet {
		r.Debug = flags.Debug
	} else if logging.DebugFromEnv() {
		r.Debug = true
	}

	// NoColor: CLI > env
	if flags.NoColorSet {
		r.NoColor = flags.NoColor
	} else if os.Getenv(EnvNoColor) != "" {
		r.NoColor = true
	}

	if err := validateResolvedConfig(r); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return r, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

var validThemes = map[string]bool{"default": true, "orca": true, "mono": true}

// validateResolvedConfig returns an error for invalid states.
func validateResolvedConfig(r *ResolvedConfig) error {
	if !validThemes[r.Theme] {
		return fmt.Errorf("invalid theme: %s (must be: default, orca, mono)", r.Theme)
	}
	for name, p := range map[string]float64{
		"line_penalty":   r.LinePenalty,
		"branch_penalty": r.BranchPenalty,
		"defect_penalty": r.DefectPenalty,
	} {
		if p < 0 {
			return fmt.Errorf("%s must not be negative, got: %g", name, p)
		}
	}
	if r.Results == "" {
		return fmt.Errorf("results path cannot be empty")
	}
	return nil
}
