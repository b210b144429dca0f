package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the per-assignment configuration file.
const FileName = ".autograde.yaml"

// Constants for default values.
const (
	DefaultResults         = "results.json"
	DefaultMetadata        = "/autograder/submission_metadata.json"
	DefaultSubmissionLimit = -1
	DefaultPenalty         = 1.0
	DefaultTheme           = "default"
	DefaultPackageOutput   = "autograder.zip"
)

// PackageConfig lists what `autograde package` bundles.
type PackageConfig struct {
	SubmissionFiles []string `yaml:"submission_files"`
	AdditionalFiles []string `yaml:"additional_files"`
	Output          string   `yaml:"output"`
}

// AppConfig represents the contents of .autograde.yaml.
type AppConfig struct {
	Results         string        `yaml:"results"`
	Metadata        string        `yaml:"metadata"`
	SubmissionLimit *int          `yaml:"submission_limit"`
	TimeZone        string        `yaml:"time_zone"`
	Bin             string        `yaml:"bin"`
	LinePenalty     *float64      `yaml:"line_penalty"`
	BranchPenalty   *float64      `yaml:"branch_penalty"`
	DefectPenalty   *float64      `yaml:"defect_penalty"`
	Theme           string        `yaml:"theme"`
	Debug           bool          `yaml:"debug"`
	Package         PackageConfig `yaml:"package"`

	path string
}

// Path returns the file the config was read from, or "" for defaults.
func (c *AppConfig) Path() string {
	return c.path
}

// LoadConfig reads the configuration file for dir. A missing file yields
// an empty config; a malformed one is an error.
func LoadConfig(dir string, logger *slog.Logger) (*AppConfig, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := &AppConfig{}
	path := getConfigPath(dir)
	if path == "" {
		logger.Debug("no config file found, using defaults", "dir", dir)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.path = path
	logger.Debug("loaded config", "path", path)
	return cfg, nil
}

// getConfigPath checks dir first, then the user config directory.
func getConfigPath(dir string) string {
	local := filepath.Join(dir, FileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}

	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "autograde", FileName)
	if _, err := os.Stat(xdgPath); err != nil {
		return ""
	}
	return xdgPath
}

// Penalties returns the configured line, branch and defect penalties,
// defaulting each to DefaultPenalty.
func (c *AppConfig) Penalties() (line, branch, defect float64) {
	return orDefault(c.LinePenalty, DefaultPenalty),
		orDefault(c.BranchPenalty, DefaultPenalty),
		orDefault(c.DefectPenalty, DefaultPenalty)
}
