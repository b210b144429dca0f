package magetasks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dkoosis/autograde/internal/bundle"
	"github.com/dkoosis/autograde/internal/config"
)

// PackageAssignment builds the autograder zip for the assignment in dir,
// pinning setup.sh to version.
func PackageAssignment(dir, version string) (string, error) {
	PrintH2Header("Package " + dir)

	file, err := config.LoadConfig(dir, nil)
	if err != nil {
		return "", err
	}
	if len(file.Package.SubmissionFiles) == 0 {
		return "", fmt.Errorf("%s: package.submission_files is not set", dir)
	}
	gomod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("reading go.mod: %w", err)
	}

	out := file.Package.Output
	if out == "" {
		out = config.DefaultPackageOutput
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	names, err := bundle.BuildFile(out, bundle.Spec{
		Dir:             dir,
		SubmissionFiles: file.Package.SubmissionFiles,
		AdditionalFiles: file.Package.AdditionalFiles,
		Version:         version,
		GoVersion:       bundle.GoVersion(gomod),
	})
	if err != nil {
		return "", err
	}
	PrintSuccess(fmt.Sprintf("Wrote %s (%d files)", out, len(names)))
	return out, nil
}
