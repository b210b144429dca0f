//go:build mage

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/magefile/mage/mg"

	"github.com/dkoosis/autograde/internal/magetasks"
	"github.com/dkoosis/autograde/internal/version"
)

// Default target - build the binary
var Default = Build

func init() {
	if err := magetasks.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

// Build builds the autograde binary
func Build() error {
	return magetasks.BuildAll()
}

// Clean removes build artifacts
func Clean() error {
	return magetasks.Clean()
}

// QA runs the linters, the tests and the build
func QA(ctx context.Context) error {
	magetasks.PrintH1Header("autograde Quality Assurance")
	mg.SerialCtxDeps(ctx, Lint{}.All, Test{}.All, Build)
	magetasks.PrintSuccess("QA complete!")
	return nil
}

// Package builds the Gradescope autograder zip for the assignment in dir
func Package(dir string) error {
	v := version.Version
	if v == "dev" {
		v = "latest"
	}
	_, err := magetasks.PackageAssignment(dir, v)
	return err
}

// Lint namespace for linting commands
type Lint mg.Namespace

// All runs all linters
func (Lint) All(ctx context.Context) error {
	return magetasks.LintAll(ctx)
}

// Format checks code formatting
func (Lint) Format() error {
	return magetasks.LintFormat()
}

// Vet runs go vet
func (Lint) Vet(ctx context.Context) error {
	return magetasks.LintVet(ctx)
}

// Golangci runs golangci-lint
func (Lint) Golangci() error {
	return magetasks.LintGolangci()
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests with live progress
func (Test) All(ctx context.Context) error {
	return magetasks.TestAll(ctx)
}

// Coverage runs tests with coverage
func (Test) Coverage() error {
	return magetasks.TestCoverage()
}

// Race runs tests with race detector
func (Test) Race() error {
	return magetasks.TestRace()
}
