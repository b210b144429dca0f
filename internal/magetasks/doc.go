// Package magetasks implements the Magefile targets for autograde: build,
// test, lint and packaging of assignments.
package magetasks
