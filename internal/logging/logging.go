// Package logging configures the structured logger shared by autograde
// and the child processes it spawns.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
)

// EnvDebug enables debug logging when set to a true value.
const EnvDebug = "AUTOGRADE_DEBUG"

// New returns a text logger writing to w. Debug records are kept only
// when debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		return Discard()
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// FromEnv returns a logger writing to w whose level follows AUTOGRADE_DEBUG.
func FromEnv(w io.Writer) *slog.Logger {
	return New(w, DebugFromEnv())
}

// DebugFromEnv reports whether AUTOGRADE_DEBUG is set to a true value.
// Any non-empty value that does not parse as a boolean counts as true.
func DebugFromEnv() bool {
	v, ok := os.LookupEnv(EnvDebug)
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
