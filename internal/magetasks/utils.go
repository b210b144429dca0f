package magetasks

import (
	"errors"
	"os/exec"
	"strings"
)

// IsCommandNotFound reports whether err came from running a tool that is
// not installed.
func IsCommandNotFound(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, exec.ErrNotFound):
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") || strings.Contains(msg, "no such file or directory")
}
