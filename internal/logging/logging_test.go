package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var quiet, loud bytes.Buffer
	New(&quiet, false).Debug("hidden")
	New(&quiet, false).Warn("shown")
	New(&loud, true).Debug("visible", "test", "TestA")

	assert.NotContains(t, quiet.String(), "hidden")
	assert.Contains(t, quiet.String(), "shown")
	assert.Contains(t, loud.String(), "test=TestA")
}

func TestDebugFromEnv(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"yes":   true,
	}
	for value, want := range tests {
		t.Setenv(EnvDebug, value)
		assert.Equal(t, want, DebugFromEnv(), value)
	}
}
