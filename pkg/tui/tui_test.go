package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/autograde/pkg/render"
	"github.com/dkoosis/autograde/pkg/results"
)

func sampleDoc() *results.Document {
	doc := results.New()
	doc.Score = 3
	doc.Tests = []results.Test{
		{Name: "TestArea", Score: results.Float(3), MaxScore: results.Float(3), Status: results.StatusPassed},
		{Name: "TestPerimeter", Score: results.Float(0), MaxScore: results.Float(2), Status: results.StatusFailed,
			Output: "shapes_test.go:14: got 12, want 14"},
		{Name: "TestVolume", Score: results.Float(0), MaxScore: results.Float(1), Status: results.StatusFailed},
	}
	return doc
}

func update(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(model)
		require.True(t, ok)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel_Navigation(t *testing.T) {
	m := update(t, newModel(sampleDoc(), render.MonoTheme()), tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Equal(t, 0, m.selected)

	m = update(t, m, key("down"), key("down"), key("down"))
	assert.Equal(t, 2, m.selected, "selection stops at the last test")

	m = update(t, m, key("up"))
	r, ok := m.current()
	require.True(t, ok)
	assert.Equal(t, "TestPerimeter", r.test.Name)
	assert.Contains(t, m.viewport.View(), "got 12, want 14")
}

func TestModel_FailedFilter(t *testing.T) {
	m := update(t, newModel(sampleDoc(), render.MonoTheme()),
		tea.WindowSizeMsg{Width: 100, Height: 30}, key("j"), key("j"), key("f"))

	assert.True(t, m.failedOnly)
	assert.Equal(t, []int{1, 2}, m.visible)
	assert.Equal(t, 1, m.selected, "selection clamped to the filtered list")

	m = update(t, m, key("f"))
	assert.Equal(t, []int{0, 1, 2}, m.visible)
}

func TestModel_QuitKeys(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := newModel(sampleDoc(), render.MonoTheme()).Update(k)
		require.NotNil(t, cmd, k.String())
		assert.Equal(t, tea.Quit(), cmd(), k.String())
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(sampleDoc(), render.MonoTheme())
	assert.Equal(t, "Loading results...", m.View())

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	view := m.View()
	assert.Contains(t, view, "score 3/6")
	assert.Contains(t, view, "TestVolume")
	assert.Contains(t, view, "q quit")
	assert.LessOrEqual(t, len(strings.Split(view, "\n")), 20)
}

func TestModel_EmptyDocument(t *testing.T) {
	m := update(t, newModel(results.New(), render.MonoTheme()), tea.WindowSizeMsg{Width: 80, Height: 20})
	_, ok := m.current()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "no tests")
}
