// Package tui is an interactive browser for a graded results document.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/autograde/pkg/mapper"
	"github.com/dkoosis/autograde/pkg/pattern"
	"github.com/dkoosis/autograde/pkg/render"
	"github.com/dkoosis/autograde/pkg/results"
)

// Browse shows doc until the user quits.
func Browse(ctx context.Context, doc *results.Document, theme render.Theme) error {
	program := tea.NewProgram(newModel(doc, theme), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("results browser: %w", err)
	}
	return nil
}

type row struct {
	test   results.Test
	status string
}

type model struct {
	doc        *results.Document
	theme      render.Theme
	rows       []row
	visible    []int // indexes into rows
	failedOnly bool
	selected   int
	viewport   viewport.Model
	ready      bool
	width      int
	height     int
	listWidth  int
}

func newModel(doc *results.Document, theme render.Theme) model {
	rows := make([]row, len(doc.Tests))
	for i, t := range doc.Tests {
		rows[i] = row{test: t, status: mapper.TestStatus(t)}
	}
	m := model{doc: doc, theme: theme, rows: rows, viewport: viewport.New(0, 0)}
	m.filter()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refreshViewport()
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.visible)-1 {
				m.selected++
				m.refreshViewport()
			}
			return m, nil
		case "f":
			m.failedOnly = !m.failedOnly
			m.filter()
			m.refreshViewport()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.listWidth = min(max(m.nameWidth()+12, 24), m.width/2)
		m.viewport.Width = max(m.width-m.listWidth-5, 10)
		m.viewport.Height = max(m.height-6, 3)
		m.ready = true
		m.refreshViewport()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// filter rebuilds the visible rows, keeping the selection in range.
func (m *model) filter() {
	visible := make([]int, 0, len(m.rows))
	for i, r := range m.rows {
		if m.failedOnly && r.status != pattern.StatusFail {
			continue
		}
		visible = append(visible, i)
	}
	m.visible = visible
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m model) nameWidth() int {
	w := 0
	for _, r := range m.rows {
		w = max(w, runewidth.StringWidth(r.test.Name))
	}
	return w
}

func (m model) current() (row, bool) {
	if m.selected < 0 || m.selected >= len(m.visible) {
		return row{}, false
	}
	return m.rows[m.visible[m.selected]], true
}

func (m *model) refreshViewport() {
	r, ok := m.current()
	if !ok {
		m.viewport.SetContent(m.theme.Muted.Render("No tests to show"))
		return
	}
	m.viewport.SetContent(detail(r, m.theme, m.viewport.Width))
	m.viewport.GotoTop()
}

func detail(r row, theme render.Theme, width int) string {
	var sb strings.Builder
	icon, style := theme.StatusIcon(r.status)
	sb.WriteString(style.Render(icon+" "+render.StatusTitle(r.status)) + "  " + theme.Bold.Render(r.test.Name) + "\n")
	if r.test.MaxScore != nil {
		score := 0.0
		if r.test.Score != nil {
			score = *r.test.Score
		}
		sb.WriteString(theme.Muted.Render(fmt.Sprintf("Score %g/%g", score, *r.test.MaxScore)) + "\n")
	}
	sb.WriteString("\n")
	output := r.test.Output
	if output == "" {
		output = theme.Muted.Render("(no output)")
	}
	if width > 0 {
		output = lipgloss.NewStyle().Width(width).Render(output)
	}
	sb.WriteString(output)
	return sb.String()
}

func (m model) View() string {
	if !m.ready {
		return "Loading results..."
	}

	title := m.theme.Bold.Render(fmt.Sprintf("autograde %s", m.scoreLine()))
	contentHeight := max(m.height-4, 3)

	listLines := m.renderList()
	listLines = fit(listLines, contentHeight)
	listPanel := lipgloss.NewStyle().
		Width(m.listWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Muted.GetForeground()).
		Render(strings.Join(listLines, "\n"))

	detailLines := fit(strings.Split(m.viewport.View(), "\n"), contentHeight)
	detailPanel := lipgloss.NewStyle().
		Width(m.viewport.Width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary.GetForeground()).
		Render(strings.Join(detailLines, "\n"))

	filter := "f failed only"
	if m.failedOnly {
		filter = "f all tests"
	}
	help := m.theme.Muted.Render("↑/↓ select • pgup/pgdn scroll • " + filter + " • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, title,
		lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel), help)
}

func (m model) scoreLine() string {
	total := m.doc.MaxScore()
	if total > 0 {
		return fmt.Sprintf("score %g/%g", m.doc.Score, total)
	}
	return fmt.Sprintf("score %g", m.doc.Score)
}

func (m model) renderList() []string {
	if len(m.visible) == 0 {
		return []string{m.theme.Muted.Render("no tests")}
	}
	nameWidth := max(m.listWidth-4, 8)
	lines := make([]string, 0, len(m.visible))
	for i, idx := range m.visible {
		r := m.rows[idx]
		icon, style := m.theme.StatusIcon(r.status)
		name := runewidth.Truncate(r.test.Name, nameWidth, "…")
		if i == m.selected {
			lines = append(lines, m.theme.Bold.Reverse(true).Render(icon+" "+runewidth.FillRight(name, nameWidth)))
			continue
		}
		lines = append(lines, style.Render(icon)+" "+name)
	}
	return lines
}

// fit pads or truncates lines to exactly n entries.
func fit(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines[:n]
}
