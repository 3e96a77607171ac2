// Package tui implements the interactive review screen shown before a
// diff is applied: a scrollable, colorized view of the diff with
// approve/cancel keys.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("240"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	deleteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	fileStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

type model struct {
	vp       viewport.Model
	title    string
	ready    bool
	approved bool
	done     bool
	diff     string
}

func newModel(title, diffText string) *model {
	return &model{title: title, diff: diffText}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y", "enter":
			m.approved = true
			m.done = true
			return m, tea.Quit
		case "n", "N", "q", "esc", "ctrl+c":
			m.approved = false
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.vp.SetContent(colorizeDiff(m.diff))
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight - footerHeight
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	if !m.ready {
		return "loading diff…"
	}
	return m.headerView() + "\n" + m.vp.View() + "\n" + m.footerView()
}

func (m *model) headerView() string {
	return headerStyle.Render(m.title)
}

func (m *model) footerView() string {
	return footerStyle.Render("y: apply   n/q: cancel   ↑/↓: scroll")
}

// colorizeDiff styles diff lines by their prefix. Body prefixes only;
// header lines keep their own styling.
func colorizeDiff(diffText string) string {
	lines := strings.Split(diffText, "\n")
	rendered := make([]string, len(lines))
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ "):
			rendered[i] = fileStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			rendered[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			rendered[i] = addStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			rendered[i] = deleteStyle.Render(line)
		default:
			rendered[i] = contextStyle.Render(line)
		}
	}
	return strings.Join(rendered, "\n")
}

// Review shows diffText full-screen and blocks until the user approves or
// cancels. It returns whether the diff should be applied. Cancelling ctx
// tears the screen down and counts as a rejection.
func Review(ctx context.Context, title, diffText string) (bool, error) {
	m := newModel(title, diffText)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return false, err
	}
	if fm, ok := final.(*model); ok {
		return fm.approved, nil
	}
	return false, nil
}
