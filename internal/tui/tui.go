// Package tui renders check results as an interactive list.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xab-mack/jvmdeps/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	detailStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
)

type listModel struct {
	res    *model.CheckResult
	cursor int
}

func initialModel(res *model.CheckResult) listModel { return listModel{res: res} }

func (m listModel) Init() tea.Cmd { return nil }

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.res.Diagnostics)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m listModel) View() string {
	var b strings.Builder
	status := "ok"
	if m.res.Failed {
		status = errorStyle.Render("FAILED")
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Diagnostics (%d) %s", len(m.res.Diagnostics), status)))
	b.WriteString("\n\n")
	for i, d := range m.res.Diagnostics {
		sev := warnStyle.Render(string(d.Severity))
		if d.Severity == model.SeverityError {
			sev = errorStyle.Render(string(d.Severity))
		}
		line := fmt.Sprintf("%s %s %s", d.Kind, d.Target, dependency(d))
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		fmt.Fprintf(&b, "[%s] %s\n", sev, line)
		if i == m.cursor {
			b.WriteString(detailStyle.Render(d.Message))
			b.WriteString("\n")
		}
	}
	if len(m.res.Problems) > 0 {
		fmt.Fprintf(&b, "\n%d problem(s) recovered during indexing\n", len(m.res.Problems))
	}
	b.WriteString("\nup/down to move, q to quit\n")
	return b.String()
}

func dependency(d model.Diagnostic) string {
	if d.Package != nil {
		return d.Package.String()
	}
	return string(d.Dependency)
}

// Run shows the diagnostics until the user quits.
func Run(res *model.CheckResult) error {
	p := tea.NewProgram(initialModel(res))
	_, err := p.Run()
	return err
}
