package tui

import (
	"fmt"
	"strings"

	"slidecast/types"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🎞  slidecast: " + m.Title))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.Percent / 100))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %5.1f%%", m.Percent)))
	b.WriteString("\n")
	if m.Status != "" && !m.Done() {
		b.WriteString(mutedStyle.Render(m.Status))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.Logs) > 0 {
		b.WriteString(mutedStyle.Render("📝 Recent Activity:"))
		b.WriteString("\n")
		for _, line := range m.Logs {
			b.WriteString(mutedStyle.Render("   " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.State == types.StateDone && m.Result != nil {
		b.WriteString(resultBox.Render(m.formatResult()))
		b.WriteString("\n\n")
	}

	if m.Done() {
		b.WriteString(badgeStyle.Render("Press 'q' or Ctrl+C to exit"))
	} else {
		b.WriteString(mutedStyle.Render("Press 'q' or Ctrl+C to detach"))
	}
	b.WriteString("\n")
	return b.String()
}
