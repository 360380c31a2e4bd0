package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/ui/styles"
)

func statusGlyph(s models.Status) string {
	switch s {
	case models.Pending:
		return lipgloss.NewStyle().Foreground(styles.Warning).Render("…")
	case models.AutoApproved:
		return lipgloss.NewStyle().Foreground(styles.Success).Render("⚡")
	case models.ApprovedAndExecuted:
		return lipgloss.NewStyle().Foreground(styles.Success).Render("✓")
	case models.Denied:
		return lipgloss.NewStyle().Foreground(styles.Danger).Render("✗")
	}
	return "?"
}

// RenderLog draws the execution log newest first, starting offset rows
// from the newest entry and showing at most rows entries.
func RenderLog(m *models.AppModel, width, rows int) string {
	focused := m.Focus == models.LogPane
	var b strings.Builder
	b.WriteString(styles.PaneTitleStyle(focused).Render(fmt.Sprintf("Execution Log (%d)", len(m.State.Log))))

	if len(m.State.Log) == 0 {
		b.WriteString("\n" + styles.MutedStyle().Render("No tool calls yet."))
		return styles.PaneStyle(width, focused).Render(b.String())
	}

	shown := 0
	for i := len(m.State.Log) - 1 - m.LogScroll; i >= 0; i-- {
		if rows > 0 && shown >= rows {
			break
		}
		rec := m.State.Log[i]
		line := fmt.Sprintf("%s %s %s", statusGlyph(rec.Status), rec.ToolName, styles.MutedStyle().Render(rec.Status.String()))
		if rec.Result != "" {
			line += styles.MutedStyle().Render(" → " + truncate(rec.Result, 60))
		}
		b.WriteString("\n" + line)
		shown++
	}
	return styles.PaneStyle(width, focused).Render(b.String())
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
