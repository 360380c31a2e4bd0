package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/ui/styles"
)

func connectionIndicator(state models.ConnectionState, pulse int) string {
	switch state {
	case models.Connected:
		return lipgloss.NewStyle().Foreground(styles.Success).Render("● connected")
	case models.Reconnecting:
		return lipgloss.NewStyle().Foreground(styles.Warning).Render("◌ reconnecting" + strings.Repeat(".", pulse))
	}
	return lipgloss.NewStyle().Foreground(styles.Danger).Render("○ disconnected")
}

func RenderStatus(m *models.AppModel, width int) string {
	content := fmt.Sprintf("%s  %s  %s", connectionIndicator(m.State.Connection, m.Pulse), m.Profile, m.Status)
	if m.LastError != "" {
		content += "  " + styles.ErrorStyle().Render(m.LastError)
	}
	return styles.StatusStyle(width).Render(content)
}
