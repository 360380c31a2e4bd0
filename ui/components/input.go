package components

import (
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/ui/styles"
)

// RenderInput shows the text input while it is collecting something.
func RenderInput(m *models.AppModel, width int) string {
	switch m.Mode {
	case models.EditingArg:
		label := "Edit argument"
		if rec, ok := m.Current(); ok {
			label += " of " + rec.ToolName
		}
		return styles.InputStyle(width).Render(styles.MutedStyle().Render(label) + "\n" + m.Input.View())
	case models.Composing:
		if q := m.State.Question; q != nil && q.Kind == models.MultipleChoice {
			return styles.InputStyle(width).Render(styles.MutedStyle().Render("Press 1-9 to pick an option"))
		}
		return styles.InputStyle(width).Render(m.Input.View())
	}
	return ""
}
