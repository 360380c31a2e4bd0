package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/RoriGate/internal/dispatcher"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/update"
	"github.com/Rorical/RoriGate/ui/components"
)

type AppModel struct {
	appModel models.AppModel
	bridge   *dispatcher.Bridge
	markdown *components.Markdown
	help     help.Model
}

func newAppModel(profile string, bridge *dispatcher.Bridge) *AppModel {
	return &AppModel{
		appModel: models.NewAppModel(profile),
		bridge:   bridge,
		markdown: &components.Markdown{},
		help:     help.New(),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.bridge.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, coreEvent)
		return m, tea.Batch(cmd, m.bridge.ListenForCoreEvents())
	}

	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, m.bridge.GetEventBus())
	return m, cmd
}

func (m *AppModel) View() string {
	width := m.appModel.Width
	if width == 0 {
		width = 100
	}
	rows := 10
	if m.appModel.Height > 0 {
		rows = max(m.appModel.Height/4, 3)
	}

	left := width * 3 / 5
	right := width - left
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		components.RenderQueue(&m.appModel, left),
		lipgloss.JoinVertical(lipgloss.Left,
			components.RenderLog(&m.appModel, right, rows),
			components.RenderChat(&m.appModel, m.markdown, right, rows),
		),
	)

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	if input := components.RenderInput(&m.appModel, width); input != "" {
		b.WriteString(input)
		b.WriteString("\n")
	}
	b.WriteString(components.RenderStatus(&m.appModel, width))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(update.Keys.ShortHelp()))
	return b.String()
}
