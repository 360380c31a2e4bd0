package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/models"
)

func HandleUpdateWithEventBus(m *models.AppModel, msg tea.Msg, eb *eventbus.EventBus) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(m, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(m, msg)
		return nil
	case TickMsg:
		return HandleTickMsg(m)
	case CoreEventMsg:
		return HandleCoreEvent(m, msg)
	case ListenerStoppedMsg:
		if msg.Err != nil {
			m.LastError = msg.Err.Error()
		}
		return nil
	}
	if m.Mode != models.Browsing {
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return cmd
	}
	return nil
}
