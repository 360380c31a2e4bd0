package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/models"
)

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(m *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	if keyMsg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	switch m.Mode {
	case models.EditingArg:
		return handleEditKey(m, keyMsg)
	case models.Composing:
		return handleComposeKey(m, keyMsg, eb)
	}
	return handleBrowseKey(m, keyMsg, eb)
}

func handleBrowseKey(m *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch {
	case key.Matches(keyMsg, Keys.Quit):
		return tea.Quit
	case key.Matches(keyMsg, Keys.NextPane):
		m.Focus = m.Focus.Next()
		if m.Focus == models.ChatPane {
			return startCompose(m)
		}
	case key.Matches(keyMsg, Keys.Up):
		move(m, -1)
	case key.Matches(keyMsg, Keys.Down):
		move(m, 1)
	case key.Matches(keyMsg, Keys.Option):
		answerOption(m, keyMsg, eb)
	}

	if m.Focus != models.QueuePane {
		return nil
	}
	rec, ok := m.Current()
	switch {
	case key.Matches(keyMsg, Keys.ApproveAll):
		send(m, eb, eventbus.BatchApproveEvent{})
	case key.Matches(keyMsg, Keys.DenyAll):
		send(m, eb, eventbus.BatchDenyEvent{})
	case !ok:
	case key.Matches(keyMsg, Keys.Toggle):
		send(m, eb, eventbus.ToggleSelectionEvent{ID: rec.ID})
	case key.Matches(keyMsg, Keys.Approve):
		var overrides map[string]any
		if o, ok := m.Overlays[rec.ID]; ok && !o.IsEmpty() {
			overrides = o.Snapshot()
		}
		send(m, eb, eventbus.ApproveEvent{ID: rec.ID, Overrides: overrides})
	case key.Matches(keyMsg, Keys.Deny):
		send(m, eb, eventbus.DenyEvent{ID: rec.ID})
	case key.Matches(keyMsg, Keys.Edit):
		m.Mode = models.EditingArg
		m.Input.Reset()
		m.Input.Placeholder = "name=value (empty value removes the edit)"
		return m.Input.Focus()
	case key.Matches(keyMsg, Keys.Reset):
		if o, ok := m.Overlays[rec.ID]; ok {
			o.Reset()
			m.Status = "Edits cleared for " + rec.ToolName
		}
	}
	return nil
}

func handleEditKey(m *models.AppModel, keyMsg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(keyMsg, Keys.Cancel):
		stopInput(m)
		return nil
	case key.Matches(keyMsg, Keys.Send):
		applyEdit(m, m.Input.Value())
		stopInput(m)
		return nil
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(keyMsg)
	return cmd
}

func applyEdit(m *models.AppModel, raw string) {
	rec, ok := m.Current()
	if !ok {
		return
	}
	if name, value, found := strings.Cut(raw, "="); found && strings.TrimSpace(value) == "" {
		name = strings.TrimSpace(name)
		m.OverlayFor(rec.ID).Unset(name)
		m.Status = "Removed edit to " + name
		return
	}
	name, value, err := models.ParseAssignment(raw)
	if err != nil {
		m.LastError = err.Error()
		return
	}
	m.OverlayFor(rec.ID).Set(name, value)
	m.Status = "Edited " + name
}

func handleComposeKey(m *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	switch {
	case key.Matches(keyMsg, Keys.NextPane):
		stopInput(m)
		m.Focus = m.Focus.Next()
		return nil
	case key.Matches(keyMsg, Keys.Cancel):
		stopInput(m)
		m.Focus = models.QueuePane
		return nil
	}

	if q := m.State.Question; q != nil && q.Kind == models.MultipleChoice {
		if key.Matches(keyMsg, Keys.Option) {
			answerOption(m, keyMsg, eb)
		}
		return nil
	}

	if key.Matches(keyMsg, Keys.Send) {
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return nil
		}
		ev := eventbus.AnswerEvent{Text: text}
		if q := m.State.Question; q != nil {
			ev.QuestionID = q.ID
		}
		send(m, eb, ev)
		m.Input.Reset()
		return nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(keyMsg)
	return cmd
}

// answerOption replies to a multiple-choice question with the option whose
// 1-based number was pressed.
func answerOption(m *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) {
	q := m.State.Question
	if q == nil || q.Kind != models.MultipleChoice {
		return
	}
	n := int(keyMsg.String()[0] - '1')
	if n < 0 || n >= len(q.Options) {
		return
	}
	send(m, eb, eventbus.AnswerEvent{Text: q.Options[n], QuestionID: q.ID})
}

func startCompose(m *models.AppModel) tea.Cmd {
	m.Mode = models.Composing
	m.Input.Reset()
	m.Input.Placeholder = "Chat is idle..."
	if m.State.Question != nil {
		m.Input.Placeholder = "Type your answer..."
	}
	return m.Input.Focus()
}

func stopInput(m *models.AppModel) {
	m.Mode = models.Browsing
	m.Input.Reset()
	m.Input.Blur()
}

func move(m *models.AppModel, delta int) {
	switch m.Focus {
	case models.QueuePane:
		m.Cursor += delta
		if m.Cursor >= len(m.State.Pending) {
			m.Cursor = len(m.State.Pending) - 1
		}
		if m.Cursor < 0 {
			m.Cursor = 0
		}
	case models.LogPane:
		m.LogScroll += delta
		if m.LogScroll >= len(m.State.Log) {
			m.LogScroll = len(m.State.Log) - 1
		}
		if m.LogScroll < 0 {
			m.LogScroll = 0
		}
	}
}

func send(m *models.AppModel, eb *eventbus.EventBus, ev eventbus.UIEvent) {
	if err := eb.SendToCore(ev); err != nil {
		m.LastError = "Error sending command: " + err.Error()
	}
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// ListenerStoppedMsg reports that the push channel gave up reconnecting.
type ListenerStoppedMsg struct {
	Err error
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(m *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		m.Apply(event.Snapshot)
		m.Status = statusText(event.Snapshot)
	case eventbus.CommandErrorEvent:
		m.LastError = fmt.Sprintf("%s failed: %v", event.Op, event.Err)
	case eventbus.CommandDoneEvent:
		m.LastError = ""
	}
	return nil
}

func statusText(snap models.Snapshot) string {
	switch snap.Connection {
	case models.Connected:
		return fmt.Sprintf("%d pending, %d selected", len(snap.Pending), len(snap.Selection))
	case models.Reconnecting:
		return "Reconnecting"
	}
	return "Disconnected"
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(m *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	m.Width = sizeMsg.Width
	m.Height = sizeMsg.Height
	m.Input.Width = sizeMsg.Width - 8
}

func HandleTickMsg(m *models.AppModel) tea.Cmd {
	// Only handle UI animations - reconnecting dots
	if m.State.Connection == models.Reconnecting {
		m.Pulse = (m.Pulse + 1) % 4
	}
	return TickCmd()
}
