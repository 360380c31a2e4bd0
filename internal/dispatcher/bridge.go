package dispatcher

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/update"
)

// Bridge routes core events into the Bubble Tea program.
type Bridge struct {
	eventBus *eventbus.EventBus
}

func NewBridge(eb *eventbus.EventBus) *Bridge {
	return &Bridge{eventBus: eb}
}

// ListenForCoreEvents waits for the next core event or state snapshot. The
// model re-issues it after handling each message; it yields nil once the bus
// is closed.
func (b *Bridge) ListenForCoreEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case event, ok := <-b.eventBus.CoreToUI():
			if !ok {
				return nil
			}
			return update.CoreEventMsg{Event: event}
		case snap, ok := <-b.eventBus.StateUpdates():
			if !ok {
				return nil
			}
			return update.CoreEventMsg{Event: eventbus.StateUpdateEvent{Snapshot: snap}}
		}
	}
}

func (b *Bridge) GetEventBus() *eventbus.EventBus {
	return b.eventBus
}
