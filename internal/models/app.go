package models

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// Pane is a focusable region of the dashboard.
type Pane int

const (
	QueuePane Pane = iota
	LogPane
	ChatPane
)

func (p Pane) Next() Pane {
	return (p + 1) % 3
}

func (p Pane) String() string {
	switch p {
	case LogPane:
		return "log"
	case ChatPane:
		return "chat"
	}
	return "queue"
}

// InputMode says what the text input is currently collecting.
type InputMode int

const (
	Browsing   InputMode = iota
	EditingArg           // name=value for the record under the cursor
	Composing            // chat reply
)

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	State     Snapshot            // Latest store snapshot pushed by core
	Focus     Pane                // Focused pane
	Cursor    int                 // Index into State.Pending
	LogScroll int                 // Rows scrolled from the newest log entry
	Overlays  map[string]*Overlay // Edit overlays by record id, owned by the view
	Mode      InputMode
	Input     textinput.Model
	Status    string // Status bar text
	LastError string // Most recent command failure
	Profile   string // Active config profile
	Pulse     int    // Animation counter for the reconnecting indicator
	Width     int    // Terminal width
	Height    int    // Terminal height
}

func NewAppModel(profile string) AppModel {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 4096
	return AppModel{
		Focus:    QueuePane,
		Overlays: make(map[string]*Overlay),
		Input:    input,
		Status:   "Connecting",
		Profile:  profile,
	}
}

// Current returns the pending record under the cursor.
func (m *AppModel) Current() (ToolCallRecord, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.State.Pending) {
		return ToolCallRecord{}, false
	}
	return m.State.Pending[m.Cursor], true
}

// OverlayFor returns the overlay for id, creating it on first use.
func (m *AppModel) OverlayFor(id string) *Overlay {
	if o, ok := m.Overlays[id]; ok {
		return o
	}
	o := NewOverlay(id)
	m.Overlays[id] = o
	return o
}

// Apply installs a new snapshot, keeping the cursor on the same record when
// it is still pending and dropping overlays for records that left the queue.
func (m *AppModel) Apply(snap Snapshot) {
	var currentID string
	if rec, ok := m.Current(); ok {
		currentID = rec.ID
	}
	m.State = snap

	m.Cursor = clamp(m.Cursor, len(snap.Pending))
	for i, rec := range snap.Pending {
		if rec.ID == currentID {
			m.Cursor = i
			break
		}
	}

	for id := range m.Overlays {
		if _, ok := snap.PendingByID(id); !ok {
			delete(m.Overlays, id)
		}
	}
	m.LogScroll = clamp(m.LogScroll, len(snap.Log))
	if m.Mode == EditingArg {
		if _, ok := snap.PendingByID(currentID); !ok || currentID == "" {
			m.Mode = Browsing
			m.Input.Reset()
		}
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
