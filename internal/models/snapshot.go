package models

// Snapshot is a read-only copy of the store, safe to hand to the UI.
type Snapshot struct {
	Version    uint64
	Pending    []ToolCallRecord // Arrival order
	Log        []ToolCallRecord // Append order
	Selection  []string         // Pending-queue order
	Chat       []ChatMessage
	Question   *PendingQuestion
	Connection ConnectionState
}

// IsSelected reports whether id is in the selection set.
func (s Snapshot) IsSelected(id string) bool {
	for _, sel := range s.Selection {
		if sel == id {
			return true
		}
	}
	return false
}

// PendingByID returns the pending record with the given id.
func (s Snapshot) PendingByID(id string) (ToolCallRecord, bool) {
	for _, r := range s.Pending {
		if r.ID == id {
			return r, true
		}
	}
	return ToolCallRecord{}, false
}
