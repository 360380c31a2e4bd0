package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Overlay holds operator edits to a record's named arguments. It is kept
// apart from the authoritative record until approval, when Snapshot hands a
// copy to the dispatcher.
type Overlay struct {
	RecordID string
	edits    map[string]any
}

func NewOverlay(recordID string) *Overlay {
	return &Overlay{RecordID: recordID, edits: make(map[string]any)}
}

func (o *Overlay) Set(name string, value any) {
	o.edits[name] = CloneValue(value)
}

func (o *Overlay) Unset(name string) {
	delete(o.edits, name)
}

func (o *Overlay) Reset() {
	o.edits = make(map[string]any)
}

func (o *Overlay) IsEmpty() bool {
	return len(o.edits) == 0
}

// Edited reports whether name has been overridden.
func (o *Overlay) Edited(name string) bool {
	_, ok := o.edits[name]
	return ok
}

// Merged returns base with the edits applied, without touching base.
func (o *Overlay) Merged(base map[string]any) map[string]any {
	out := CloneArgs(base)
	if out == nil {
		out = make(map[string]any, len(o.edits))
	}
	for k, v := range o.edits {
		out[k] = CloneValue(v)
	}
	return out
}

// Snapshot returns a deep copy of the edits. Later edits do not affect it.
func (o *Overlay) Snapshot() map[string]any {
	out := CloneArgs(o.edits)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}

// ParseAssignment parses "name=value". The value is read as JSON when it
// parses, otherwise it is taken as a plain string.
func ParseAssignment(s string) (string, any, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("expected name=value, got %q", s)
	}
	raw = strings.TrimSpace(raw)

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return name, v, nil
	}
	return name, raw, nil
}
