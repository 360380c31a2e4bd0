package models

// Status is the disposition of a tool call.
type Status int

const (
	Pending Status = iota
	AutoApproved
	ApprovedAndExecuted
	Denied
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case AutoApproved:
		return "auto approved"
	case ApprovedAndExecuted:
		return "approved and executed"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s != Pending
}

// RendererKind selects how a tool call is displayed. It never affects state.
type RendererKind int

const (
	RendererDefault RendererKind = iota
	RendererEditable
	RendererFileSystem
	RendererNukeLaunch
)

func (r RendererKind) String() string {
	switch r {
	case RendererEditable:
		return "editable"
	case RendererFileSystem:
		return "filesystem"
	case RendererNukeLaunch:
		return "nuke-launch"
	}
	return "default"
}

// ToolCallRecord is one proposed side-effecting operation.
type ToolCallRecord struct {
	ID             string
	ToolName       string
	PositionalArgs []any
	NamedArgs      map[string]any
	Renderer       RendererKind
	Status         Status
	Result         string // Set once the server reports execution
}

// Clone returns a deep copy so callers never alias store internals.
func (r ToolCallRecord) Clone() ToolCallRecord {
	out := r
	if r.PositionalArgs != nil {
		out.PositionalArgs = make([]any, len(r.PositionalArgs))
		for i, v := range r.PositionalArgs {
			out.PositionalArgs[i] = CloneValue(v)
		}
	}
	if r.NamedArgs != nil {
		out.NamedArgs = CloneArgs(r.NamedArgs)
	}
	return out
}

// CloneArgs deep-copies a named-argument map.
func CloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies JSON-shaped values (maps, slices, scalars).
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneArgs(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}
