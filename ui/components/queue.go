package components

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/ui/styles"
)

var toolIcons = map[string]string{
	"send_email":   "✉",
	"delete_file":  "🗑",
	"launch_nukes": "☢",
}

func toolIcon(name string) string {
	if icon, ok := toolIcons[name]; ok {
		return icon
	}
	return "⚙"
}

// RenderQueue draws the pending approvals, one card per record.
func RenderQueue(m *models.AppModel, width int) string {
	focused := m.Focus == models.QueuePane
	var b strings.Builder
	b.WriteString(styles.PaneTitleStyle(focused).Render(fmt.Sprintf("Approval Queue (%d)", len(m.State.Pending))))
	b.WriteString("\n")

	if len(m.State.Pending) == 0 {
		b.WriteString(styles.MutedStyle().Render("Nothing awaiting approval."))
		return styles.PaneStyle(width, focused).Render(b.String())
	}

	for i, rec := range m.State.Pending {
		b.WriteString(RenderCard(rec, m.State.IsSelected(rec.ID), m.Overlays[rec.ID], focused && i == m.Cursor))
		b.WriteString("\n")
	}
	return styles.PaneStyle(width, focused).Render(strings.TrimSuffix(b.String(), "\n"))
}

// RenderCard draws one pending record with the body its renderer asks for.
func RenderCard(rec models.ToolCallRecord, selected bool, overlay *models.Overlay, cursor bool) string {
	box := "[ ]"
	if selected {
		box = "[x]"
	}
	header := fmt.Sprintf("%s %s %s %s", box, toolIcon(rec.ToolName),
		styles.ToolNameStyle().Render(rec.ToolName), styles.MutedStyle().Render(rec.ID))

	var body string
	switch rec.Renderer {
	case models.RendererEditable:
		body = renderEditable(rec.NamedArgs, overlay)
	case models.RendererFileSystem:
		body = renderFileSystem(merged(rec.NamedArgs, overlay))
	case models.RendererNukeLaunch:
		body = renderNukeLaunch(merged(rec.NamedArgs, overlay))
	default:
		body = renderDefault(merged(rec.NamedArgs, overlay))
	}
	if len(rec.PositionalArgs) > 0 {
		body = styles.MutedStyle().Render("args: "+compact(rec.PositionalArgs)) + "\n" + body
	}
	if overlay != nil && !overlay.IsEmpty() && rec.Renderer != models.RendererEditable {
		body += "\n" + styles.EditedStyle().Render("edited")
	}
	return styles.CardStyle(cursor).Render(header + "\n" + body)
}

func merged(kwargs map[string]any, overlay *models.Overlay) map[string]any {
	if overlay == nil {
		return kwargs
	}
	return overlay.Merged(kwargs)
}

func renderDefault(kwargs map[string]any) string {
	data, err := json.MarshalIndent(kwargs, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", kwargs)
	}
	return styles.CodeStyle().Render(string(data))
}

// renderEditable lists every named argument and marks the overridden ones
// with their original value.
func renderEditable(kwargs map[string]any, overlay *models.Overlay) string {
	view := merged(kwargs, overlay)
	names := make([]string, 0, len(view))
	for name := range view {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		line := fmt.Sprintf("%s = %s", name, compact(view[name]))
		if overlay != nil && overlay.Edited(name) {
			was := "unset"
			if v, ok := kwargs[name]; ok {
				was = compact(v)
			}
			line = styles.EditedStyle().Render(fmt.Sprintf("%s  (was %s)", line, was))
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return styles.MutedStyle().Render("no arguments")
	}
	return strings.Join(lines, "\n")
}

func renderFileSystem(kwargs map[string]any) string {
	recursive, _ := kwargs["recursive"].(bool)
	lines := []string{
		"Filesystem Operation",
		"This action will modify the filesystem.",
		fmt.Sprintf("Path: %v", kwargs["path"]),
		fmt.Sprintf("Recursive: %t", recursive),
	}
	return styles.FileSystemStyle().Render(strings.Join(lines, "\n"))
}

func renderNukeLaunch(kwargs map[string]any) string {
	lines := []string{
		"NUCLEAR LAUNCH REQUESTED",
		fmt.Sprintf("Target Coordinates: %v", kwargs["target_coordinates"]),
		fmt.Sprintf("Confirmation Code: %v", kwargs["confirmation_code"]),
	}
	return styles.NukeLaunchStyle().Render(strings.Join(lines, "\n"))
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
