package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/ui/styles"
)

// Markdown renders server messages, rebuilding its renderer only when the
// wrap width changes.
type Markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

func (md *Markdown) Render(text string, width int) string {
	if width < 20 {
		width = 20
	}
	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		md.renderer, md.width = r, width
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// RenderChat draws the thread and, below it, the outstanding question.
func RenderChat(m *models.AppModel, md *Markdown, width, rows int) string {
	focused := m.Focus == models.ChatPane
	var b strings.Builder
	b.WriteString(styles.PaneTitleStyle(focused).Render("Server Chat"))

	chat := m.State.Chat
	if rows > 0 && len(chat) > rows {
		chat = chat[len(chat)-rows:]
	}
	for _, msg := range chat {
		b.WriteString("\n")
		if msg.Author == models.User {
			b.WriteString(styles.UserStyle().Render("You: " + msg.Text))
			continue
		}
		b.WriteString(styles.ServerStyle().Render(md.Render(msg.Text, width-8)))
	}
	if len(m.State.Chat) == 0 {
		b.WriteString("\n" + styles.MutedStyle().Render("Chat is idle."))
	}

	if q := m.State.Question; q != nil {
		b.WriteString("\n" + styles.QuestionStyle().Render("Awaiting your response:"))
		if q.Kind == models.MultipleChoice {
			for i, opt := range q.Options {
				if i >= 9 {
					break
				}
				b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, opt))
			}
		}
	}
	return styles.PaneStyle(width, focused).Render(b.String())
}
