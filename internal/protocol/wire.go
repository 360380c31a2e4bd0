package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Rorical/RoriGate/internal/models"
)

// Frame is the envelope of every message on the duplex channel.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Record is the wire shape of a tool call.
type Record struct {
	ID       string         `json:"id"`
	ToolName string         `json:"tool_name"`
	Args     []any          `json:"args"`
	Kwargs   map[string]any `json:"kwargs"`
	Renderer string         `json:"renderer,omitempty"`
	Status   string         `json:"status,omitempty"`
	Result   any            `json:"result,omitempty"`
}

type pendingEntry struct {
	Details *Record `json:"details"`
}

type snapshotPayload struct {
	Pending []pendingEntry `json:"pending"`
	Log     []Record       `json:"log"`
}

type idPayload struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
}

// Question is the wire shape of a pending question.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// Message is the wire shape of a chat message.
type Message struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

type chatHistory struct {
	History []Message `json:"history"`
}

// UserAnswer is sent over the duplex channel in reply to a question or as
// free-form chat.
type UserAnswer struct {
	Text       string `json:"text"`
	QuestionID string `json:"question_id,omitempty"`
}

// ApproveBody is the body of POST /api/approve/{id}.
type ApproveBody struct {
	Modifications map[string]any `json:"modifications"`
}

// BatchBody is the body of the batch endpoints.
type BatchBody struct {
	IDs []string `json:"ids"`
}

var statusTags = map[string]models.Status{
	"pending":               models.Pending,
	"auto_approved":         models.AutoApproved,
	"approved_and_executed": models.ApprovedAndExecuted,
	"denied":                models.Denied,
}

var rendererTags = map[string]models.RendererKind{
	"default":            models.RendererDefault,
	"EditableRenderer":   models.RendererEditable,
	"FileSystemRenderer": models.RendererFileSystem,
	"NukeLaunchRenderer": models.RendererNukeLaunch,
}

// StatusTag returns the wire tag of a status.
func StatusTag(s models.Status) string {
	for tag, v := range statusTags {
		if v == s {
			return tag
		}
	}
	return "pending"
}

// RendererTag returns the wire tag of a renderer kind.
func RendererTag(r models.RendererKind) string {
	for tag, v := range rendererTags {
		if v == r {
			return tag
		}
	}
	return "default"
}

// toModel validates a wire record. When statusRequired is false a missing
// status decodes as Pending.
func (r Record) toModel(statusRequired bool) (models.ToolCallRecord, error) {
	if r.ID == "" {
		return models.ToolCallRecord{}, fmt.Errorf("record missing id")
	}
	if r.ToolName == "" {
		return models.ToolCallRecord{}, fmt.Errorf("record %s missing tool_name", r.ID)
	}

	status := models.Pending
	if r.Status != "" {
		s, ok := statusTags[r.Status]
		if !ok {
			return models.ToolCallRecord{}, fmt.Errorf("record %s has unknown status %q", r.ID, r.Status)
		}
		status = s
	} else if statusRequired {
		return models.ToolCallRecord{}, fmt.Errorf("record %s missing status", r.ID)
	}

	// Unknown renderer tags fall back to the default display.
	renderer := rendererTags[r.Renderer]

	return models.ToolCallRecord{
		ID:             r.ID,
		ToolName:       r.ToolName,
		PositionalArgs: r.Args,
		NamedArgs:      r.Kwargs,
		Renderer:       renderer,
		Status:         status,
		Result:         resultString(r.Result),
	}, nil
}

// FromModel converts a record to its wire shape.
func FromModel(rec models.ToolCallRecord) Record {
	out := Record{
		ID:       rec.ID,
		ToolName: rec.ToolName,
		Args:     rec.PositionalArgs,
		Kwargs:   rec.NamedArgs,
		Renderer: RendererTag(rec.Renderer),
		Status:   StatusTag(rec.Status),
	}
	if rec.Result != "" {
		out.Result = rec.Result
	}
	return out
}

func (q Question) toModel() (models.PendingQuestion, error) {
	if q.ID == "" {
		return models.PendingQuestion{}, fmt.Errorf("question missing id")
	}
	if q.Text == "" {
		return models.PendingQuestion{}, fmt.Errorf("question %s missing text", q.ID)
	}

	var kind models.QuestionKind
	switch q.Type {
	case "free_text":
		kind = models.FreeText
	case "multiple_choice":
		kind = models.MultipleChoice
		if len(q.Options) == 0 {
			return models.PendingQuestion{}, fmt.Errorf("question %s: multiple choice without options", q.ID)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if _, dup := seen[opt]; dup {
				return models.PendingQuestion{}, fmt.Errorf("question %s: duplicate option %q", q.ID, opt)
			}
			seen[opt] = struct{}{}
		}
	default:
		return models.PendingQuestion{}, fmt.Errorf("question %s has unknown type %q", q.ID, q.Type)
	}

	out := models.PendingQuestion{ID: q.ID, Text: q.Text, Kind: kind}
	if kind == models.MultipleChoice {
		out.Options = append([]string(nil), q.Options...)
	}
	return out, nil
}

// QuestionFromModel converts a question to its wire shape.
func QuestionFromModel(q models.PendingQuestion) Question {
	typ := "free_text"
	if q.Kind == models.MultipleChoice {
		typ = "multiple_choice"
	}
	return Question{ID: q.ID, Text: q.Text, Type: typ, Options: q.Options}
}

func (m Message) toModel() (models.ChatMessage, error) {
	if m.Text == "" {
		return models.ChatMessage{}, fmt.Errorf("chat message missing text")
	}
	switch m.Author {
	case "", "server":
		return models.ChatMessage{Author: models.Server, Text: m.Text}, nil
	case "user":
		return models.ChatMessage{Author: models.User, Text: m.Text}, nil
	}
	return models.ChatMessage{}, fmt.Errorf("chat message has unknown author %q", m.Author)
}

func resultString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
