package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Rorical/RoriGate/internal/models"
)

// Decode parses one inbound frame. Unknown frame types yield Ignored and a
// nil error; structurally invalid frames yield a *FrameError.
func Decode(data []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &FrameError{Err: err}
	}
	if f.Type == "" {
		return nil, malformed("", "frame missing type")
	}

	switch f.Type {
	case TypeInitialState:
		st, err := decodeSnapshot(f.Payload)
		if err != nil {
			return nil, &FrameError{Type: f.Type, Err: err}
		}
		return st, nil

	case TypeNewRequest:
		var r Record
		if err := unmarshalPayload(f, &r); err != nil {
			return nil, err
		}
		rec, err := r.toModel(false)
		if err != nil {
			return nil, &FrameError{Type: f.Type, Err: err}
		}
		rec.Status = models.Pending
		return NewToolRequest{Record: rec}, nil

	case TypeRequestApproved, TypeRequestDenied, TypeQuestionResolved:
		var p idPayload
		if err := unmarshalPayload(f, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, malformed(f.Type, "payload missing id")
		}
		switch f.Type {
		case TypeRequestApproved:
			return ToolApproved{ID: p.ID, Result: resultString(p.Result)}, nil
		case TypeRequestDenied:
			return ToolDenied{ID: p.ID}, nil
		default:
			return QuestionResolved{ID: p.ID}, nil
		}

	case TypeLogUpdate:
		var r Record
		if err := unmarshalPayload(f, &r); err != nil {
			return nil, err
		}
		rec, err := r.toModel(true)
		if err != nil {
			return nil, &FrameError{Type: f.Type, Err: err}
		}
		return LogAppended{Record: rec}, nil

	case TypeNewQuestion:
		var q Question
		if err := unmarshalPayload(f, &q); err != nil {
			return nil, err
		}
		pq, err := q.toModel()
		if err != nil {
			return nil, &FrameError{Type: f.Type, Err: err}
		}
		return NewQuestion{Question: pq}, nil

	case TypeChatMessage:
		var m Message
		if err := unmarshalPayload(f, &m); err != nil {
			return nil, err
		}
		msg, err := m.toModel()
		if err != nil {
			return nil, &FrameError{Type: f.Type, Err: err}
		}
		return NewChatMessage{Message: msg}, nil
	}

	return Ignored{Type: f.Type}, nil
}

// DecodeSnapshot parses the body of GET /api/tool_calls, which shares its
// shape with the initial_state payload.
func DecodeSnapshot(data []byte) (InitialState, error) {
	st, err := decodeSnapshot(data)
	if err != nil {
		return InitialState{}, &FrameError{Type: TypeInitialState, Err: err}
	}
	return st, nil
}

// DecodeChatHistory parses the body of GET /api/chat-history.
func DecodeChatHistory(data []byte) ([]models.ChatMessage, error) {
	var h chatHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, &FrameError{Err: err}
	}
	out := make([]models.ChatMessage, 0, len(h.History))
	for i, m := range h.History {
		msg, err := m.toModel()
		if err != nil {
			return nil, &FrameError{Err: fmt.Errorf("history[%d]: %w", i, err)}
		}
		out = append(out, msg)
	}
	return out, nil
}

func decodeSnapshot(raw json.RawMessage) (InitialState, error) {
	if !isObject(raw) {
		return InitialState{}, fmt.Errorf("payload is not an object")
	}
	var p snapshotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return InitialState{}, err
	}

	st := InitialState{
		Pending: make([]models.ToolCallRecord, 0, len(p.Pending)),
		Log:     make([]models.ToolCallRecord, 0, len(p.Log)),
	}
	for i, entry := range p.Pending {
		if entry.Details == nil {
			return InitialState{}, fmt.Errorf("pending[%d] missing details", i)
		}
		rec, err := entry.Details.toModel(false)
		if err != nil {
			return InitialState{}, fmt.Errorf("pending[%d]: %w", i, err)
		}
		rec.Status = models.Pending
		st.Pending = append(st.Pending, rec)
	}
	for i, r := range p.Log {
		rec, err := r.toModel(true)
		if err != nil {
			return InitialState{}, fmt.Errorf("log[%d]: %w", i, err)
		}
		st.Log = append(st.Log, rec)
	}
	return st, nil
}

func unmarshalPayload(f Frame, v any) error {
	if !isObject(f.Payload) {
		return malformed(f.Type, "payload is not an object")
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return &FrameError{Type: f.Type, Err: err}
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
