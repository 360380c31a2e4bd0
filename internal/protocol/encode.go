package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Rorical/RoriGate/internal/models"
)

// EncodeUserAnswer builds the user_response frame.
func EncodeUserAnswer(a UserAnswer) ([]byte, error) {
	return encodeFrame(TypeUserResponse, a)
}

// DecodeUserAnswer parses a user_response frame. Used by servers and tests.
func DecodeUserAnswer(data []byte) (UserAnswer, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return UserAnswer{}, &FrameError{Err: err}
	}
	if f.Type != TypeUserResponse {
		return UserAnswer{}, malformed(f.Type, "expected %s", TypeUserResponse)
	}
	var a UserAnswer
	if err := unmarshalPayload(f, &a); err != nil {
		return UserAnswer{}, err
	}
	return a, nil
}

// EncodeEvent renders an event as a push frame, the inverse of Decode.
func EncodeEvent(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case InitialState:
		return encodeFrame(TypeInitialState, SnapshotBody(e))
	case NewToolRequest:
		return encodeFrame(TypeNewRequest, FromModel(e.Record))
	case ToolApproved:
		p := idPayload{ID: e.ID}
		if e.Result != "" {
			p.Result = e.Result
		}
		return encodeFrame(TypeRequestApproved, p)
	case ToolDenied:
		return encodeFrame(TypeRequestDenied, idPayload{ID: e.ID})
	case LogAppended:
		return encodeFrame(TypeLogUpdate, FromModel(e.Record))
	case NewQuestion:
		return encodeFrame(TypeNewQuestion, QuestionFromModel(e.Question))
	case NewChatMessage:
		return encodeFrame(TypeChatMessage, Message{Author: e.Message.Author.String(), Text: e.Message.Text})
	case QuestionResolved:
		return encodeFrame(TypeQuestionResolved, idPayload{ID: e.ID})
	}
	return nil, fmt.Errorf("cannot encode %T", ev)
}

// SnapshotBody renders a snapshot in the GET /api/tool_calls shape.
func SnapshotBody(st InitialState) any {
	p := snapshotPayload{
		Pending: make([]pendingEntry, 0, len(st.Pending)),
		Log:     make([]Record, 0, len(st.Log)),
	}
	for _, rec := range st.Pending {
		r := FromModel(rec)
		p.Pending = append(p.Pending, pendingEntry{Details: &r})
	}
	for _, rec := range st.Log {
		p.Log = append(p.Log, FromModel(rec))
	}
	return p
}

// ChatHistoryBody renders messages in the GET /api/chat-history shape.
func ChatHistoryBody(msgs []models.ChatMessage) any {
	h := chatHistory{History: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		h.History = append(h.History, Message{Author: m.Author.String(), Text: m.Text})
	}
	return h
}

func encodeFrame(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return json.Marshal(Frame{Type: typ, Payload: raw})
}
