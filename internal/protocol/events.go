// Package protocol defines the frames exchanged with the approval server.
//
// Inbound push frames decode into one of a closed set of Event types.
// Frames with an unknown type decode to Ignored so newer servers can add
// event kinds without breaking older clients.
package protocol

import "github.com/Rorical/RoriGate/internal/models"

// Frame type tags.
const (
	TypeInitialState     = "initial_state"
	TypeNewRequest       = "new_request"
	TypeRequestApproved  = "request_approved"
	TypeRequestDenied    = "request_denied"
	TypeLogUpdate        = "log_update"
	TypeNewQuestion      = "new_question"
	TypeChatMessage      = "chat_message"
	TypeQuestionResolved = "question_resolved"

	TypeUserResponse = "user_response"
)

// Event is an inbound push notification.
type Event interface {
	event()
}

// InitialState replaces the pending queue and log wholesale.
type InitialState struct {
	Pending []models.ToolCallRecord
	Log     []models.ToolCallRecord
}

// NewToolRequest announces a record awaiting a decision.
type NewToolRequest struct {
	Record models.ToolCallRecord
}

// ToolApproved reports that a pending record was approved and executed.
type ToolApproved struct {
	ID     string
	Result string
}

type ToolDenied struct {
	ID string
}

// LogAppended carries a record that skipped the pending queue,
// typically an auto-approval.
type LogAppended struct {
	Record models.ToolCallRecord
}

type NewQuestion struct {
	Question models.PendingQuestion
}

type NewChatMessage struct {
	Message models.ChatMessage
}

type QuestionResolved struct {
	ID string
}

// Ignored is returned for frames whose type this client does not know.
type Ignored struct {
	Type string
}

func (InitialState) event()     {}
func (NewToolRequest) event()   {}
func (ToolApproved) event()     {}
func (ToolDenied) event()       {}
func (LogAppended) event()      {}
func (NewQuestion) event()      {}
func (NewChatMessage) event()   {}
func (QuestionResolved) event() {}
func (Ignored) event()          {}
