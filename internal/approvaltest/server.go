// Package approvaltest runs an in-process approval server for tests. It
// speaks the same HTTP and WebSocket protocol as the real backend.
package approvaltest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

// ApproveCall records one approval received over HTTP.
type ApproveCall struct {
	ID            string
	Modifications map[string]any
}

// Server is a fake approval backend.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	pending    []models.ToolCallRecord
	log        []models.ToolCallRecord
	history    []models.ChatMessage
	conns      map[*websocket.Conn]struct{}
	approvals  []ApproveCall
	denials    []string
	batches    []protocol.BatchBody
	answers    []protocol.UserAnswer
	failStatus int
	hold       bool // accept commands without confirming them on the socket
	frames     chan struct{}
}

func NewServer() *Server {
	s := &Server{
		conns:  make(map[*websocket.Conn]struct{}),
		frames: make(chan struct{}, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tool_calls", s.handleToolCalls)
	mux.HandleFunc("GET /api/chat-history", s.handleChatHistory)
	mux.HandleFunc("POST /api/approve/{id}", s.handleApprove)
	mux.HandleFunc("POST /api/deny/{id}", s.handleDeny)
	mux.HandleFunc("POST /api/approve-batch", s.handleBatch(true))
	mux.HandleFunc("POST /api/deny-batch", s.handleBatch(false))
	mux.HandleFunc("/ws", s.handleWS)

	s.Server = httptest.NewServer(mux)
	return s
}

// Close drops open sockets before shutting the HTTP server down; hijacked
// connections are not tracked by httptest.
func (s *Server) Close() {
	s.DropConnections()
	s.Server.Close()
}

// WebSocketURL is the push channel address.
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// FailCommands makes every command endpoint answer with status until reset
// with zero.
func (s *Server) FailCommands(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// HoldConfirmations accepts commands without broadcasting their outcome.
func (s *Server) HoldConfirmations(hold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = hold
}

// Propose queues a record for approval and announces it.
func (s *Server) Propose(toolName string, kwargs map[string]any, renderer models.RendererKind) models.ToolCallRecord {
	rec := models.ToolCallRecord{
		ID:        uuid.NewString(),
		ToolName:  toolName,
		NamedArgs: kwargs,
		Renderer:  renderer,
		Status:    models.Pending,
	}
	s.mu.Lock()
	s.pending = append(s.pending, rec)
	s.log = append(s.log, rec)
	s.mu.Unlock()

	s.Broadcast(protocol.NewToolRequest{Record: rec})
	return rec
}

// AddPendingQuietly queues a record without telling connected clients, to
// simulate events missed while a client was offline.
func (s *Server) AddPendingQuietly(rec models.ToolCallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Status = models.Pending
	s.pending = append(s.pending, rec)
	s.log = append(s.log, rec)
}

// AddHistory seeds the chat history endpoint.
func (s *Server) AddHistory(msgs ...models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

// Broadcast pushes an event to every connected client.
func (s *Server) Broadcast(ev protocol.Event) {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		panic(err)
	}
	s.BroadcastRaw(data)
}

// BroadcastRaw pushes a frame verbatim, malformed or not.
func (s *Server) BroadcastRaw(data []byte) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = c.Write(ctx, websocket.MessageText, data)
		cancel()
	}
}

// DropConnections closes every open socket.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	for c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "restart")
	}
}

// Connections returns the number of open sockets.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) Approvals() []ApproveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ApproveCall(nil), s.approvals...)
}

func (s *Server) Denials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.denials...)
}

func (s *Server) Batches() []protocol.BatchBody {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.BatchBody(nil), s.batches...)
}

func (s *Server) Answers() []protocol.UserAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.UserAnswer(nil), s.answers...)
}

// WaitForAnswer blocks until an answer frame arrives or the timeout passes.
func (s *Server) WaitForAnswer(timeout time.Duration) (protocol.UserAnswer, bool) {
	deadline := time.After(timeout)
	for {
		if a := s.Answers(); len(a) > 0 {
			return a[len(a)-1], true
		}
		select {
		case <-s.frames:
		case <-deadline:
			return protocol.UserAnswer{}, false
		}
	}
}

func (s *Server) snapshot() protocol.InitialState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.InitialState{
		Pending: append([]models.ToolCallRecord(nil), s.pending...),
		Log:     append([]models.ToolCallRecord(nil), s.log...),
	}
}

func (s *Server) handleToolCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.SnapshotBody(s.snapshot()))
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	history := append([]models.ChatMessage(nil), s.history...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, protocol.ChatHistoryBody(history))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	id := r.PathValue("id")

	var body protocol.ApproveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.approvals = append(s.approvals, ApproveCall{ID: id, Modifications: body.Modifications})
	s.mu.Unlock()

	if !s.settle(id, models.ApprovedAndExecuted) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "call_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "call_id": id})
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	id := r.PathValue("id")
	_, _ = io.Copy(io.Discard, r.Body)

	s.mu.Lock()
	s.denials = append(s.denials, id)
	s.mu.Unlock()

	if !s.settle(id, models.Denied) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "call_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "denied", "call_id": id})
}

func (s *Server) handleBatch(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.failing(w) {
			return
		}
		var body protocol.BatchBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		s.mu.Lock()
		s.batches = append(s.batches, body)
		s.mu.Unlock()

		status := models.Denied
		if approve {
			status = models.ApprovedAndExecuted
		}
		done := make([]string, 0, len(body.IDs))
		for _, id := range body.IDs {
			if s.settle(id, status) {
				done = append(done, id)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "batch_processed", "ids": done})
	}
}

// settle resolves a pending record and, unless held, broadcasts the outcome.
func (s *Server) settle(id string, status models.Status) bool {
	s.mu.Lock()
	found := false
	for i, rec := range s.pending {
		if rec.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			found = true
			break
		}
	}
	if found {
		for i := range s.log {
			if s.log[i].ID == id {
				s.log[i].Status = status
			}
		}
	}
	hold := s.hold
	s.mu.Unlock()

	if !found || hold {
		return found
	}
	if status == models.Denied {
		s.Broadcast(protocol.ToolDenied{ID: id})
	} else {
		s.Broadcast(protocol.ToolApproved{ID: id, Result: fmt.Sprintf("executed %s", id)})
	}
	return true
}

func (s *Server) failing(w http.ResponseWriter) bool {
	s.mu.Lock()
	status := s.failStatus
	s.mu.Unlock()
	if status == 0 {
		return false
	}
	http.Error(w, http.StatusText(status), status)
	return true
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	data, err := protocol.EncodeEvent(s.snapshot())
	if err == nil {
		err = conn.Write(r.Context(), websocket.MessageText, data)
	}
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "initial state")
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, msg, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		answer, err := protocol.DecodeUserAnswer(msg)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.answers = append(s.answers, answer)
		s.mu.Unlock()
		select {
		case s.frames <- struct{}{}:
		default:
		}
		if answer.QuestionID != "" {
			s.Broadcast(protocol.QuestionResolved{ID: answer.QuestionID})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
