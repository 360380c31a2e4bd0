package core

import (
	"sync"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

// Store is the single source of truth for the dashboard. Every transition
// is total over the current state: it either changes state and bumps the
// version, or is a no-op. Nothing here returns an error.
type Store struct {
	mu         sync.RWMutex
	pending    []string // ids awaiting a decision, arrival order
	log        []models.ToolCallRecord
	logIndex   map[string]int // id -> position in log
	selection  map[string]struct{}
	chat       []models.ChatMessage
	question   *models.PendingQuestion
	connection models.ConnectionState
	version    uint64
	onChange   func()
}

func NewStore() *Store {
	return &Store{
		pending:   make([]string, 0),
		log:       make([]models.ToolCallRecord, 0),
		logIndex:  make(map[string]int),
		selection: make(map[string]struct{}),
		chat:      make([]models.ChatMessage, 0),
	}
}

// OnChange registers fn to run after every state change, outside the lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) notify(changed bool) {
	if !changed {
		return
	}
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Apply folds one inbound event into the store and reports whether the
// state changed.
func (s *Store) Apply(ev protocol.Event) (changed bool) {
	defer func() { s.notify(changed) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case protocol.InitialState:
		s.replace(e.Pending, e.Log)
		changed = true
	case protocol.NewToolRequest:
		changed = s.addRequest(e.Record)
	case protocol.ToolApproved:
		changed = s.resolve(e.ID, models.ApprovedAndExecuted, e.Result)
	case protocol.ToolDenied:
		changed = s.resolve(e.ID, models.Denied, "")
	case protocol.LogAppended:
		changed = s.appendLog(e.Record)
	case protocol.NewQuestion:
		q := e.Question.Clone()
		s.question = &q
		s.chat = append(s.chat, models.ChatMessage{Author: models.Server, Text: q.Text})
		changed = true
	case protocol.NewChatMessage:
		s.chat = append(s.chat, e.Message)
		changed = true
	case protocol.QuestionResolved:
		if s.question != nil && s.question.ID == e.ID {
			s.question = nil
			changed = true
		}
	}

	if changed {
		s.version++
	}
	return changed
}

// replace installs a snapshot. A pending record missing from the log is
// appended to it, and a log entry still marked pending joins the queue, so
// queue membership always matches logged status.
func (s *Store) replace(pending, log []models.ToolCallRecord) {
	s.log = make([]models.ToolCallRecord, 0, len(log)+len(pending))
	s.logIndex = make(map[string]int, len(log)+len(pending))
	for _, rec := range log {
		if i, ok := s.logIndex[rec.ID]; ok {
			s.log[i] = rec.Clone()
			continue
		}
		s.logIndex[rec.ID] = len(s.log)
		s.log = append(s.log, rec.Clone())
	}

	s.pending = make([]string, 0, len(pending))
	for _, rec := range pending {
		if s.isPending(rec.ID) {
			continue
		}
		if i, ok := s.logIndex[rec.ID]; ok {
			s.log[i].Status = models.Pending
		} else {
			s.logIndex[rec.ID] = len(s.log)
			s.log = append(s.log, rec.Clone())
		}
		s.pending = append(s.pending, rec.ID)
	}
	for _, rec := range s.log {
		if rec.Status == models.Pending && !s.isPending(rec.ID) {
			s.pending = append(s.pending, rec.ID)
		}
	}

	for id := range s.selection {
		if !s.isPending(id) {
			delete(s.selection, id)
		}
	}
}

func (s *Store) addRequest(rec models.ToolCallRecord) bool {
	if _, ok := s.logIndex[rec.ID]; ok {
		return false
	}
	rec = rec.Clone()
	rec.Status = models.Pending
	s.logIndex[rec.ID] = len(s.log)
	s.log = append(s.log, rec)
	s.pending = append(s.pending, rec.ID)
	return true
}

func (s *Store) resolve(id string, status models.Status, result string) bool {
	i, ok := s.logIndex[id]
	if !ok {
		return false
	}
	if s.log[i].Status == status && s.log[i].Result == result && !s.isPending(id) {
		return false
	}
	s.log[i].Status = status
	if result != "" {
		s.log[i].Result = result
	}
	s.removePending(id)
	delete(s.selection, id)
	return true
}

// appendLog handles records that bypass the queue. A record whose id is
// already logged updates that entry instead of duplicating it.
func (s *Store) appendLog(rec models.ToolCallRecord) bool {
	rec = rec.Clone()
	if i, ok := s.logIndex[rec.ID]; ok {
		s.log[i] = rec
	} else {
		s.logIndex[rec.ID] = len(s.log)
		s.log = append(s.log, rec)
	}

	if rec.Status == models.Pending {
		if !s.isPending(rec.ID) {
			s.pending = append(s.pending, rec.ID)
		}
	} else {
		s.removePending(rec.ID)
		delete(s.selection, rec.ID)
	}
	return true
}

func (s *Store) isPending(id string) bool {
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

func (s *Store) removePending(id string) {
	for i, p := range s.pending {
		if p == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Toggle flips selection membership. Ids that are not pending are ignored.
func (s *Store) Toggle(id string) (changed bool) {
	defer func() { s.notify(changed) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isPending(id) {
		return false
	}
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
	} else {
		s.selection[id] = struct{}{}
	}
	s.version++
	return true
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection() (changed bool) {
	defer func() { s.notify(changed) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selection) == 0 {
		return false
	}
	s.selection = make(map[string]struct{})
	s.version++
	return true
}

// TakeSelection returns the selected ids in pending-queue order and clears
// the set in the same critical section, so a batch cannot be submitted twice.
func (s *Store) TakeSelection() (ids []string) {
	defer func() { s.notify(len(ids) > 0) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	ids = s.selectedLocked()
	if len(ids) > 0 {
		s.selection = make(map[string]struct{})
		s.version++
	}
	return ids
}

func (s *Store) selectedLocked() []string {
	ids := make([]string, 0, len(s.selection))
	for _, id := range s.pending {
		if _, ok := s.selection[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// AnswerLocally records the operator's reply before the server confirms it:
// the user message is appended and the pending question cleared at once.
func (s *Store) AnswerLocally(text string) {
	defer s.notify(true)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat = append(s.chat, models.ChatMessage{Author: models.User, Text: text})
	s.question = nil
	s.version++
}

// SeedChat reconciles the local thread with server history. An empty thread
// takes the whole history. Otherwise the history is aligned on the newest
// local messages and only what follows them is appended, so messages missed
// while disconnected are recovered without duplicating ones already shown.
// History that cannot be aligned is ignored.
func (s *Store) SeedChat(history []models.ChatMessage) (changed bool) {
	defer func() { s.notify(changed) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(history) == 0 {
		return false
	}
	if len(s.chat) == 0 {
		s.chat = append(s.chat, history...)
		s.version++
		return true
	}

	at := alignChat(s.chat, history)
	if at < 0 || at == len(history)-1 {
		return false
	}
	s.chat = append(s.chat, history[at+1:]...)
	s.version++
	return true
}

// alignChat returns the index in history of local's last message, matching
// as much of local's tail as history holds before it. It searches from the
// newest entry and returns -1 when nothing lines up.
func alignChat(local, history []models.ChatMessage) int {
	for i := len(history) - 1; i >= 0; i-- {
		n := min(i+1, len(local))
		match := true
		for j := 0; j < n; j++ {
			if history[i-j] != local[len(local)-1-j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (s *Store) SetConnection(state models.ConnectionState) (changed bool) {
	defer func() { s.notify(changed) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connection == state {
		return false
	}
	s.connection = state
	s.version++
	return true
}

func (s *Store) Connection() models.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connection
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// PendingQuestion returns a copy of the outstanding question, if any.
func (s *Store) PendingQuestion() (models.PendingQuestion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.question == nil {
		return models.PendingQuestion{}, false
	}
	return s.question.Clone(), true
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		Version:    s.version,
		Pending:    make([]models.ToolCallRecord, 0, len(s.pending)),
		Log:        make([]models.ToolCallRecord, len(s.log)),
		Selection:  s.selectedLocked(),
		Chat:       make([]models.ChatMessage, len(s.chat)),
		Connection: s.connection,
	}
	for _, id := range s.pending {
		snap.Pending = append(snap.Pending, s.log[s.logIndex[id]].Clone())
	}
	for i, rec := range s.log {
		snap.Log[i] = rec.Clone()
	}
	copy(snap.Chat, s.chat)
	if s.question != nil {
		q := s.question.Clone()
		snap.Question = &q
	}
	return snap
}
