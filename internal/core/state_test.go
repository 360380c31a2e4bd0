package core

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

func record(id string) models.ToolCallRecord {
	return models.ToolCallRecord{
		ID:        id,
		ToolName:  "delete_file",
		NamedArgs: map[string]any{"path": "/tmp"},
		Status:    models.Pending,
	}
}

func pendingIDs(snap models.Snapshot) []string {
	ids := make([]string, 0, len(snap.Pending))
	for _, r := range snap.Pending {
		ids = append(ids, r.ID)
	}
	return ids
}

func logStatuses(snap models.Snapshot) map[string]models.Status {
	out := make(map[string]models.Status, len(snap.Log))
	for _, r := range snap.Log {
		out[r.ID] = r.Status
	}
	return out
}

func TestStore_RequestThenDenied(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.InitialState{})
	s.Apply(protocol.NewToolRequest{Record: record("t1")})

	snap := s.Snapshot()
	assert.Equal(t, []string{"t1"}, pendingIDs(snap))
	require.Len(t, snap.Log, 1)
	assert.Equal(t, models.Pending, snap.Log[0].Status)

	s.Apply(protocol.ToolDenied{ID: "t1"})

	snap = s.Snapshot()
	assert.Empty(t, snap.Pending)
	require.Len(t, snap.Log, 1)
	assert.Equal(t, models.Denied, snap.Log[0].Status)
}

func TestStore_DuplicateRequestIsIgnored(t *testing.T) {
	s := NewStore()
	assert.True(t, s.Apply(protocol.NewToolRequest{Record: record("t1")}))
	v := s.Version()
	assert.False(t, s.Apply(protocol.NewToolRequest{Record: record("t1")}))
	assert.Equal(t, v, s.Version())

	snap := s.Snapshot()
	assert.Len(t, snap.Pending, 1)
	assert.Len(t, snap.Log, 1)
}

func TestStore_UnknownIDIsNoop(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("t1")})
	before := s.Snapshot()

	assert.False(t, s.Apply(protocol.ToolApproved{ID: "ghost"}))
	assert.False(t, s.Apply(protocol.ToolDenied{ID: "ghost"}))

	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("unknown id changed state (-before +after):\n%s", diff)
	}
}

func TestStore_ApprovedStoresResult(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("t1")})
	s.Apply(protocol.ToolApproved{ID: "t1", Result: "Deleted file: /tmp"})

	snap := s.Snapshot()
	assert.Empty(t, snap.Pending)
	assert.Equal(t, models.ApprovedAndExecuted, snap.Log[0].Status)
	assert.Equal(t, "Deleted file: /tmp", snap.Log[0].Result)

	// A repeated confirmation changes nothing.
	assert.False(t, s.Apply(protocol.ToolApproved{ID: "t1", Result: "Deleted file: /tmp"}))
}

func TestStore_SelectionPurgedOnResolution(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("t1")})
	s.Apply(protocol.NewToolRequest{Record: record("t2")})
	require.True(t, s.Toggle("t1"))
	require.True(t, s.Toggle("t2"))

	s.Apply(protocol.ToolApproved{ID: "t1"})
	s.Apply(protocol.ToolDenied{ID: "t2"})

	assert.Empty(t, s.Snapshot().Selection)
}

func TestStore_ToggleIgnoresNonPending(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.LogAppended{Record: models.ToolCallRecord{ID: "w1", ToolName: "get_weather", Status: models.AutoApproved}})

	assert.False(t, s.Toggle("w1"))
	assert.False(t, s.Toggle("never-seen"))
	assert.Empty(t, s.Snapshot().Selection)

	s.Apply(protocol.NewToolRequest{Record: record("t1")})
	assert.True(t, s.Toggle("t1"))
	assert.Equal(t, []string{"t1"}, s.Snapshot().Selection)
	assert.True(t, s.Toggle("t1"))
	assert.Empty(t, s.Snapshot().Selection)
}

func TestStore_TakeSelectionClears(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"t1", "t2", "t3"} {
		s.Apply(protocol.NewToolRequest{Record: record(id)})
	}
	s.Toggle("t3")
	s.Toggle("t1")

	assert.Equal(t, []string{"t1", "t3"}, s.TakeSelection())
	assert.Empty(t, s.Snapshot().Selection)
	assert.Empty(t, s.TakeSelection())
}

func TestStore_LogAppendedBypassesQueue(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.LogAppended{Record: models.ToolCallRecord{ID: "w1", ToolName: "get_weather", Status: models.AutoApproved}})

	snap := s.Snapshot()
	assert.Empty(t, snap.Pending)
	require.Len(t, snap.Log, 1)
	assert.Equal(t, models.AutoApproved, snap.Log[0].Status)

	// Same id again updates in place.
	s.Apply(protocol.LogAppended{Record: models.ToolCallRecord{ID: "w1", ToolName: "get_weather", Status: models.AutoApproved, Result: "sunny"}})
	snap = s.Snapshot()
	require.Len(t, snap.Log, 1)
	assert.Equal(t, "sunny", snap.Log[0].Result)
}

func TestStore_InitialStateReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("old")})
	s.Toggle("old")

	s.Apply(protocol.InitialState{
		Pending: []models.ToolCallRecord{record("a")},
		Log: []models.ToolCallRecord{
			{ID: "w", ToolName: "get_weather", Status: models.AutoApproved},
			record("a"),
		},
	})

	snap := s.Snapshot()
	assert.Equal(t, []string{"a"}, pendingIDs(snap))
	assert.Equal(t, map[string]models.Status{"w": models.AutoApproved, "a": models.Pending}, logStatuses(snap))
	assert.Empty(t, snap.Selection)
}

func TestStore_InitialStateKeepsSelectionOfStillPending(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("a")})
	s.Toggle("a")

	s.Apply(protocol.InitialState{Pending: []models.ToolCallRecord{record("a")}, Log: []models.ToolCallRecord{record("a")}})
	assert.Equal(t, []string{"a"}, s.Snapshot().Selection)
}

func TestStore_InitialStateAddsUnloggedPending(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.InitialState{Pending: []models.ToolCallRecord{record("a")}})

	snap := s.Snapshot()
	assert.Equal(t, []string{"a"}, pendingIDs(snap))
	require.Len(t, snap.Log, 1)
	assert.Equal(t, "a", snap.Log[0].ID)
}

func TestStore_QuestionReplace(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "q1", Text: "first?"}})
	s.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "q2", Text: "second?"}})

	q, ok := s.PendingQuestion()
	require.True(t, ok)
	assert.Equal(t, "q2", q.ID)
	assert.Len(t, s.Snapshot().Chat, 2)
}

func TestStore_ResolvedMismatchIgnored(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "Y", Text: "?"}})

	assert.False(t, s.Apply(protocol.QuestionResolved{ID: "X"}))
	q, ok := s.PendingQuestion()
	require.True(t, ok)
	assert.Equal(t, "Y", q.ID)

	assert.True(t, s.Apply(protocol.QuestionResolved{ID: "Y"}))
	_, ok = s.PendingQuestion()
	assert.False(t, ok)
}

func TestStore_OptimisticAnswer(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "q1", Text: "Which env?", Kind: models.FreeText}})

	snap := s.Snapshot()
	require.NotNil(t, snap.Question)
	assert.Equal(t, []models.ChatMessage{{Author: models.Server, Text: "Which env?"}}, snap.Chat)

	s.AnswerLocally("staging")
	snap = s.Snapshot()
	assert.Nil(t, snap.Question)
	assert.Equal(t, models.ChatMessage{Author: models.User, Text: "staging"}, snap.Chat[1])

	v := s.Version()
	assert.False(t, s.Apply(protocol.QuestionResolved{ID: "q1"}))
	assert.Equal(t, v, s.Version())
}

func TestStore_SeedChatFillsEmptyThread(t *testing.T) {
	s := NewStore()
	history := []models.ChatMessage{{Author: models.Server, Text: "earlier"}}
	assert.True(t, s.SeedChat(history))
	assert.False(t, s.SeedChat(history))
	assert.Len(t, s.Snapshot().Chat, 1)
}

func TestStore_SeedChatRecoversMissedMessages(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewChatMessage{Message: models.ChatMessage{Author: models.Server, Text: "which env?"}})
	s.AnswerLocally("staging")
	v := s.Version()

	history := []models.ChatMessage{
		{Author: models.Server, Text: "which env?"},
		{Author: models.User, Text: "staging"},
		{Author: models.Server, Text: "deploying"},
		{Author: models.Server, Text: "done"},
	}
	require.True(t, s.SeedChat(history))
	assert.Equal(t, history, s.Snapshot().Chat)
	assert.Greater(t, s.Version(), v)

	assert.False(t, s.SeedChat(history))
}

func TestStore_SeedChatAlignsOnNewestMatch(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewChatMessage{Message: models.ChatMessage{Author: models.Server, Text: "ok"}})
	s.Apply(protocol.NewChatMessage{Message: models.ChatMessage{Author: models.Server, Text: "next?"}})

	history := []models.ChatMessage{
		{Author: models.Server, Text: "ok"},
		{Author: models.Server, Text: "next?"},
		{Author: models.Server, Text: "ok"},
		{Author: models.Server, Text: "next?"},
		{Author: models.Server, Text: "bye"},
	}
	require.True(t, s.SeedChat(history))
	chat := s.Snapshot().Chat
	require.Len(t, chat, 3)
	assert.Equal(t, "bye", chat[2].Text)
}

func TestStore_SeedChatIgnoresUnrelatedHistory(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewChatMessage{Message: models.ChatMessage{Author: models.Server, Text: "hello"}})
	v := s.Version()

	assert.False(t, s.SeedChat([]models.ChatMessage{{Author: models.Server, Text: "something else"}}))
	assert.Equal(t, v, s.Version())
	assert.Len(t, s.Snapshot().Chat, 1)
}

func TestStore_SnapshotDoesNotAlias(t *testing.T) {
	s := NewStore()
	s.Apply(protocol.NewToolRequest{Record: record("t1")})

	snap := s.Snapshot()
	snap.Pending[0].NamedArgs["path"] = "/etc"
	snap.Log[0].NamedArgs["path"] = "/etc"

	again := s.Snapshot()
	assert.Equal(t, "/tmp", again.Pending[0].NamedArgs["path"])
	assert.Equal(t, "/tmp", again.Log[0].NamedArgs["path"])
}

func TestStore_ConnectionState(t *testing.T) {
	s := NewStore()
	assert.Equal(t, models.Disconnected, s.Connection())
	assert.True(t, s.SetConnection(models.Connected))
	assert.False(t, s.SetConnection(models.Connected))
	assert.Equal(t, models.Connected, s.Snapshot().Connection)
}

// For any event sequence, an id is in the pending queue iff its logged
// status is Pending, each logged id appears once, and selection only holds
// pending ids.
func TestStore_InvariantsUnderRandomEvents(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		s := NewStore()
		for step := 0; step < 40; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(7) {
			case 0:
				s.Apply(protocol.NewToolRequest{Record: record(id)})
			case 1:
				s.Apply(protocol.ToolApproved{ID: id})
			case 2:
				s.Apply(protocol.ToolDenied{ID: id})
			case 3:
				st := models.Status(rng.Intn(4))
				s.Apply(protocol.LogAppended{Record: models.ToolCallRecord{ID: id, ToolName: "x", Status: st}})
			case 4:
				s.Toggle(id)
			case 5:
				s.TakeSelection()
			case 6:
				if rng.Intn(4) == 0 {
					s.Apply(protocol.InitialState{
						Pending: []models.ToolCallRecord{record(id)},
						Log:     []models.ToolCallRecord{{ID: "z", ToolName: "x", Status: models.Pending}},
					})
				}
			}
			assertInvariants(t, s.Snapshot())
		}
	}
}

func assertInvariants(t *testing.T, snap models.Snapshot) {
	t.Helper()

	logged := make(map[string]models.Status)
	for _, r := range snap.Log {
		_, dup := logged[r.ID]
		require.False(t, dup, "id %s logged twice", r.ID)
		logged[r.ID] = r.Status
	}

	inQueue := make(map[string]bool)
	for _, r := range snap.Pending {
		require.False(t, inQueue[r.ID], "id %s queued twice", r.ID)
		inQueue[r.ID] = true
		require.Equal(t, models.Pending, logged[r.ID], "queued id %s not pending in log", r.ID)
	}
	for id, st := range logged {
		require.Equal(t, st == models.Pending, inQueue[id], "id %s: status %v, queued %v", id, st, inQueue[id])
	}
	for _, id := range snap.Selection {
		require.True(t, inQueue[id], "selected id %s not pending", id)
	}
}
