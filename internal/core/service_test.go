package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSubmitter struct {
	mu     sync.Mutex
	cmds   []protocol.Command
	result error
	reject error
}

func (r *recordingSubmitter) Submit(cmd protocol.Command, done func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject != nil {
		return r.reject
	}
	r.cmds = append(r.cmds, cmd)
	if done != nil {
		done(r.result)
	}
	return nil
}

func (r *recordingSubmitter) commands() []protocol.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Command(nil), r.cmds...)
}

func startService(t *testing.T, sub Submitter) (*Store, *eventbus.EventBus) {
	t.Helper()
	store := NewStore()
	bus := eventbus.NewEventBus()
	svc := NewSyncService(store, bus, sub, nil)
	svc.Start()
	t.Cleanup(func() {
		svc.Stop()
		bus.Close()
	})
	return store, bus
}

// nextEvent skips events until match accepts one.
func nextEvent(t *testing.T, bus *eventbus.EventBus, match func(eventbus.CoreEvent) bool) eventbus.CoreEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-bus.CoreToUI():
			if match(ev) {
				return ev
			}
		case snap := <-bus.StateUpdates():
			if ev := (eventbus.StateUpdateEvent{Snapshot: snap}); match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for core event")
			return nil
		}
	}
}

func TestSyncService_PushesInitialAndChangedState(t *testing.T) {
	store, bus := startService(t, &recordingSubmitter{})

	first := nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		_, ok := ev.(eventbus.StateUpdateEvent)
		return ok
	})
	assert.Empty(t, first.(eventbus.StateUpdateEvent).Snapshot.Pending)

	store.Apply(protocol.NewToolRequest{Record: models.ToolCallRecord{ID: "t1", ToolName: "x"}})

	ev := nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		u, ok := ev.(eventbus.StateUpdateEvent)
		return ok && len(u.Snapshot.Pending) == 1
	})
	assert.Equal(t, "t1", ev.(eventbus.StateUpdateEvent).Snapshot.Pending[0].ID)
}

func TestSyncService_ToggleAppliesToStore(t *testing.T) {
	store, bus := startService(t, &recordingSubmitter{})
	store.Apply(protocol.NewToolRequest{Record: models.ToolCallRecord{ID: "t1"}})

	require.NoError(t, bus.SendToCore(eventbus.ToggleSelectionEvent{ID: "t1"}))
	nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		u, ok := ev.(eventbus.StateUpdateEvent)
		return ok && u.Snapshot.IsSelected("t1")
	})

	require.NoError(t, bus.SendToCore(eventbus.ClearSelectionEvent{}))
	nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		u, ok := ev.(eventbus.StateUpdateEvent)
		return ok && len(u.Snapshot.Pending) == 1 && len(u.Snapshot.Selection) == 0
	})
	assert.Empty(t, store.Snapshot().Selection)
}

func TestSyncService_SubmitsCommands(t *testing.T) {
	sub := &recordingSubmitter{}
	_, bus := startService(t, sub)

	require.NoError(t, bus.SendToCore(eventbus.ApproveEvent{ID: "t1", Overrides: map[string]any{"k": "v"}}))
	require.NoError(t, bus.SendToCore(eventbus.DenyEvent{ID: "t2"}))
	require.NoError(t, bus.SendToCore(eventbus.BatchApproveEvent{}))
	require.NoError(t, bus.SendToCore(eventbus.BatchDenyEvent{}))
	require.NoError(t, bus.SendToCore(eventbus.AnswerEvent{Text: "hi", QuestionID: "q"}))

	for i := 0; i < 5; i++ {
		nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
			_, ok := ev.(eventbus.CommandDoneEvent)
			return ok
		})
	}
	assert.Equal(t, []protocol.Command{
		protocol.Approve{ID: "t1", Overrides: map[string]any{"k": "v"}},
		protocol.Deny{ID: "t2"},
		protocol.BatchApprove{},
		protocol.BatchDeny{},
		protocol.UserAnswer{Text: "hi", QuestionID: "q"},
	}, sub.commands())
}

func TestSyncService_ReportsCommandErrors(t *testing.T) {
	boom := errors.New("boom")
	_, bus := startService(t, &recordingSubmitter{result: boom})

	require.NoError(t, bus.SendToCore(eventbus.DenyEvent{ID: "t1"}))
	ev := nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		_, ok := ev.(eventbus.CommandErrorEvent)
		return ok
	}).(eventbus.CommandErrorEvent)
	assert.Equal(t, "deny", ev.Op)
	assert.ErrorIs(t, ev.Err, boom)
}

func TestSyncService_ReportsRejectedCommands(t *testing.T) {
	rejected := errors.New("nothing selected")
	_, bus := startService(t, &recordingSubmitter{reject: rejected})

	require.NoError(t, bus.SendToCore(eventbus.BatchApproveEvent{}))
	ev := nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		_, ok := ev.(eventbus.CommandErrorEvent)
		return ok
	}).(eventbus.CommandErrorEvent)
	assert.Equal(t, "approve-batch", ev.Op)
	assert.ErrorIs(t, ev.Err, rejected)
}

func TestSyncService_UICatchesUpAfterBurst(t *testing.T) {
	store, bus := startService(t, &recordingSubmitter{})

	for i := 0; i < 150; i++ {
		store.Apply(protocol.NewToolRequest{Record: models.ToolCallRecord{ID: fmt.Sprintf("t%d", i)}})
	}
	ev := nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		u, ok := ev.(eventbus.StateUpdateEvent)
		return ok && u.Snapshot.Version == store.Version()
	}).(eventbus.StateUpdateEvent)
	assert.Len(t, ev.Snapshot.Pending, 150)

	store.Apply(protocol.ToolDenied{ID: "t0"})
	nextEvent(t, bus, func(ev eventbus.CoreEvent) bool {
		u, ok := ev.(eventbus.StateUpdateEvent)
		return ok && u.Snapshot.Version == store.Version() && len(u.Snapshot.Pending) == 149
	})

	assert.Equal(t, eventbus.CircuitClosed, bus.UIBreakerState())
	require.NoError(t, bus.SendToCore(eventbus.ToggleSelectionEvent{ID: "t1"}))
}
