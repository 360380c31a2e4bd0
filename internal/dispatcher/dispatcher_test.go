package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/api"
	"github.com/Rorical/RoriGate/internal/approvaltest"
	"github.com/Rorical/RoriGate/internal/core"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"))
}

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.UserAnswer
	err  error
}

func (f *fakeSender) Send(_ context.Context, a protocol.UserAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

type fixture struct {
	srv    *approvaltest.Server
	store  *core.Store
	sender *fakeSender
	d      *Dispatcher
	ids    []string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := approvaltest.NewServer()
	store := core.NewStore()

	var recs []models.ToolCallRecord
	for _, id := range []string{"a", "b", "c"} {
		rec := models.ToolCallRecord{ID: id, ToolName: "write_file", NamedArgs: map[string]any{"path": id + ".txt"}}
		srv.AddPendingQuietly(rec)
		rec.Status = models.Pending
		recs = append(recs, rec)
	}
	store.Apply(protocol.InitialState{Pending: recs, Log: recs})

	sender := &fakeSender{}
	d := New(api.NewClient(srv.URL, time.Second, zap.NewNop()), sender, store, zap.NewNop())
	t.Cleanup(func() {
		d.Stop()
		srv.Close()
	})
	return &fixture{srv: srv, store: store, sender: sender, d: d, ids: []string{"a", "b", "c"}}
}

func TestDispatcher_ApproveSendsOverlaySnapshot(t *testing.T) {
	f := setup(t)

	overlay := models.NewOverlay("a")
	overlay.Set("path", "edited.txt")
	overrides := overlay.Snapshot()

	done := make(chan error, 1)
	require.NoError(t, f.d.Submit(protocol.Approve{ID: "a", Overrides: overrides}, func(err error) { done <- err }))
	overlay.Set("path", "later.txt")
	overrides["path"] = "mutated.txt"

	require.NoError(t, <-done)
	approvals := f.srv.Approvals()
	require.Len(t, approvals, 1)
	assert.Equal(t, "a", approvals[0].ID)
	assert.Equal(t, map[string]any{"path": "edited.txt"}, approvals[0].Modifications)
}

func TestDispatcher_ApproveWithoutEditsSendsEmptyModifications(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.d.Approve(context.Background(), "b", nil))
	approvals := f.srv.Approvals()
	require.Len(t, approvals, 1)
	assert.Empty(t, approvals[0].Modifications)
}

func TestDispatcher_DenyHitsDenyEndpoint(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.d.Deny(context.Background(), "c"))
	assert.Equal(t, []string{"c"}, f.srv.Denials())
}

func TestDispatcher_BatchTakesSelectionInQueueOrder(t *testing.T) {
	f := setup(t)
	f.store.Toggle("c")
	f.store.Toggle("a")

	require.NoError(t, f.d.BatchApprove(context.Background()))

	assert.Empty(t, f.store.Snapshot().Selection)
	batches := f.srv.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "c"}, batches[0].IDs)
}

func TestDispatcher_SubmitClearsSelectionBeforeResponse(t *testing.T) {
	f := setup(t)
	f.srv.HoldConfirmations(true)
	f.store.Toggle("b")

	done := make(chan error, 1)
	require.NoError(t, f.d.Submit(protocol.BatchDeny{}, func(err error) { done <- err }))
	assert.Empty(t, f.store.Snapshot().Selection)
	require.NoError(t, <-done)
}

func TestDispatcher_ExplicitBatchClearsSelection(t *testing.T) {
	f := setup(t)
	f.store.Toggle("a")

	require.NoError(t, f.d.BatchDeny(context.Background(), "b"))
	assert.Empty(t, f.store.Snapshot().Selection)
	assert.Equal(t, []string{"b"}, f.srv.Batches()[0].IDs)
}

func TestDispatcher_EmptySelection(t *testing.T) {
	f := setup(t)

	err := f.d.Submit(protocol.BatchApprove{}, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Empty(t, f.srv.Batches())
}

func TestDispatcher_ServerErrorLeavesQueueUntouched(t *testing.T) {
	f := setup(t)
	f.srv.FailCommands(http.StatusInternalServerError)
	before := f.store.Snapshot()

	err := f.d.Approve(context.Background(), "a", nil)

	var te *api.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	after := f.store.Snapshot()
	assert.Equal(t, before.Pending, after.Pending)
	assert.Equal(t, before.Version, after.Version)
}

func TestDispatcher_AnswerIsOptimistic(t *testing.T) {
	f := setup(t)
	f.store.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "q1", Text: "Proceed?"}})

	require.NoError(t, f.d.Answer(context.Background(), "yes", "q1"))

	snap := f.store.Snapshot()
	assert.Nil(t, snap.Question)
	require.NotEmpty(t, snap.Chat)
	assert.Equal(t, models.ChatMessage{Author: models.User, Text: "yes"}, snap.Chat[len(snap.Chat)-1])
	assert.Equal(t, []protocol.UserAnswer{{Text: "yes", QuestionID: "q1"}}, f.sender.sent)
}

func TestDispatcher_FailedAnswerKeepsOptimisticState(t *testing.T) {
	f := setup(t)
	f.sender.err = errors.New("not connected")
	f.store.Apply(protocol.NewQuestion{Question: models.PendingQuestion{ID: "q1", Text: "Proceed?"}})

	err := f.d.Answer(context.Background(), "yes", "q1")
	require.Error(t, err)

	snap := f.store.Snapshot()
	assert.Nil(t, snap.Question)
	assert.Equal(t, "yes", snap.Chat[len(snap.Chat)-1].Text)
}

func TestDispatcher_EmptyAnswerRejected(t *testing.T) {
	f := setup(t)
	v := f.store.Version()

	assert.ErrorIs(t, f.d.Answer(context.Background(), "   ", ""), ErrEmptyAnswer)
	assert.Equal(t, v, f.store.Version())
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	f := setup(t)
	f.d.Stop()

	assert.ErrorIs(t, f.d.Submit(protocol.Deny{ID: "a"}, nil), ErrStopped)
}

type stubTransport struct{}

func (stubTransport) Do(ctx context.Context, _ protocol.Command) error {
	return ctx.Err()
}

func TestDispatcher_SubmitRacingStop(t *testing.T) {
	for round := 0; round < 50; round++ {
		d := New(stubTransport{}, nil, core.NewStore(), nil)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			stopped bool
			late    int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					err := d.Submit(protocol.Deny{ID: "a"}, func(error) {
						mu.Lock()
						defer mu.Unlock()
						if stopped {
							late++
						}
					})
					if err != nil {
						assert.ErrorIs(t, err, ErrStopped)
					}
				}
			}()
		}
		d.Stop()
		mu.Lock()
		stopped = true
		mu.Unlock()
		wg.Wait()

		assert.Zero(t, late)
	}
}
