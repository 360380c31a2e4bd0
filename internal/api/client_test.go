package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/approvaltest"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

func newTestClient(t *testing.T) (*Client, *approvaltest.Server) {
	t.Helper()
	srv := approvaltest.NewServer()
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second, zap.NewNop()), srv
}

func TestClient_FetchToolCalls(t *testing.T) {
	c, srv := newTestClient(t)
	rec := srv.Propose("delete_file", map[string]any{"path": "/tmp"}, models.RendererFileSystem)

	st, err := c.FetchToolCalls(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Pending, 1)
	assert.Equal(t, rec.ID, st.Pending[0].ID)
	assert.Equal(t, models.RendererFileSystem, st.Pending[0].Renderer)
	require.Len(t, st.Log, 1)
}

func TestClient_FetchChatHistory(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddHistory(models.ChatMessage{Author: models.Server, Text: "hello"})

	msgs, err := c.FetchChatHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{{Author: models.Server, Text: "hello"}}, msgs)
}

func TestClient_DoApproveSendsModifications(t *testing.T) {
	c, srv := newTestClient(t)
	rec := srv.Propose("send_email", map[string]any{"to": "a@b"}, models.RendererEditable)

	err := c.Do(context.Background(), protocol.Approve{ID: rec.ID, Overrides: map[string]any{"to": "c@d"}})
	require.NoError(t, err)

	calls := srv.Approvals()
	require.Len(t, calls, 1)
	assert.Equal(t, rec.ID, calls[0].ID)
	assert.Equal(t, map[string]any{"to": "c@d"}, calls[0].Modifications)
}

func TestClient_DoReportsHTTPFailure(t *testing.T) {
	c, srv := newTestClient(t)
	srv.FailCommands(http.StatusInternalServerError)

	err := c.Do(context.Background(), protocol.Deny{ID: "t1"})
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "deny", te.Op)
}

func TestClient_UnknownIDIsAFailure(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Do(context.Background(), protocol.Deny{ID: "ghost"})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
}

func TestClient_NetworkError(t *testing.T) {
	srv := approvaltest.NewServer()
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil)
	err := c.Do(context.Background(), protocol.BatchApprove{IDs: []string{"a"}})

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.Equal(t, "approve-batch", te.Op)
}

func TestClient_RejectsDuplexCommand(t *testing.T) {
	c, _ := newTestClient(t)
	err := c.Do(context.Background(), protocol.UserAnswer{Text: "hi"})
	require.Error(t, err)
	var te *TransportError
	assert.False(t, errors.As(err, &te))
}
