package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriGate/internal/models"
)

func TestEncodeUserAnswer(t *testing.T) {
	data, err := EncodeUserAnswer(UserAnswer{Text: "yes", QuestionID: "q1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_response","payload":{"text":"yes","question_id":"q1"}}`, string(data))

	data, err = EncodeUserAnswer(UserAnswer{Text: "just chatting"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"user_response","payload":{"text":"just chatting"}}`, string(data))

	a, err := DecodeUserAnswer(data)
	require.NoError(t, err)
	assert.Equal(t, UserAnswer{Text: "just chatting"}, a)
}

func TestApproveBodyCarriesModifications(t *testing.T) {
	data, err := json.Marshal(ApproveBody{Modifications: map[string]any{"path": "/var/tmp"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"modifications":{"path":"/var/tmp"}}`, string(data))
}

func TestEncodeEvent_DecodesBack(t *testing.T) {
	rec := models.ToolCallRecord{
		ID:        "t1",
		ToolName:  "launch_nukes",
		NamedArgs: map[string]any{"target_coordinates": "0,0"},
		Renderer:  models.RendererNukeLaunch,
		Status:    models.Pending,
	}
	data, err := EncodeEvent(NewToolRequest{Record: rec})
	require.NoError(t, err)

	ev, err := Decode(data)
	require.NoError(t, err)
	got := ev.(NewToolRequest).Record
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Renderer, got.Renderer)
	assert.Equal(t, rec.NamedArgs, got.NamedArgs)

	data, err = EncodeEvent(InitialState{Pending: []models.ToolCallRecord{rec}, Log: []models.ToolCallRecord{rec}})
	require.NoError(t, err)
	ev, err = Decode(data)
	require.NoError(t, err)
	assert.Len(t, ev.(InitialState).Pending, 1)

	_, err = EncodeEvent(Ignored{Type: "x"})
	assert.Error(t, err)
}
