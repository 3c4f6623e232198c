package events

import (
	"errors"
	"testing"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testEnvelope() Envelope {
	return Envelope{
		EventID:   uuid.New(),
		BotID:     "bot-1",
		Chat:      42,
		Timestamp: strfmt.DateTime(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)),
	}
}

func assertEnvelope(t *testing.T, want, got Envelope) {
	t.Helper()
	assert.Equal(t, want.EventID, got.EventID)
	assert.Equal(t, want.BotID, got.BotID)
	assert.Equal(t, want.Chat, got.Chat)
	assert.True(t, time.Time(want.Timestamp).Equal(time.Time(got.Timestamp)))
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("bot", 7)
	assert.Equal(t, "bot", env.BotID)
	assert.Equal(t, api.ChatID(7), env.Chat)
	assert.NotEqual(t, uuid.Nil, env.EventID)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, env, ChatFinished{Envelope: env}.Meta())
}

func TestToJSON(t *testing.T) {
	env := testEnvelope()
	data, err := ToJSON(ReplySent{
		Envelope:   env,
		Message:    api.Message{ID: "agent", Text: "/end", EpisodeDone: true},
		Evaluation: &api.Evaluation{Quality: 1, Breadth: 2, Engagement: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, TypeReplySent, gjson.GetBytes(data, "type").String())
	assert.Equal(t, int64(42), gjson.GetBytes(data, "chat_id").Int())
	assert.Equal(t, "bot-1", gjson.GetBytes(data, "bot_id").String())
	assert.Equal(t, env.EventID.String(), gjson.GetBytes(data, "event_id").String())
	assert.Equal(t, "/end", gjson.GetBytes(data, "message.text").String())
	assert.True(t, gjson.GetBytes(data, "message.episode_done").Bool())
	assert.Equal(t, int64(3), gjson.GetBytes(data, "evaluation.engagement").Int())
}

func TestRoundTrip(t *testing.T) {
	env := testEnvelope()

	t.Run("chat started", func(t *testing.T) {
		data, err := ToJSON(ChatStarted{Envelope: env, AgentID: "a#1", Payload: "hello", Replaced: true})
		require.NoError(t, err)
		ev, err := FromJSON(data)
		require.NoError(t, err)

		got, ok := ev.(ChatStarted)
		require.True(t, ok)
		assertEnvelope(t, env, got.Envelope)
		assert.Equal(t, "a#1", got.AgentID)
		assert.Equal(t, "hello", got.Payload)
		assert.True(t, got.Replaced)
	})

	t.Run("chat rejected", func(t *testing.T) {
		data, err := ToJSON(ChatRejected{Envelope: env, Capacity: 3})
		require.NoError(t, err)
		ev, err := FromJSON(data)
		require.NoError(t, err)

		got, ok := ev.(ChatRejected)
		require.True(t, ok)
		assertEnvelope(t, env, got.Envelope)
		assert.Equal(t, 3, got.Capacity)
	})

	t.Run("message dropped", func(t *testing.T) {
		data, err := ToJSON(MessageDropped{Envelope: env, Text: "hi", Reason: "unknown chat"})
		require.NoError(t, err)
		ev, err := FromJSON(data)
		require.NoError(t, err)

		got, ok := ev.(MessageDropped)
		require.True(t, ok)
		assert.Equal(t, "hi", got.Text)
		assert.Equal(t, "unknown chat", got.Reason)
	})

	t.Run("message observed", func(t *testing.T) {
		msg := api.Message{ID: "RouterBot#42", Text: "hello"}
		data, err := ToJSON(MessageObserved{Envelope: env, Message: msg})
		require.NoError(t, err)
		ev, err := FromJSON(data)
		require.NoError(t, err)

		got, ok := ev.(MessageObserved)
		require.True(t, ok)
		assert.Equal(t, msg, got.Message)
	})

	t.Run("reply sent without evaluation", func(t *testing.T) {
		msg := api.Message{ID: "agent", Text: "hello"}
		data, err := ToJSON(ReplySent{Envelope: env, Message: msg})
		require.NoError(t, err)
		assert.False(t, gjson.GetBytes(data, "evaluation").Exists())

		ev, err := FromJSON(data)
		require.NoError(t, err)
		got, ok := ev.(ReplySent)
		require.True(t, ok)
		assert.Equal(t, msg, got.Message)
		assert.Nil(t, got.Evaluation)
	})

	t.Run("chat finished", func(t *testing.T) {
		data, err := ToJSON(ChatFinished{Envelope: env, AgentID: "a#1"})
		require.NoError(t, err)
		ev, err := FromJSON(data)
		require.NoError(t, err)

		got, ok := ev.(ChatFinished)
		require.True(t, ok)
		assert.Equal(t, "a#1", got.AgentID)
	})

	t.Run("error", func(t *testing.T) {
		data, err := ToJSON(Error{Envelope: env, Err: errors.New("router down")})
		require.NoError(t, err)
		assert.Equal(t, "router down", gjson.GetBytes(data, "error").String())

		ev, err := FromJSON(data)
		require.NoError(t, err)
		got, ok := ev.(Error)
		require.True(t, ok)
		assertEnvelope(t, env, got.Envelope)
		require.Error(t, got.Err)
		assert.Equal(t, "router down", got.Err.Error())
		assert.Contains(t, got.Error(), "chat_id=42")
	})
}

func TestFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing type", data: `{"chat_id":1}`},
		{name: "unknown type", data: `{"type":"nope"}`},
		{name: "error without message", data: `{"type":"error","chat_id":1}`},
		{name: "wrong field type", data: `{"type":"chat_rejected","capacity":"many"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.data))
			require.Error(t, err)
		})
	}
}
