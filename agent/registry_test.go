package agent

import (
	"context"
	"testing"

	"github.com/casualjim/convai/api"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	echo := func(Env) (api.Factory, error) {
		return func(context.Context, api.ChatID) (api.Agent, error) { return nil, nil }, nil
	}
	Add("test-echo", echo)
	t.Cleanup(func() { Del("test-echo") })

	b, ok := Get("test-echo")
	require.True(t, ok)
	assert.NotNil(t, b)
	assert.Contains(t, Names(), "test-echo")

	_, err := Factory("missing", Env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown agent "missing"`)
}

func TestChatBuilder(t *testing.T) {
	t.Run("builds agents per chat", func(t *testing.T) {
		factory, err := ChatBuilder(Env{
			BotID:        "bot",
			Model:        "test-model",
			Instructions: "bot {{.BotID}} chat {{.Chat}}",
			OpenAI:       []option.RequestOption{option.WithAPIKey("k")},
		})
		require.NoError(t, err)

		a, err := factory(context.Background(), 9)
		require.NoError(t, err)
		chat := a.(*chatAgent)
		assert.Equal(t, "ChatAgent#9", chat.ID())
		assert.Equal(t, "test-model", chat.model)
		assert.Equal(t, "bot bot chat 9", chat.system)

		b, err := factory(context.Background(), 10)
		require.NoError(t, err)
		assert.Same(t, chat.client, b.(*chatAgent).client)
	})

	t.Run("rejects broken instructions up front", func(t *testing.T) {
		_, err := ChatBuilder(Env{Instructions: "{{.Nope}}", OpenAI: []option.RequestOption{option.WithAPIKey("k")}})
		require.Error(t, err)
	})
}
