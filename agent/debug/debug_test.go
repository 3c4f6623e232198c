package debug

import (
	"context"
	"testing"

	"github.com/casualjim/convai/agent"
	"github.com/casualjim/convai/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	chats    []api.ChatStatus
	current  api.ChatID
	active   bool
	cleaned  []api.ChatID
	cleanups int
}

func (f *fakeInspector) Chats() []api.ChatStatus { return f.chats }

func (f *fakeInspector) FinishedCount() int {
	var n int
	for _, c := range f.chats {
		if c.Finished {
			n++
		}
	}
	return n
}

func (f *fakeInspector) CurrentChat() (api.ChatID, bool) { return f.current, f.active }

func (f *fakeInspector) CleanupFinished(context.Context) []api.ChatID {
	f.cleanups++
	return f.cleaned
}

func newAgent(t *testing.T, inspector api.Inspector, pick int) *Agent {
	t.Helper()
	a, err := New(
		BotID("0A36119D-E6C0-4022-962F-5B5BDF21FD97"),
		Chat(12),
		Inspector(inspector),
		Pick(func(int) int { return pick }),
	)
	require.NoError(t, err)
	return a
}

func observe(t *testing.T, a *Agent, msg api.Message) api.Message {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, a.Observe(ctx, msg))
	reply, err := a.Act(ctx)
	require.NoError(t, err)
	return reply
}

func TestNew(t *testing.T) {
	_, err := New(Inspector(&fakeInspector{}))
	require.Error(t, err)

	_, err = New(BotID("bot"))
	require.Error(t, err)

	a, err := New(BotID("bot"), Chat(4), Inspector(&fakeInspector{}))
	require.NoError(t, err)
	assert.Equal(t, "DebugAgent#4", a.ID())

	reply, err := a.Act(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nothing to say yet!", reply.Text)
}

func TestAgent_CannedReplies(t *testing.T) {
	for i, text := range Replies {
		a := newAgent(t, &fakeInspector{}, i)
		reply := observe(t, a, api.Message{Text: "hello"})
		assert.Equal(t, "0A36119 : "+text, reply.Text)
		assert.False(t, reply.EpisodeDone)
		assert.Equal(t, "DebugAgent#12", reply.ID)
	}

	short, err := New(BotID("bot"), Inspector(&fakeInspector{}), Pick(func(int) int { return 1 }))
	require.NoError(t, err)
	assert.Equal(t, "bot : Wow!", observe(t, short, api.Message{Text: "hi"}).Text)
}

func TestAgent_EpisodeDone(t *testing.T) {
	a := newAgent(t, &fakeInspector{}, 0)
	reply := observe(t, a, api.Message{Text: api.EndToken, EpisodeDone: true})
	assert.Equal(t, api.Message{ID: "DebugAgent#12", Text: api.EndToken, EpisodeDone: true}, reply)
}

func TestAgent_Commands(t *testing.T) {
	inspector := &fakeInspector{
		chats:   []api.ChatStatus{{ID: 3}, {ID: 12, Finished: true}, {ID: 15}},
		current: 12,
		active:  true,
		cleaned: []api.ChatID{12},
	}

	tests := []struct {
		name string
		text string
		want api.Message
	}{
		{
			name: "desc",
			text: CmdDesc,
			want: api.Message{ID: "DebugAgent#12", Text: "Total chats: 3\nFinished chats: 1\nCurrent chat: 12"},
		},
		{
			name: "ls",
			text: CmdList,
			want: api.Message{ID: "DebugAgent#12", Text: "[3: Active, 12: Finished, 15: Active]"},
		},
		{
			name: "chat",
			text: CmdChat,
			want: api.Message{ID: "DebugAgent#12", Text: "Current chat id is 12"},
		},
		{
			name: "cleanup",
			text: CmdCleanup,
			want: api.Message{ID: "DebugAgent#12", Text: "[12]"},
		},
		{
			name: "end",
			text: CmdEnd,
			want: api.Message{ID: "DebugAgent#12", Text: api.EndToken, EpisodeDone: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(t, inspector, 0)
			assert.Equal(t, tt.want, observe(t, a, api.Message{Text: tt.text}))
		})
	}
	assert.Equal(t, 1, inspector.cleanups)
}

func TestAgent_NoCurrentChat(t *testing.T) {
	a := newAgent(t, &fakeInspector{}, 0)
	assert.Equal(t, "Current chat id is None", observe(t, a, api.Message{Text: CmdChat}).Text)
	assert.Equal(t, "[]", observe(t, a, api.Message{Text: CmdList}).Text)
}

func TestBuilder(t *testing.T) {
	_, err := Builder(agent.Env{BotID: "bot"})
	require.Error(t, err)

	factory, err := Builder(agent.Env{BotID: "bot", Inspector: &fakeInspector{}})
	require.NoError(t, err)
	a, err := factory(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "DebugAgent#8", a.ID())
}
