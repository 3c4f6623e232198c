// Package debug provides an agent for exercising a bot against the router by
// hand. It answers with canned phrases and understands a few commands that
// describe or clean up the chats the world is tracking:
//
//	$desc     totals of registered and finished chats and the current chat
//	$end      end the conversation
//	$ls       list every chat with its status
//	$cleanup  remove the finished chats
//	$chat     the id of the current chat
package debug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/casualjim/convai/agent"
	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/fogfish/opts"
	"github.com/k0kubun/pp/v3"
)

const (
	CmdDesc    = "$desc"
	CmdEnd     = "$end"
	CmdList    = "$ls"
	CmdCleanup = "$cleanup"
	CmdChat    = "$chat"

	initialText  = "Nothing to say yet!"
	botIDPrefix  = 7
	noChatMarker = "None"
)

// Replies are the canned answers. They are sent prefixed with the first
// characters of the bot id.
var Replies = []string{
	"I love you!",
	"Wow!",
	"Really?",
	"Nice!",
	"Hi",
	"Hello",
	"This is not very interesting. Let's change the subject of the conversation. For example, let's talk about cats. What do you think?",
	api.EndToken,
}

var _ api.Agent = (*Agent)(nil)

type Agent struct {
	id        string
	botID     string
	chat      api.ChatID
	inspector api.Inspector
	pick      func(n int) int

	text        string
	episodeDone bool
	printer     *pp.PrettyPrinter
	log         *slog.Logger
}

var (
	BotID     = opts.ForName[Agent, string]("botID")
	Chat      = opts.ForName[Agent, api.ChatID]("chat")
	Inspector = opts.ForName[Agent, api.Inspector]("inspector")
	// Pick chooses the index of the canned reply. It defaults to a uniform
	// random pick.
	Pick = opts.ForName[Agent, func(n int) int]("pick")
)

func New(options ...opts.Option[Agent]) (*Agent, error) {
	a := &Agent{
		pick: rand.IntN,
		text: initialText,
	}
	if err := opts.Apply(a, options); err != nil {
		return nil, err
	}
	if a.botID == "" {
		return nil, errors.New("debug agent: bot id is required")
	}
	if a.inspector == nil {
		return nil, errors.New("debug agent: inspector is required")
	}

	a.id = "DebugAgent#" + a.chat.String()
	a.printer = pp.New()
	a.printer.SetColoringEnabled(false)
	a.log = slog.Default().With(slogx.LoggerName("convai.debug"), slogx.Chat(a.chat))
	return a, nil
}

// Builder creates debug agents for the bot described by env.
func Builder(env agent.Env) (api.Factory, error) {
	if env.Inspector == nil {
		return nil, errors.New("debug agent: inspector is required")
	}
	return func(_ context.Context, chat api.ChatID) (api.Agent, error) {
		return New(BotID(env.BotID), Chat(chat), Inspector(env.Inspector))
	}, nil
}

func (a *Agent) ID() string {
	return a.id
}

func (a *Agent) Observe(ctx context.Context, msg api.Message) error {
	a.log.DebugContext(ctx, "observed", slog.String("message", a.printer.Sprint(msg)))

	a.episodeDone = msg.EpisodeDone
	if a.episodeDone {
		a.text = api.EndToken
		return nil
	}

	switch strings.TrimSpace(msg.Text) {
	case CmdDesc:
		a.text = fmt.Sprintf("Total chats: %d\nFinished chats: %d\nCurrent chat: %s",
			len(a.inspector.Chats()), a.inspector.FinishedCount(), a.currentChat())
	case CmdEnd:
		a.text = api.EndToken
		a.episodeDone = true
	case CmdList:
		a.text = formatStatuses(a.inspector.Chats())
	case CmdCleanup:
		removed := a.inspector.CleanupFinished(ctx)
		a.text = formatIDs(removed)
	case CmdChat:
		a.text = "Current chat id is " + a.currentChat()
	default:
		a.text = a.cannedReply()
	}
	return nil
}

func (a *Agent) Act(context.Context) (api.Message, error) {
	return api.Message{ID: a.id, Text: a.text, EpisodeDone: a.episodeDone}, nil
}

func (a *Agent) cannedReply() string {
	prefix := a.botID
	if len(prefix) > botIDPrefix {
		prefix = prefix[:botIDPrefix]
	}
	return prefix + " : " + Replies[a.pick(len(Replies))]
}

func (a *Agent) currentChat() string {
	chat, ok := a.inspector.CurrentChat()
	if !ok {
		return noChatMarker
	}
	return chat.String()
}

func formatStatuses(statuses []api.ChatStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, s.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatIDs(ids []api.ChatID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
