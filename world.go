package convai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/evaluation"
	"github.com/casualjim/convai/events"
	"github.com/casualjim/convai/pkg/ctxx"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/casualjim/convai/router"
	"github.com/fogfish/opts"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// DefaultPullDelay is the pause between two rounds.
	DefaultPullDelay = 5 * time.Second
	// MinPullDelay is the shortest pause allowed between two rounds.
	MinPullDelay = time.Second
	// Unbounded disables the capacity limit.
	Unbounded = -1
)

var _ api.Inspector = (*World)(nil)

// Router is the remote service that brokers messages with human users.
type Router interface {
	GetUpdates(context.Context) ([]router.Update, error)
	SendMessage(context.Context, router.Reply) error
}

// Publisher receives the lifecycle events of a world.
type Publisher interface {
	Publish(context.Context, events.Event) error
}

// Turn is one message exchanged during a round: an observation handed to an
// agent or a reply produced by it.
type Turn struct {
	Chat     api.ChatID
	Message  api.Message
	Outbound bool
}

// World relays conversations between the router and per-chat agents. It is
// driven by a single goroutine; none of its methods are safe for concurrent use.
type World struct {
	botID     string
	capacity  int
	pullDelay time.Duration
	idleDelay time.Duration
	evaluator evaluation.Evaluator
	publisher Publisher
	onRound   func(context.Context, []Turn)

	router  Router
	chats   *Chats
	turns   []Turn
	touched *orderedmap.OrderedMap[api.ChatID, api.Agent]
	current api.ChatID
	active  bool
	log     *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// New creates a world that fetches messages from r and creates agents for new
// chats with factory.
func New(r Router, factory api.Factory, options ...opts.Option[World]) *World {
	if r == nil {
		panic("convai: router is required")
	}
	if factory == nil {
		panic("convai: agent factory is required")
	}

	w := &World{
		capacity:  Unbounded,
		pullDelay: DefaultPullDelay,
		router:    r,
		chats:     NewChats(factory),
		sleep:     ctxx.Sleep,
	}
	if err := opts.Apply(w, options); err != nil {
		panic(err)
	}
	if w.pullDelay < MinPullDelay {
		w.pullDelay = MinPullDelay
	}
	if w.idleDelay < 0 {
		w.idleDelay = 0
	}
	if w.evaluator == nil {
		w.evaluator = evaluation.Console(os.Stdin, os.Stdout)
	}
	w.log = slog.Default().With(slogx.LoggerName("convai.world"), slog.String("bot", w.botID))
	return w
}

// Run plays rounds until ctx is done. A failed round is logged and the next
// one starts after the pull delay.
func (w *World) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.Parley(ctx)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		w.log.ErrorContext(ctx, "round failed", slogx.Error(err))
		w.publish(ctx, events.Error{Envelope: events.NewEnvelope(w.botID, w.current), Err: err})
		if err := w.sleep(ctx, w.pullDelay); err != nil {
			return err
		}
	}
}

// Parley plays one round: it fetches pending messages, routes them to their
// agents, sends the agents' replies and then sleeps for the pull delay.
//
// The first failure ends the round and is returned. Finished chats touched in
// the round are removed from the registry either way.
func (w *World) Parley(ctx context.Context) error {
	received, err := w.round(ctx)
	if err != nil {
		return err
	}

	if w.onRound != nil {
		w.onRound(ctx, w.turns)
	}

	delay := w.pullDelay
	if received == 0 {
		delay += w.idleDelay
	}
	w.log.DebugContext(ctx, "sleeping before the next round", slog.Duration("delay", delay))
	return w.sleep(ctx, delay)
}

func (w *World) round(ctx context.Context) (int, error) {
	w.turns = nil
	updates, err := w.router.GetUpdates(ctx)
	if err != nil {
		return 0, fmt.Errorf("get updates: %w", err)
	}
	w.log.DebugContext(ctx, "starting round", slog.Int("updates", len(updates)))

	touched := orderedmap.New[api.ChatID, api.Agent]()
	w.touched = touched
	defer func() {
		w.clearCurrent()
		w.touched = nil
		w.cleanupTouched(context.WithoutCancel(ctx), touched)
	}()

	for _, upd := range updates {
		if err := w.route(ctx, upd, touched); err != nil {
			return len(updates), err
		}
	}

	for pair := touched.Oldest(); pair != nil; pair = pair.Next() {
		if err := w.respond(ctx, pair.Key, pair.Value); err != nil {
			return len(updates), err
		}
	}
	return len(updates), nil
}

func (w *World) route(ctx context.Context, upd router.Update, touched *orderedmap.OrderedMap[api.ChatID, api.Agent]) error {
	chat, text := upd.ChatID, upd.Text
	var agent api.Agent
	var episodeDone bool

	switch {
	case api.IsStart(text):
		w.log.DebugContext(ctx, "message recognized as start of a new conversation", slogx.Chat(chat))
		if !w.hasCapacity(chat) {
			w.log.WarnContext(ctx, "can't start a new conversation, bot capacity reached", slogx.Chat(chat), slog.Int("capacity", w.capacity))
			w.publish(ctx, events.ChatRejected{Envelope: events.NewEnvelope(w.botID, chat), Capacity: w.capacity})
			return nil
		}
		created, replaced, err := w.chats.Init(ctx, chat)
		if err != nil {
			return err
		}
		agent = created
		text = api.StripStart(text)
		w.log.InfoContext(ctx, "new chat created", slogx.Chat(chat), slog.String("agent", agent.ID()))
		w.publish(ctx, events.ChatStarted{
			Envelope: events.NewEnvelope(w.botID, chat),
			AgentID:  agent.ID(),
			Payload:  text,
			Replaced: replaced,
		})

	case api.IsEnd(text):
		existing, ok := w.chats.Get(chat)
		if !ok {
			w.drop(ctx, upd, "end of an unknown conversation")
			return nil
		}
		w.log.DebugContext(ctx, "message recognized as end of conversation", slogx.Chat(chat))
		w.chats.MarkFinished(chat)
		agent = existing
		episodeDone = true

	default:
		existing, ok := w.chats.Get(chat)
		if !ok {
			w.drop(ctx, upd, "not part of any chat")
			return nil
		}
		agent = existing
	}

	msg := api.Message{
		ID:          "RouterBot#" + chat.String(),
		Text:        text,
		EpisodeDone: episodeDone,
	}
	w.setCurrent(chat)
	if err := agent.Observe(ctx, msg); err != nil {
		return fmt.Errorf("chat %s: observe: %w", chat, err)
	}
	w.turns = append(w.turns, Turn{Chat: chat, Message: msg})
	w.publish(ctx, events.MessageObserved{Envelope: events.NewEnvelope(w.botID, chat), Message: msg})
	touched.Set(chat, agent)
	return nil
}

func (w *World) respond(ctx context.Context, chat api.ChatID, agent api.Agent) error {
	w.setCurrent(chat)
	reply, err := agent.Act(ctx)
	if err != nil {
		return fmt.Errorf("chat %s: act: %w", chat, err)
	}
	if reply.ID == "" {
		reply.ID = agent.ID()
	}
	w.turns = append(w.turns, Turn{Chat: chat, Message: reply, Outbound: true})

	if err := w.send(ctx, chat, reply); err != nil {
		return err
	}
	if api.IsEnd(reply.Text) || reply.EpisodeDone {
		w.chats.MarkFinished(chat)
	}
	return nil
}

func (w *World) send(ctx context.Context, chat api.ChatID, reply api.Message) error {
	if reply.Text == "" {
		w.log.DebugContext(ctx, "agent has nothing to say", slogx.Chat(chat), slog.String("agent", reply.ID))
		return nil
	}

	out := router.Reply{ChatID: chat, Text: reply.Text}
	if reply.Text == api.EndToken {
		ev, err := w.evaluator.Evaluate(ctx, chat)
		if err != nil {
			return fmt.Errorf("chat %s: evaluate: %w", chat, err)
		}
		out.Evaluation = &ev
	}

	if err := w.router.SendMessage(ctx, out); err != nil {
		return fmt.Errorf("chat %s: send message: %w", chat, err)
	}
	w.publish(ctx, events.ReplySent{
		Envelope:   events.NewEnvelope(w.botID, chat),
		Message:    reply,
		Evaluation: out.Evaluation,
	})
	return nil
}

func (w *World) drop(ctx context.Context, upd router.Update, reason string) {
	w.log.InfoContext(ctx, "message skipped", slogx.Chat(upd.ChatID), slog.String("reason", reason))
	w.publish(ctx, events.MessageDropped{
		Envelope: events.NewEnvelope(w.botID, upd.ChatID),
		Text:     upd.Text,
		Reason:   reason,
	})
}

func (w *World) hasCapacity(chat api.ChatID) bool {
	if w.capacity < 0 {
		return true
	}
	if _, ok := w.chats.Get(chat); ok {
		return true
	}
	return w.chats.Len() < w.capacity
}

func (w *World) cleanupTouched(ctx context.Context, touched *orderedmap.OrderedMap[api.ChatID, api.Agent]) {
	for pair := touched.Oldest(); pair != nil; pair = pair.Next() {
		if w.chats.IsFinished(pair.Key) {
			w.cleanup(ctx, pair.Key)
		}
	}
}

func (w *World) cleanup(ctx context.Context, chat api.ChatID) bool {
	agent, ok := w.chats.Cleanup(ctx, chat)
	if !ok {
		return false
	}
	w.log.InfoContext(ctx, "chat ended and its agent removed", slogx.Chat(chat), slog.String("agent", agent.ID()))
	w.publish(ctx, events.ChatFinished{Envelope: events.NewEnvelope(w.botID, chat), AgentID: agent.ID()})
	return true
}

func (w *World) publish(ctx context.Context, event events.Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		w.log.WarnContext(ctx, "failed to publish event", slog.String("type", events.TypeOf(event)), slogx.Error(err))
	}
}

func (w *World) setCurrent(chat api.ChatID) {
	w.current = chat
	w.active = true
}

func (w *World) clearCurrent() {
	w.active = false
}

// BotID returns the id of the bot this world answers for.
func (w *World) BotID() string {
	return w.botID
}

// Len returns the number of registered chats.
func (w *World) Len() int {
	return w.chats.Len()
}

// Agents iterates the registered chats and their agents.
func (w *World) Agents() iter.Seq2[api.ChatID, api.Agent] {
	return w.chats.All()
}

// Turns returns the messages exchanged during the last round.
func (w *World) Turns() []Turn {
	return w.turns
}

func (w *World) Chats() []api.ChatStatus {
	return w.chats.Statuses()
}

func (w *World) FinishedCount() int {
	return w.chats.FinishedCount()
}

func (w *World) CurrentChat() (api.ChatID, bool) {
	return w.current, w.active
}

// CleanupFinished removes every finished chat and returns their ids. Chats
// touched by a round in progress are left for that round to clean up once
// their replies are sent.
func (w *World) CleanupFinished(ctx context.Context) []api.ChatID {
	var removed []api.ChatID
	for _, chat := range w.chats.Finished() {
		if w.touched != nil {
			if _, inRound := w.touched.Get(chat); inRound {
				continue
			}
		}
		if w.cleanup(ctx, chat) {
			removed = append(removed, chat)
		}
	}
	return removed
}

// Shutdown shuts down the agents of every registered chat.
func (w *World) Shutdown(ctx context.Context) error {
	return w.chats.Shutdown(ctx)
}
