// Package relay provides an agent that stands in for the router's human side.
// It polls the router itself and relays the first conversation it sees: the
// messages of that chat become the agent's actions and whatever it observes is
// sent back to the chat.
//
// Paired with a local agent in a convai.Dialog, it lets a single agent talk to
// the router without a World.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/evaluation"
	"github.com/casualjim/convai/pkg/ctxx"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/casualjim/convai/router"
	"github.com/fogfish/opts"
)

const DefaultPollInterval = 5 * time.Second

var _ api.Agent = (*Agent)(nil)

type Router interface {
	GetUpdates(context.Context) ([]router.Update, error)
	SendMessage(context.Context, router.Reply) error
}

type Agent struct {
	router       Router
	evaluator    evaluation.Evaluator
	pollInterval time.Duration

	chat    api.ChatID
	started bool
	closing bool
	pending []router.Update
	log     *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

var (
	// WithEvaluator sets how the conversation is rated when it ends.
	WithEvaluator = opts.ForName[Agent, evaluation.Evaluator]("evaluator")
	// PollInterval sets the pause between two polls that found nothing.
	PollInterval = opts.ForName[Agent, time.Duration]("pollInterval")
)

func New(r Router, options ...opts.Option[Agent]) (*Agent, error) {
	if r == nil {
		return nil, errors.New("relay agent: router is required")
	}
	a := &Agent{
		router:       r,
		pollInterval: DefaultPollInterval,
		sleep:        ctxx.Sleep,
	}
	if err := opts.Apply(a, options); err != nil {
		return nil, err
	}
	if a.evaluator == nil {
		return nil, errors.New("relay agent: evaluator is required")
	}
	if a.pollInterval <= 0 {
		a.pollInterval = DefaultPollInterval
	}
	a.log = slog.Default().With(slogx.LoggerName("convai.relay"))
	return a, nil
}

// ID names the agent after the chat it relays, once there is one.
func (a *Agent) ID() string {
	if !a.started {
		return "RelayAgent"
	}
	return "RelayAgent#" + a.chat.String()
}

// Chat returns the chat being relayed.
func (a *Agent) Chat() (api.ChatID, bool) {
	return a.chat, a.started
}

// Act waits for the next message of the relayed chat. Before a chat is
// relayed, the first start message adopts its chat.
func (a *Agent) Act(ctx context.Context) (api.Message, error) {
	for {
		if upd, ok := a.next(); ok {
			text := upd.Text
			if api.IsStart(text) {
				text = api.StripStart(text)
			}
			done := upd.Text == api.EndToken
			if done {
				a.closing = true
			}
			a.log.InfoContext(ctx, "accepted message", slogx.Chat(upd.ChatID), slog.String("text", upd.Text))
			return api.Message{ID: a.ID(), Text: text, EpisodeDone: done}, nil
		}

		updates, err := a.router.GetUpdates(ctx)
		if err != nil {
			return api.Message{}, err
		}
		a.accept(ctx, updates)
		if len(a.pending) > 0 {
			continue
		}
		if err := a.sleep(ctx, a.pollInterval); err != nil {
			return api.Message{}, err
		}
	}
}

// Observe sends the observed message to the relayed chat. An observation that
// ends the episode is sent as /end along with an evaluation. Once the episode
// is over, by either side, the agent lets go of the chat and waits for a new
// one.
func (a *Agent) Observe(ctx context.Context, msg api.Message) error {
	if !a.started {
		a.log.InfoContext(ctx, "dialog not started yet, ignoring observation", slog.String("text", msg.Text))
		return nil
	}

	reply := router.Reply{ChatID: a.chat, Text: msg.Text}
	end := api.IsEnd(msg.Text) || msg.EpisodeDone
	if end {
		ev, err := a.evaluator.Evaluate(ctx, a.chat)
		if err != nil {
			return err
		}
		reply.Text = api.EndToken
		reply.Evaluation = &ev
	}

	if err := a.router.SendMessage(ctx, reply); err != nil {
		return err
	}
	if end || a.closing {
		a.log.InfoContext(ctx, "episode finished", slogx.Chat(a.chat))
		a.reset()
	}
	return nil
}

func (a *Agent) accept(ctx context.Context, updates []router.Update) {
	for _, upd := range updates {
		if !a.started && api.IsStart(upd.Text) {
			a.chat = upd.ChatID
			a.started = true
		}
		switch {
		case a.started && upd.ChatID == a.chat:
			a.pending = append(a.pending, upd)
		case !a.started:
			a.log.InfoContext(ctx, "dialog not started yet, ignoring message", slogx.Chat(upd.ChatID), slog.String("text", upd.Text))
		default:
			a.log.InfoContext(ctx, "multiple dialogues are not allowed, ignoring message", slogx.Chat(upd.ChatID), slog.String("text", upd.Text))
		}
	}
}

func (a *Agent) next() (router.Update, bool) {
	if len(a.pending) == 0 {
		return router.Update{}, false
	}
	upd := a.pending[0]
	a.pending = a.pending[1:]
	return upd, true
}

func (a *Agent) reset() {
	a.chat = 0
	a.started = false
	a.closing = false
	a.pending = nil
}
