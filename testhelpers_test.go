package convai

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/evaluation"
	"github.com/casualjim/convai/events"
	"github.com/casualjim/convai/router"
	"github.com/fogfish/opts"
)

var testEvaluation = api.Evaluation{Quality: 8, Breadth: 6, Engagement: 7}

// fakeRouter serves one batch of updates per GetUpdates call and records every
// reply sent to it.
type fakeRouter struct {
	batches   [][]router.Update
	getErr    error
	sendErr   error
	sent      []router.Reply
	sendCalls int
}

func (f *fakeRouter) GetUpdates(context.Context) ([]router.Update, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeRouter) SendMessage(_ context.Context, reply router.Reply) error {
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, reply)
	return nil
}

func (f *fakeRouter) push(updates ...router.Update) {
	f.batches = append(f.batches, updates)
}

func update(chat api.ChatID, text string) router.Update {
	return router.Update{ChatID: chat, Text: text}
}

// scriptedAgent records what it observes and replies with reply(observations).
type scriptedAgent struct {
	id          string
	chat        api.ChatID
	observed    []api.Message
	acts        int
	reply       func(a *scriptedAgent) api.Message
	observeErr  error
	onObserve   func(api.Message)
	actErr      error
	shutdowns   int
	shutdownErr error
}

func (a *scriptedAgent) ID() string { return a.id }

func (a *scriptedAgent) Observe(_ context.Context, msg api.Message) error {
	if a.observeErr != nil {
		return a.observeErr
	}
	a.observed = append(a.observed, msg)
	if a.onObserve != nil {
		a.onObserve(msg)
	}
	return nil
}

func (a *scriptedAgent) Act(context.Context) (api.Message, error) {
	a.acts++
	if a.actErr != nil {
		return api.Message{}, a.actErr
	}
	if a.reply != nil {
		return a.reply(a), nil
	}
	last := a.observed[len(a.observed)-1]
	if last.EpisodeDone {
		return api.Message{ID: a.id, Text: api.EndToken, EpisodeDone: true}, nil
	}
	return api.Message{ID: a.id, Text: "echo: " + last.Text}, nil
}

func (a *scriptedAgent) Shutdown(context.Context) error {
	a.shutdowns++
	return a.shutdownErr
}

// agentFactory hands out scripted agents and remembers them per chat.
type agentFactory struct {
	created []*scriptedAgent
	byChat  map[api.ChatID]*scriptedAgent
	err     error
	setup   func(*scriptedAgent)
}

func newAgentFactory() *agentFactory {
	return &agentFactory{byChat: make(map[api.ChatID]*scriptedAgent)}
}

func (f *agentFactory) New(_ context.Context, chat api.ChatID) (api.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := &scriptedAgent{id: "scripted#" + chat.String(), chat: chat}
	if f.setup != nil {
		f.setup(a)
	}
	f.created = append(f.created, a)
	f.byChat[chat] = a
	return a, nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, events.TypeOf(e))
	}
	return types
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestWorld(r Router, f *agentFactory, options ...opts.Option[World]) (*World, *sleepRecorder) {
	options = append([]opts.Option[World]{
		BotID("test-bot"),
		WithEvaluator(evaluation.Fixed(testEvaluation)),
	}, options...)
	w := New(r, f.New, options...)
	rec := &sleepRecorder{}
	w.sleep = rec.sleep
	return w, rec
}

var errBoom = errors.New("boom")
