package convai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/internal/registry"
	"github.com/casualjim/convai/pkg/slogx"
)

// Chats is the registry of conversations a world is handling: the agent bound
// to every chat id plus the set of chats marked finished.
type Chats struct {
	agents   registry.Registry[api.ChatID, api.Agent]
	finished registry.Registry[api.ChatID, struct{}]
	factory  api.Factory
}

func NewChats(factory api.Factory) *Chats {
	return &Chats{
		agents:   registry.New[api.ChatID, api.Agent](),
		finished: registry.New[api.ChatID, struct{}](),
		factory:  factory,
	}
}

// Init creates the agent for chat. An agent still registered under the same id
// is shut down and replaced; replaced reports whether that happened.
func (c *Chats) Init(ctx context.Context, chat api.ChatID) (agent api.Agent, replaced bool, err error) {
	agent, err = c.factory(ctx, chat)
	if err != nil {
		return nil, false, fmt.Errorf("create agent for chat %s: %w", chat, err)
	}
	if agent == nil {
		return nil, false, fmt.Errorf("create agent for chat %s: factory returned no agent", chat)
	}

	if previous, ok := c.agents.Get(chat); ok {
		slog.WarnContext(ctx, "chat already has an agent, overwriting it", slogx.Chat(chat), slog.String("agent", previous.ID()))
		shutdownAgent(ctx, chat, previous)
		replaced = true
	}
	c.agents.Add(chat, agent)
	c.finished.Del(chat)
	return agent, replaced, nil
}

func (c *Chats) Get(chat api.ChatID) (api.Agent, bool) {
	return c.agents.Get(chat)
}

// MarkFinished flags a registered chat as finished. Unknown chats are ignored.
func (c *Chats) MarkFinished(chat api.ChatID) bool {
	if !c.agents.Has(chat) {
		return false
	}
	c.finished.Add(chat, struct{}{})
	return true
}

func (c *Chats) IsFinished(chat api.ChatID) bool {
	return c.finished.Has(chat)
}

// Finished returns the finished chats ordered by id.
func (c *Chats) Finished() []api.ChatID {
	return c.finished.Keys()
}

// Cleanup removes chat from the registry and shuts its agent down.
func (c *Chats) Cleanup(ctx context.Context, chat api.ChatID) (api.Agent, bool) {
	c.finished.Del(chat)
	agent, ok := c.agents.Del(chat)
	if !ok {
		return nil, false
	}
	shutdownAgent(ctx, chat, agent)
	return agent, true
}

func (c *Chats) Len() int {
	return c.agents.Len()
}

func (c *Chats) FinishedCount() int {
	return c.finished.Len()
}

// Statuses describes every registered chat ordered by id.
func (c *Chats) Statuses() []api.ChatStatus {
	keys := c.agents.Keys()
	statuses := make([]api.ChatStatus, 0, len(keys))
	for _, chat := range keys {
		statuses = append(statuses, api.ChatStatus{ID: chat, Finished: c.finished.Has(chat)})
	}
	return statuses
}

// All iterates the registered chats and their agents ordered by chat id.
func (c *Chats) All() iter.Seq2[api.ChatID, api.Agent] {
	return func(yield func(api.ChatID, api.Agent) bool) {
		for _, chat := range c.agents.Keys() {
			agent, ok := c.agents.Get(chat)
			if !ok {
				continue
			}
			if !yield(chat, agent) {
				return
			}
		}
	}
}

// Shutdown shuts down every registered agent. The registry itself is left
// untouched.
func (c *Chats) Shutdown(ctx context.Context) error {
	var errs []error
	for chat, agent := range c.All() {
		s, ok := agent.(api.Shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown agent for chat %s: %w", chat, err))
		}
	}
	return errors.Join(errs...)
}

func shutdownAgent(ctx context.Context, chat api.ChatID, agent api.Agent) {
	s, ok := agent.(api.Shutdowner)
	if !ok {
		return
	}
	if err := s.Shutdown(ctx); err != nil {
		slog.WarnContext(ctx, "agent shutdown failed", slogx.Chat(chat), slog.String("agent", agent.ID()), slogx.Error(err))
	}
}
