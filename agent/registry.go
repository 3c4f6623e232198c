package agent

import (
	"context"
	"fmt"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/internal/registry"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Env is what a Builder knows about the bot it builds agents for.
type Env struct {
	BotID        string
	Inspector    api.Inspector
	Model        string
	Instructions string
	OpenAI       []option.RequestOption
}

// Builder turns an environment into the factory a world uses for new chats.
type Builder func(Env) (api.Factory, error)

// Global holds the builders selectable by name.
var Global = registry.New[string, Builder]()

func Add(name string, b Builder) {
	Global.Add(name, b)
}

func Get(name string) (Builder, bool) {
	return Global.Get(name)
}

func Del(name string) {
	Global.Del(name)
}

// Names returns the registered builder names in ascending order.
func Names() []string {
	return Global.Keys()
}

// Factory looks up the builder registered under name and builds its factory.
func Factory(name string, env Env) (api.Factory, error) {
	b, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown agent %q, expected one of %v", name, Names())
	}
	return b(env)
}

// ChatBuilder builds chat agents that share a single OpenAI client.
func ChatBuilder(env Env) (api.Factory, error) {
	options := []opts.Option[chatAgent]{
		BotID(env.BotID),
		Client(openai.NewClient(env.OpenAI...)),
	}
	if env.Model != "" {
		options = append(options, Model(env.Model))
	}
	if env.Instructions != "" {
		options = append(options, Instructions(env.Instructions))
	}
	if _, err := New(0, options...); err != nil {
		return nil, err
	}

	return func(_ context.Context, chat api.ChatID) (api.Agent, error) {
		return New(chat, options...)
	}, nil
}
