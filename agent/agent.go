package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultInstructions is the system prompt used when none is configured.
	DefaultInstructions = "You are taking part in a casual conversation with a human in chat {{.Chat}}. Keep your replies short and friendly."
	// DefaultMaxHistory is the number of past messages sent along with every completion request.
	DefaultMaxHistory = 20

	// FallbackReply is sent when there is nothing to answer or the model
	// returns nothing.
	FallbackReply = "speak again?"
)

var _ api.Agent = (*chatAgent)(nil)

// chatAgent answers a single chat with an OpenAI chat model. It keeps the
// conversation history in memory and asks the model for a reply on every Act
// that follows a new observation.
type chatAgent struct {
	id             string
	botID          string
	chat           api.ChatID
	model          string
	instructions   string
	maxHistory     int
	client         *openai.Client
	requestOptions []option.RequestOption

	system      string
	history     []openai.ChatCompletionMessageParamUnion
	pending     bool
	episodeDone bool
	log         *slog.Logger
}

var (
	// BotID sets the bot id available to the instructions template.
	BotID = opts.ForName[chatAgent, string]("botID")
	// Model sets the chat model name.
	Model = opts.ForName[chatAgent, string]("model")
	// Instructions sets the system prompt. It is a text/template rendered with
	// the bot id and the chat id.
	Instructions = opts.ForName[chatAgent, string]("instructions")
	// MaxHistory caps the number of past messages sent to the model.
	MaxHistory = opts.ForName[chatAgent, int]("maxHistory")
	// Client shares an OpenAI client between agents.
	Client = opts.ForName[chatAgent, *openai.Client]("client")
)

// RequestOptions configures the OpenAI client created when no Client is given.
func RequestOptions(options ...option.RequestOption) opts.Option[chatAgent] {
	return opts.Type[chatAgent](func(a *chatAgent) error {
		a.requestOptions = append(a.requestOptions, options...)
		return nil
	})
}

// New creates the chat agent for chat.
func New(chat api.ChatID, options ...opts.Option[chatAgent]) (api.Agent, error) {
	a := &chatAgent{
		id:           "ChatAgent#" + chat.String(),
		chat:         chat,
		model:        DefaultModel,
		instructions: DefaultInstructions,
		maxHistory:   DefaultMaxHistory,
	}
	if err := opts.Apply(a, options); err != nil {
		return nil, err
	}
	if a.maxHistory <= 0 {
		return nil, fmt.Errorf("max history must be positive, got %d", a.maxHistory)
	}
	if a.client == nil {
		a.client = openai.NewClient(a.requestOptions...)
	}

	system, err := a.renderInstructions()
	if err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}
	a.system = system
	a.log = slog.Default().With(slogx.LoggerName("convai.agent"), slogx.Chat(chat), slog.String("model", a.model))
	return a, nil
}

func (a *chatAgent) ID() string {
	return a.id
}

// Observe records the message in the history. An observation that ends the
// episode makes the next Act say goodbye without calling the model.
func (a *chatAgent) Observe(_ context.Context, msg api.Message) error {
	if msg.EpisodeDone {
		a.episodeDone = true
		return nil
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	a.history = append(a.history, openai.UserMessage(msg.Text))
	a.trimHistory()
	a.pending = true
	return nil
}

func (a *chatAgent) Act(ctx context.Context) (api.Message, error) {
	if a.episodeDone {
		return api.Message{ID: a.id, Text: api.EndToken, EpisodeDone: true}, nil
	}
	if !a.pending {
		return api.Message{ID: a.id, Text: FallbackReply}, nil
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(a.history)+1)
	messages = append(messages, openai.SystemMessage(a.system))
	messages = append(messages, a.history...)

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(a.model),
	})
	if err != nil {
		return api.Message{}, fmt.Errorf("chat completion: %w", err)
	}
	a.pending = false

	var text string
	if len(completion.Choices) > 0 {
		text = strings.TrimSpace(completion.Choices[0].Message.Content)
	}
	if text == "" {
		a.log.WarnContext(ctx, "model returned an empty reply")
		text = FallbackReply
	}

	a.history = append(a.history, openai.AssistantMessage(text))
	a.trimHistory()
	return api.Message{ID: a.id, Text: text}, nil
}

func (a *chatAgent) trimHistory() {
	if extra := len(a.history) - a.maxHistory; extra > 0 {
		a.history = a.history[extra:]
	}
}

func (a *chatAgent) renderInstructions() (string, error) {
	if !strings.Contains(a.instructions, "{{") {
		return a.instructions, nil
	}
	return renderTemplate("instructions", a.instructions, instructionVars{BotID: a.botID, Chat: a.chat})
}

type instructionVars struct {
	BotID string
	Chat  api.ChatID
}

func renderTemplate(name, templateStr string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
