// convai-bot connects dialog agents to a ConvAI router bot.
//
// In world mode (the default) the bot serves every chat the router hands it,
// one agent per chat. In dialog mode it relays a single conversation at a time
// to one local agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/convai"
	"github.com/casualjim/convai/agent"
	"github.com/casualjim/convai/agent/debug"
	"github.com/casualjim/convai/agent/relay"
	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/evaluation"
	"github.com/casualjim/convai/events"
	"github.com/casualjim/convai/internal/broker"
	"github.com/casualjim/convai/internal/config"
	"github.com/casualjim/convai/pkg/natsx"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/casualjim/convai/router"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go/option"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func init() {
	agent.Add(config.AgentDebug, debug.Builder)
	agent.Add(config.AgentOpenAI, agent.ChatBuilder)
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("convai-bot failed", slogx.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("convai-bot", os.Args[1:])
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := router.New(cfg.RouterURL, cfg.BotID, router.Timeout(cfg.RouterTimeout))
	slog.InfoContext(ctx, "starting convai-bot",
		slog.String("bot", cfg.BotID),
		slog.String("router", client.BaseURL()),
		slog.String("mode", cfg.Mode),
		slog.String("agent", cfg.Agent),
	)

	if cfg.Mode == config.ModeDialog {
		err = runDialog(ctx, cfg, client)
	} else {
		err = runWorld(ctx, cfg, client)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runWorld(ctx context.Context, cfg *config.Config, client *router.Client) error {
	b, closeBroker, err := newBroker(cfg)
	if err != nil {
		return err
	}
	defer closeBroker()

	topic := b.Topic(ctx, "convai."+cfg.BotID)
	if cfg.LogEvents {
		sub, err := topic.Subscribe(ctx, events.LoggingHook())
		if err != nil {
			return fmt.Errorf("subscribe to events: %w", err)
		}
		defer sub.Unsubscribe()
	}

	inspector := &inspectorRef{}
	factory, err := agent.Factory(cfg.Agent, agentEnv(cfg, inspector))
	if err != nil {
		return err
	}

	options := []opts.Option[convai.World]{
		convai.BotID(cfg.BotID),
		convai.BotCapacity(cfg.BotCapacity),
		convai.PullDelay(cfg.PullDelay),
		convai.IdleDelay(cfg.IdleDelay),
		convai.WithEvaluator(newEvaluator(cfg)),
		convai.WithPublisher(topic),
	}
	if cfg.DisplayExamples {
		display, err := newDisplay(os.Stdout)
		if err != nil {
			return err
		}
		options = append(options, convai.OnRound(display))
	}

	world := convai.New(client, factory, options...)
	inspector.Inspector = world

	err = world.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if serr := world.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("failed to shut down agents", slogx.Error(serr))
	}
	return err
}

func runDialog(ctx context.Context, cfg *config.Config, client *router.Client) error {
	remote, err := relay.New(client,
		relay.WithEvaluator(newEvaluator(cfg)),
		relay.PollInterval(cfg.PullDelay),
	)
	if err != nil {
		return err
	}

	factory, err := agent.Factory(cfg.Agent, agentEnv(cfg, &relayInspector{relay: remote}))
	if err != nil {
		return err
	}

	for {
		local, err := factory(ctx, 0)
		if err != nil {
			return err
		}
		err = convai.NewDialog(remote, local).Run(ctx)
		if s, ok := local.(api.Shutdowner); ok {
			if serr := s.Shutdown(context.WithoutCancel(ctx)); serr != nil {
				slog.WarnContext(ctx, "failed to shut down agent", slog.String("agent", local.ID()), slogx.Error(serr))
			}
		}
		if err != nil {
			return err
		}
	}
}

func agentEnv(cfg *config.Config, inspector api.Inspector) agent.Env {
	return agent.Env{
		BotID:        cfg.BotID,
		Inspector:    inspector,
		Model:        cfg.OpenAIModel,
		Instructions: cfg.Instructions,
		OpenAI:       []option.RequestOption{option.WithMaxRetries(2)},
	}
}

func newEvaluator(cfg *config.Config) evaluation.Evaluator {
	if cfg.Evaluation == config.EvaluationNone {
		return evaluation.Fixed(api.Evaluation{
			Quality:    evaluation.MinScore,
			Breadth:    evaluation.MinScore,
			Engagement: evaluation.MinScore,
		})
	}
	return evaluation.Console(os.Stdin, os.Stdout)
}

func newBroker(cfg *config.Config) (broker.Broker, func(), error) {
	if cfg.NATSURL == "" {
		return broker.Local(), func() {}, nil
	}
	conn, err := natsx.NewClient(cfg.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}
	slog.Info("publishing events to nats", slog.String("url", conn.ConnectedUrlRedacted()))
	return broker.NATS(conn), func() {
		if err := conn.Drain(); err != nil {
			slog.Warn("failed to drain nats connection", slogx.Error(err))
		}
	}, nil
}

// inspectorRef lets agent factories be built before the world they inspect.
type inspectorRef struct {
	api.Inspector
}

// relayInspector describes the single chat a relay agent serves.
type relayInspector struct {
	relay *relay.Agent
}

func (r *relayInspector) Chats() []api.ChatStatus {
	chat, ok := r.relay.Chat()
	if !ok {
		return nil
	}
	return []api.ChatStatus{{ID: chat}}
}

func (r *relayInspector) FinishedCount() int { return 0 }

func (r *relayInspector) CurrentChat() (api.ChatID, bool) { return r.relay.Chat() }

func (r *relayInspector) CleanupFinished(context.Context) []api.ChatID { return nil }
