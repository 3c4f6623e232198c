// Package config resolves the bot's settings from the environment, an optional
// .env file and command line flags. Flags win over the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	ModeWorld  = "world"
	ModeDialog = "dialog"

	AgentDebug  = "debug"
	AgentOpenAI = "openai"

	EvaluationConsole = "console"
	EvaluationNone    = "none"

	minPullDelay = time.Second
)

// Config holds every setting of the bot.
type Config struct {
	BotID         string
	RouterURL     string
	BotCapacity   int
	PullDelay     time.Duration
	IdleDelay     time.Duration
	RouterTimeout time.Duration

	Mode       string
	Agent      string
	Evaluation string

	DisplayExamples bool
	LogEvents       bool
	LogLevel        slog.Level

	NATSURL      string
	OpenAIModel  string
	Instructions string
}

// Load reads the configuration for the command line args, without the program
// name. It returns pflag.ErrHelp when help was requested.
func Load(name string, args []string) (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	botID := fs.StringP("bot-id", "b", os.Getenv("CONVAI_BOT_ID"), "id of the bot on the router")
	routerURL := fs.StringP("router-bot-url", "u", os.Getenv("CONVAI_ROUTER_URL"), "base URL of the router bot")
	capacity := fs.IntP("bot-capacity", "c", getEnvInt("CONVAI_BOT_CAPACITY", -1), "maximum number of concurrent chats, negative for no limit")
	pullDelay := fs.StringP("router-bot-pull-delay", "p", getEnv("CONVAI_PULL_DELAY", "5"), "pause between two polls, in seconds or as a duration")
	idleDelay := fs.String("idle-delay", getEnv("CONVAI_IDLE_DELAY", "0"), "extra pause after a poll without messages, in seconds or as a duration")
	timeout := fs.Duration("router-timeout", 30*time.Second, "timeout of a single request to the router")
	mode := fs.StringP("mode", "m", getEnv("CONVAI_MODE", ModeWorld), "world serves many chats, dialog relays a single one")
	agent := fs.StringP("agent", "a", getEnv("CONVAI_AGENT", AgentDebug), "agent answering the chats")
	evaluation := fs.StringP("evaluation", "e", getEnv("CONVAI_EVALUATION", EvaluationConsole), "how finished chats are rated: console or none")
	display := fs.BoolP("display-examples", "d", getEnvBool("CONVAI_DISPLAY_EXAMPLES"), "print the messages of every round")
	logEvents := fs.Bool("log-events", getEnvBool("CONVAI_LOG_EVENTS"), "log every lifecycle event")
	logLevel := fs.String("log-level", getEnv("CONVAI_LOG_LEVEL", "info"), "log level: debug, info, warn or error")
	natsURL := fs.String("nats-url", os.Getenv("NATS_URL"), "publish lifecycle events to this NATS server")
	model := fs.String("openai-model", os.Getenv("OPENAI_MODEL"), "chat model of the openai agent")
	instructions := fs.String("instructions", os.Getenv("CONVAI_INSTRUCTIONS"), "system prompt of the openai agent")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		BotID:           strings.TrimSpace(*botID),
		RouterURL:       strings.TrimSpace(*routerURL),
		BotCapacity:     *capacity,
		RouterTimeout:   *timeout,
		Mode:            *mode,
		Agent:           *agent,
		Evaluation:      *evaluation,
		DisplayExamples: *display,
		LogEvents:       *logEvents,
		NATSURL:         *natsURL,
		OpenAIModel:     *model,
		Instructions:    *instructions,
	}

	var err error
	if cfg.PullDelay, err = ParseDelay(*pullDelay); err != nil {
		return nil, fmt.Errorf("router-bot-pull-delay: %w", err)
	}
	if cfg.IdleDelay, err = ParseDelay(*idleDelay); err != nil {
		return nil, fmt.Errorf("idle-delay: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("log-level: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and raises the pull delay to its minimum.
func (c *Config) Validate() error {
	var errs []error
	if c.BotID == "" {
		errs = append(errs, errors.New("bot id is required (--bot-id or CONVAI_BOT_ID)"))
	}
	if c.RouterURL == "" {
		errs = append(errs, errors.New("router URL is required (--router-bot-url or CONVAI_ROUTER_URL)"))
	} else if u, err := url.Parse(c.RouterURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("router URL %q is not an absolute URL", c.RouterURL))
	}
	if !slices.Contains([]string{ModeWorld, ModeDialog}, c.Mode) {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if !slices.Contains([]string{EvaluationConsole, EvaluationNone}, c.Evaluation) {
		errs = append(errs, fmt.Errorf("unknown evaluation %q", c.Evaluation))
	}
	if c.IdleDelay < 0 {
		errs = append(errs, fmt.Errorf("idle delay must not be negative, got %s", c.IdleDelay))
	}
	if c.RouterTimeout <= 0 {
		errs = append(errs, fmt.Errorf("router timeout must be positive, got %s", c.RouterTimeout))
	}
	if c.PullDelay < minPullDelay {
		c.PullDelay = minPullDelay
	}
	return errors.Join(errs...)
}

// ParseDelay accepts a whole number of seconds or a Go duration.
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("delay must not be negative, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("delay must not be negative, got %s", d)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string) bool {
	value, _ := strconv.ParseBool(os.Getenv(key))
	return value
}
