package convai

import (
	"context"
	"fmt"
	"time"

	"github.com/casualjim/convai/evaluation"
	"github.com/fogfish/opts"
)

var (
	// BotID sets the id of the bot on the router. It tags logs and events.
	BotID = opts.ForName[World, string]("botID")

	// PullDelay sets the pause between two rounds. Values below MinPullDelay
	// are raised to it.
	PullDelay = opts.ForName[World, time.Duration]("pullDelay")

	// IdleDelay sets an extra pause after a round that received no messages.
	IdleDelay = opts.ForName[World, time.Duration]("idleDelay")

	// WithEvaluator sets how finished conversations are rated. The default asks
	// on the console.
	WithEvaluator = opts.ForName[World, evaluation.Evaluator]("evaluator")

	// WithPublisher sets where lifecycle events are published.
	WithPublisher = opts.ForName[World, Publisher]("publisher")

	// OnRound registers a callback invoked with the turns of every completed round.
	OnRound = opts.ForName[World, func(context.Context, []Turn)]("onRound")
)

// BotCapacity limits the number of chats handled at the same time. A negative
// capacity, such as Unbounded, disables the limit.
func BotCapacity(capacity int) opts.Option[World] {
	return opts.Type[World](func(w *World) error {
		if capacity < 0 {
			capacity = Unbounded
		}
		w.capacity = capacity
		return nil
	})
}

// PullDelaySeconds sets the pull delay as a whole number of seconds, the unit
// the router bot documents.
func PullDelaySeconds(seconds int) opts.Option[World] {
	return opts.Type[World](func(w *World) error {
		if seconds < 0 {
			return fmt.Errorf("pull delay must not be negative, got %d", seconds)
		}
		w.pullDelay = time.Duration(seconds) * time.Second
		return nil
	})
}
