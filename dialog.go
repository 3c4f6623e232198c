package convai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/pkg/ctxx"
	"github.com/casualjim/convai/pkg/slogx"
)

const dialogRetryDelay = time.Second

// Dialog lets two agents talk to each other directly. Each Parley is one
// exchange: the first agent acts and the second observes, then the second acts
// and the first observes.
//
// Pairing a relay agent with a local one turns the local agent into a router
// bot participant without a World.
type Dialog struct {
	first  api.Agent
	second api.Agent
	log    *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

func NewDialog(first, second api.Agent) *Dialog {
	return &Dialog{
		first:  first,
		second: second,
		log:    slog.Default().With(slogx.LoggerName("convai.dialog")),
		sleep:  ctxx.Sleep,
	}
}

// Parley plays one exchange and reports whether either side ended the episode.
func (d *Dialog) Parley(ctx context.Context) (bool, error) {
	a, err := d.first.Act(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: act: %w", d.first.ID(), err)
	}
	if err := d.second.Observe(ctx, a); err != nil {
		return false, fmt.Errorf("%s: observe: %w", d.second.ID(), err)
	}

	b, err := d.second.Act(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: act: %w", d.second.ID(), err)
	}
	if err := d.first.Observe(ctx, b); err != nil {
		return false, fmt.Errorf("%s: observe: %w", d.first.ID(), err)
	}

	return ended(a) || ended(b), nil
}

func ended(msg api.Message) bool {
	return msg.EpisodeDone || api.IsEnd(msg.Text)
}

// Run plays exchanges until either side ends the episode or ctx is done.
// Failed exchanges are logged and retried after a fixed delay.
func (d *Dialog) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := d.Parley(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			d.log.ErrorContext(ctx, "exchange failed", slogx.Error(err))
			if err := d.sleep(ctx, dialogRetryDelay); err != nil {
				return err
			}
			continue
		}
		if done {
			d.log.InfoContext(ctx, "episode finished", slog.String("first", d.first.ID()), slog.String("second", d.second.ID()))
			return nil
		}
	}
}
