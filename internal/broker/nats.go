package broker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/convai/events"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/casualjim/convai/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

func NATS(client *nats.Conn) *natsBroker {
	return &natsBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(_ context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(_ context.Context, event events.Event) error {
	eb, err := events.ToJSON(event)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, eb)
}

func (t *natsTopic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errors.New("hook is required")
	}
	sub := make(chan events.Event, subscriberBuffer)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		event, err := events.FromJSON(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal event", slogx.Error(err))
			return
		}

		select {
		case sub <- event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	nsub.SetClosedHandler(func(_ string) { close(sub) })
	// make sure the server registered the interest before events get published
	if err := t.client.Flush(); err != nil {
		_ = nsub.Unsubscribe()
		return nil, err
	}

	go forwardToHook(ctx, sub, hook)
	return &natsSubscription{
		id:  uuidx.NewString(),
		sub: nsub,
	}, nil
}

func forwardToHook(ctx context.Context, ch <-chan events.Event, hook events.Hook) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := events.Dispatch(ctx, hook, event); err != nil {
				slog.ErrorContext(ctx, "failed to dispatch event", slogx.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
