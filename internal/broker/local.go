package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/convai/events"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/casualjim/convai/pkg/uuidx"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	subscriberBuffer             = 50
)

type localBroker struct {
	topics                *haxmap.Map[string, *topic]
	slowSubscriberTimeout time.Duration
}

func Local() *localBroker {
	return &localBroker{
		topics:                haxmap.New[string, *topic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
}

// WithSlowSubscriberTimeout configures the timeout for detecting slow subscribers
func (b *localBroker) WithSlowSubscriberTimeout(timeout time.Duration) *localBroker {
	b.slowSubscriberTimeout = timeout
	return b
}

func (b *localBroker) Topic(_ context.Context, id string) Topic {
	t, _ := b.topics.GetOrCompute(id, func() *topic {
		return &topic{
			id:                    id,
			subscriptions:         haxmap.New[string, *subscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return t
}

type topic struct {
	id                    string
	subscriptions         *haxmap.Map[string, *subscription]
	slowSubscriberTimeout time.Duration
}

func (t *topic) Publish(ctx context.Context, event events.Event) error {
	t.subscriptions.ForEach(func(_ string, sub *subscription) bool {
		if sub == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.ctx.Done():
			sub.Unsubscribe()
			return true
		default:
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.ctx.Done():
			sub.Unsubscribe()
		case sub.channel <- event:
		case <-time.After(t.slowSubscriberTimeout):
			slog.WarnContext(ctx, "dropping slow subscriber", slog.String("topic", t.id), slog.String("subscription", sub.id))
			sub.Unsubscribe()
		}
		return true
	})
	return ctx.Err()
}

func (t *topic) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errors.New("hook is required")
	}
	id := uuidx.NewString()
	sub := &subscription{
		id:      id,
		ctx:     ctx,
		channel: make(chan events.Event, subscriberBuffer),
		onClose: func() { t.subscriptions.Del(id) },
		hook:    hook,
	}
	t.subscriptions.Set(id, sub)
	go sub.forwardToHook()
	return sub, nil
}

type subscription struct {
	id        string
	ctx       context.Context
	channel   chan events.Event
	closeOnce sync.Once
	onClose   func()
	hook      events.Hook
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		close(s.channel)
	})
}

func (s *subscription) forwardToHook() {
	for {
		select {
		case event, ok := <-s.channel:
			if !ok {
				return
			}
			if err := events.Dispatch(s.ctx, s.hook, event); err != nil {
				slog.ErrorContext(s.ctx, "failed to dispatch event", slogx.Error(err), slog.String("subscription", s.id))
			}
		case <-s.ctx.Done():
			return
		}
	}
}
