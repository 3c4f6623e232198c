package convai

import (
	"context"
	"testing"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/evaluation"
	"github.com/stretchr/testify/assert"
)

func TestWorldOptions(t *testing.T) {
	r := &fakeRouter{}
	factory := newAgentFactory().New

	t.Run("bot id", func(t *testing.T) {
		w := New(r, factory, BotID("0123456789abcdef"))
		assert.Equal(t, "0123456789abcdef", w.BotID())
	})

	t.Run("capacity", func(t *testing.T) {
		cases := []struct {
			name     string
			capacity int
			want     int
		}{
			{name: "positive", capacity: 3, want: 3},
			{name: "zero", capacity: 0, want: 0},
			{name: "unbounded", capacity: Unbounded, want: Unbounded},
			{name: "any negative", capacity: -42, want: Unbounded},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				w := New(r, factory, BotCapacity(tc.capacity))
				assert.Equal(t, tc.want, w.capacity)
			})
		}
	})

	t.Run("pull delay seconds", func(t *testing.T) {
		w := New(r, factory, PullDelaySeconds(7))
		assert.Equal(t, 7*time.Second, w.pullDelay)

		w = New(r, factory, PullDelaySeconds(0))
		assert.Equal(t, MinPullDelay, w.pullDelay)

		assert.Panics(t, func() { New(r, factory, PullDelaySeconds(-1)) })
	})

	t.Run("idle delay", func(t *testing.T) {
		w := New(r, factory, IdleDelay(30*time.Second))
		assert.Equal(t, 30*time.Second, w.idleDelay)

		w = New(r, factory, IdleDelay(-time.Second))
		assert.Zero(t, w.idleDelay)
	})

	t.Run("evaluator and publisher", func(t *testing.T) {
		ev := evaluation.Fixed(api.Evaluation{Quality: 1, Breadth: 2, Engagement: 3})
		pub := &recordingPublisher{}
		var called bool
		w := New(r, factory,
			WithEvaluator(ev),
			WithPublisher(pub),
			OnRound(func(context.Context, []Turn) { called = true }),
		)

		got, err := w.evaluator.Evaluate(context.Background(), 1)
		assert.NoError(t, err)
		assert.Equal(t, api.Evaluation{Quality: 1, Breadth: 2, Engagement: 3}, got)
		assert.Same(t, pub, w.publisher)

		w.onRound(context.Background(), nil)
		assert.True(t, called)
	})
}
