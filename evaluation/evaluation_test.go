package evaluation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/casualjim/convai/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed(t *testing.T) {
	want := api.Evaluation{Quality: 1, Breadth: 2, Engagement: 3}
	got, err := Fixed(want).Evaluate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(api.Evaluation{Quality: 1, Breadth: 10, Engagement: 5}))
	require.Error(t, Validate(api.Evaluation{Quality: 0, Breadth: 10, Engagement: 5}))
	require.Error(t, Validate(api.Evaluation{Quality: 1, Breadth: 11, Engagement: 5}))
	require.Error(t, Validate(api.Evaluation{}))
}

func TestConsole(t *testing.T) {
	t.Run("reads three scores", func(t *testing.T) {
		var out bytes.Buffer
		ev := Console(strings.NewReader("7\n5\n9\n"), &out)

		got, err := ev.Evaluate(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, api.Evaluation{Quality: 7, Breadth: 5, Engagement: 9}, got)
		assert.Contains(t, out.String(), "quality")
		assert.Contains(t, out.String(), "breadth")
		assert.Contains(t, out.String(), "engagement")
	})

	t.Run("asks again on invalid answers", func(t *testing.T) {
		var out bytes.Buffer
		ev := Console(strings.NewReader("great\n11\n 8 \n4\n2\n"), &out)

		got, err := ev.Evaluate(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, api.Evaluation{Quality: 8, Breadth: 4, Engagement: 2}, got)
		assert.Equal(t, 2, strings.Count(out.String(), "please answer"))
	})

	t.Run("fails when input runs out", func(t *testing.T) {
		ev := Console(strings.NewReader("7\n"), &bytes.Buffer{})
		_, err := ev.Evaluate(context.Background(), 3)
		require.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ev := Console(strings.NewReader("7\n5\n9\n"), &bytes.Buffer{})
		_, err := ev.Evaluate(ctx, 3)
		require.ErrorIs(t, err, context.Canceled)
	})
}
