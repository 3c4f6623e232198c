package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/casualjim/convai"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/charmbracelet/glamour"
)

// newDisplay renders the turns of every round that exchanged messages.
func newDisplay(w io.Writer) (func(context.Context, []convai.Turn), error) {
	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	return func(ctx context.Context, turns []convai.Turn) {
		if len(turns) == 0 {
			return
		}
		out, err := glam.Render(convai.RenderTurns(turns))
		if err != nil {
			slog.WarnContext(ctx, "failed to render round", slogx.Error(err))
			return
		}
		fmt.Fprint(w, out)
	}, nil
}
