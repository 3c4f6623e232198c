// Package ctxx holds small helpers around context.Context.
package ctxx

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when ctx ended the wait. A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
