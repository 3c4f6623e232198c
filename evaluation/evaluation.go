// Package evaluation rates finished conversations before their final /end is
// sent to the router.
package evaluation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/casualjim/convai/api"
	"github.com/fatih/color"
)

const (
	MinScore = 1
	MaxScore = 10
)

// ErrNoInput is returned by the console evaluator when its input is exhausted.
var ErrNoInput = errors.New("evaluation: no more input")

type Evaluator interface {
	Evaluate(context.Context, api.ChatID) (api.Evaluation, error)
}

type EvaluatorFunc func(context.Context, api.ChatID) (api.Evaluation, error)

func (fn EvaluatorFunc) Evaluate(ctx context.Context, chat api.ChatID) (api.Evaluation, error) {
	return fn(ctx, chat)
}

// Fixed rates every conversation with the same scores.
func Fixed(e api.Evaluation) Evaluator {
	return EvaluatorFunc(func(context.Context, api.ChatID) (api.Evaluation, error) {
		return e, nil
	})
}

// Validate checks that every score is within MinScore and MaxScore.
func Validate(e api.Evaluation) error {
	for _, s := range []struct {
		name  string
		score int
	}{
		{"quality", e.Quality},
		{"breadth", e.Breadth},
		{"engagement", e.Engagement},
	} {
		if s.score < MinScore || s.score > MaxScore {
			return fmt.Errorf("%s score %d is outside %d..%d", s.name, s.score, MinScore, MaxScore)
		}
	}
	return nil
}

// Console asks a human for the scores. Invalid answers are asked again.
func Console(in io.Reader, out io.Writer) Evaluator {
	return &consoleEvaluator{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

type consoleEvaluator struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (c *consoleEvaluator) Evaluate(ctx context.Context, chat api.ChatID) (api.Evaluation, error) {
	fmt.Fprintf(c.out, "%s %s\n", color.CyanString("Conversation"), color.MagentaString("#%s", chat))

	var e api.Evaluation
	var err error
	if e.Quality, err = c.ask(ctx, "quality"); err != nil {
		return api.Evaluation{}, err
	}
	if e.Breadth, err = c.ask(ctx, "breadth"); err != nil {
		return api.Evaluation{}, err
	}
	if e.Engagement, err = c.ask(ctx, "engagement"); err != nil {
		return api.Evaluation{}, err
	}
	return e, nil
}

func (c *consoleEvaluator) ask(ctx context.Context, aspect string) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(c.out, "How do you evaluate %s of conversation (from %d to %d)? ", color.YellowString(aspect), MinScore, MaxScore)
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoInput
		}

		score, err := strconv.Atoi(strings.TrimSpace(c.scanner.Text()))
		if err != nil || score < MinScore || score > MaxScore {
			fmt.Fprintln(c.out, color.RedString("please answer with a number from %d to %d", MinScore, MaxScore))
			continue
		}
		return score, nil
	}
}
