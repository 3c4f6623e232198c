package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Stamp,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}
