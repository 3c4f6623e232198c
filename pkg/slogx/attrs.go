package slogx

import (
	"log/slog"
	"strconv"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Chat creates the attribute used to tag every log line that concerns a single
// router conversation.
func Chat[T ~int64](id T) slog.Attr {
	return slog.String(KeyChat, strconv.FormatInt(int64(id), 10))
}

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyChat is the key for the chat id attribute.
	KeyChat = "chat"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
