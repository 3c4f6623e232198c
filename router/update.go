package router

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/pkg/slogx"
	"github.com/tidwall/gjson"
)

// ErrInvalidUpdates is returned when the getUpdates body is not a JSON array.
var ErrInvalidUpdates = errors.New("router: getUpdates returned an invalid payload")

// Update is one pending inbound message.
type Update struct {
	ChatID api.ChatID
	Text   string
	Raw    string
}

// ParseUpdates decodes a getUpdates response body. Entries without an integer
// chat id or a string text, and entries whose text is a JSON object without a
// string "text" field, are logged and skipped.
func ParseUpdates(body []byte) ([]Update, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidUpdates
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, ErrInvalidUpdates
	}

	var updates []Update
	parsed.ForEach(func(_, value gjson.Result) bool {
		chat, ok := chatID(value.Get("message.chat.id"))
		text := value.Get("message.text")
		if !ok || text.Type != gjson.String {
			slog.Warn("dropping malformed update", slog.String("update", value.Raw))
			return true
		}
		decoded, ok := DecodeText(text.String())
		if !ok {
			slog.Warn("dropping update with undecodable text", slogx.Chat(chat), slog.String("update", value.Raw))
			return true
		}
		upd := Update{
			ChatID: chat,
			Text:   decoded,
			Raw:    value.Raw,
		}
		slog.Debug("received update", slogx.Chat(upd.ChatID), slog.String("text", upd.Text))
		updates = append(updates, upd)
		return true
	})
	return updates, nil
}

func chatID(v gjson.Result) (api.ChatID, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	id, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return api.ChatID(id), true
}

// DecodeText extracts the message text from the router's text field.
//
// The router wraps messages in a JSON object whose "text" field is the message.
// Backslashes are turned into slashes first so that "\end" reads as "/end";
// when that breaks the JSON, as escaped quotes do, the text is decoded as is.
// Text that is not a JSON object is a plain message and returned unchanged.
// A JSON object without a string "text" field cannot be decoded and ok is false.
func DecodeText(raw string) (text string, ok bool) {
	if text, ok := objectText(strings.ReplaceAll(raw, `\`, "/")); ok {
		return text, true
	}
	if text, ok := objectText(raw); ok {
		return text, true
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return "", false
	}
	return raw, true
}

func objectText(s string) (string, bool) {
	if !gjson.Valid(s) {
		return "", false
	}
	doc := gjson.Parse(s)
	if !doc.IsObject() {
		return "", false
	}
	text := doc.Get("text")
	if text.Type != gjson.String {
		return "", false
	}
	return text.String(), true
}
