package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/convai/api"
	"github.com/casualjim/convai/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type Event interface {
	Meta() Envelope
	convaiEvent()
}

// Envelope carries the fields shared by every event.
type Envelope struct {
	EventID   uuid.UUID       `json:"event_id"`
	BotID     string          `json:"bot_id,omitempty"`
	Chat      api.ChatID      `json:"chat_id"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// NewEnvelope stamps a new envelope for chat.
func NewEnvelope(botID string, chat api.ChatID) Envelope {
	return Envelope{
		EventID:   uuidx.New(),
		BotID:     botID,
		Chat:      chat,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

func (e Envelope) Meta() Envelope {
	return e
}

type ChatStarted struct {
	Envelope
	AgentID  string `json:"agent_id"`
	Payload  string `json:"payload,omitempty"`
	Replaced bool   `json:"replaced,omitempty"`
}

func (ChatStarted) convaiEvent() {}

type ChatRejected struct {
	Envelope
	Capacity int `json:"capacity"`
}

func (ChatRejected) convaiEvent() {}

type MessageDropped struct {
	Envelope
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (MessageDropped) convaiEvent() {}

type MessageObserved struct {
	Envelope
	Message api.Message `json:"message"`
}

func (MessageObserved) convaiEvent() {}

type ReplySent struct {
	Envelope
	Message    api.Message     `json:"message"`
	Evaluation *api.Evaluation `json:"evaluation,omitempty"`
}

func (ReplySent) convaiEvent() {}

type ChatFinished struct {
	Envelope
	AgentID string `json:"agent_id"`
}

func (ChatFinished) convaiEvent() {}

type Error struct {
	Envelope
	Err error `json:"-"`
}

func (Error) convaiEvent() {}

type errorJSON struct {
	Envelope
	Message string `json:"error"`
}

// MarshalJSON implements custom JSON marshaling for Error
func (e Error) MarshalJSON() ([]byte, error) {
	msg := "<nil>"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(errorJSON{Envelope: e.Envelope, Message: msg})
}

// UnmarshalJSON implements custom JSON unmarshaling for Error
func (e *Error) UnmarshalJSON(data []byte) error {
	var raw errorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !gjson.GetBytes(data, "error").Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Envelope = raw.Envelope
	e.Err = errors.New(raw.Message)
	return nil
}

func (e Error) Error() string {
	errStr := "<nil>"
	if e.Err != nil {
		errStr = e.Err.Error()
	}
	return fmt.Sprintf("%s bot_id=%s chat_id=%s", errStr, e.BotID, e.Chat)
}

func (e Error) Unwrap() error {
	return e.Err
}

const (
	TypeChatStarted     = "chat_started"
	TypeChatRejected    = "chat_rejected"
	TypeMessageDropped  = "message_dropped"
	TypeMessageObserved = "message_observed"
	TypeReplySent       = "reply_sent"
	TypeChatFinished    = "chat_finished"
	TypeError           = "error"
)

// TypeOf returns the discriminator written into the "type" field.
func TypeOf(e Event) string {
	switch e.(type) {
	case ChatStarted:
		return TypeChatStarted
	case ChatRejected:
		return TypeChatRejected
	case MessageDropped:
		return TypeMessageDropped
	case MessageObserved:
		return TypeMessageObserved
	case ReplySent:
		return TypeReplySent
	case ChatFinished:
		return TypeChatFinished
	case Error:
		return TypeError
	default:
		return ""
	}
}

// ToJSON encodes e with its type discriminator.
func ToJSON(e Event) ([]byte, error) {
	typ := TypeOf(e)
	if typ == "" {
		return nil, fmt.Errorf("unknown event type: %T", e)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(data, "type", typ)
}

// FromJSON decodes an event written by ToJSON.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}

	typ := gjson.GetBytes(data, "type")
	if !typ.Exists() {
		return nil, errors.New("missing required field 'type'")
	}

	switch typ.String() {
	case TypeChatStarted:
		return decode[ChatStarted](data)
	case TypeChatRejected:
		return decode[ChatRejected](data)
	case TypeMessageDropped:
		return decode[MessageDropped](data)
	case TypeMessageObserved:
		return decode[MessageObserved](data)
	case TypeReplySent:
		return decode[ReplySent](data)
	case TypeChatFinished:
		return decode[ChatFinished](data)
	case TypeError:
		var e Error
		if err := e.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", TypeError, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", typ.String())
	}
}

func decode[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", TypeOf(e), err)
	}
	return e, nil
}
