package router

import (
	"github.com/casualjim/convai/api"
	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"
)

var replyTextJSON = []byte(`{"text":"","evaluation":0}`)

// Reply is one outbound message for a chat. Evaluation is only attached to the
// end of a conversation; otherwise the router receives an evaluation of 0.
type Reply struct {
	ChatID     api.ChatID
	Text       string
	Evaluation *api.Evaluation
}

type sendMessageBody struct {
	ChatID api.ChatID `json:"chat_id"`
	Text   string     `json:"text"`
}

// EncodeText renders the JSON document carried in the text field of sendMessage.
func (r Reply) EncodeText() ([]byte, error) {
	result, err := sjson.SetBytes(replyTextJSON, "text", r.Text)
	if err != nil {
		return nil, err
	}
	if r.Evaluation != nil {
		result, err = sjson.SetBytes(result, "evaluation", r.Evaluation)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// MarshalJSON produces the sendMessage request body.
func (r Reply) MarshalJSON() ([]byte, error) {
	text, err := r.EncodeText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(sendMessageBody{ChatID: r.ChatID, Text: string(text)})
}
