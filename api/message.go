package api

import "strings"

const (
	// StartToken prefixes the first message of a conversation. The rest of the
	// text is the conversation's opening payload.
	StartToken = "/start "
	// EndToken ends a conversation.
	EndToken = "/end"
)

// Message is what agents observe and what they return from Act.
type Message struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	EpisodeDone bool   `json:"episode_done"`
}

// IsStart reports whether text opens a conversation.
func IsStart(text string) bool {
	return strings.HasPrefix(text, StartToken)
}

// IsEnd reports whether text closes a conversation. Empty text closes it too.
func IsEnd(text string) bool {
	return text == EndToken || text == ""
}

// StripStart removes the start token from text.
func StripStart(text string) string {
	return strings.Replace(text, StartToken, "", 1)
}

// Evaluation is the human rating attached to the end of a conversation.
// Every score ranges from 1 to 10.
type Evaluation struct {
	Quality    int `json:"quality"`
	Breadth    int `json:"breadth"`
	Engagement int `json:"engagement"`
}
