package api

import (
	"context"
	"strconv"
)

// ChatID identifies one conversation on the router bot. The value is opaque
// and assigned by the router.
type ChatID int64

func (c ChatID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Agent is a conversational participant driven one turn at a time.
//
// The world calls Observe for every message routed to the agent during a round
// and then Act once to collect the reply. An Act result with empty text is not
// sent and, like "/end", finishes the conversation.
type Agent interface {
	// ID returns the identifier used as the sender of the agent's replies.
	ID() string

	// Observe hands the agent an incoming message.
	Observe(context.Context, Message) error

	// Act produces the agent's reply to everything observed since the last Act.
	Act(context.Context) (Message, error)
}

// Shutdowner is implemented by agents that hold resources which must be
// released when their conversation is removed.
type Shutdowner interface {
	Shutdown(context.Context) error
}

// Factory creates the agent that handles a newly started chat.
type Factory func(ctx context.Context, chat ChatID) (Agent, error)

// ChatStatus describes one registered chat.
type ChatStatus struct {
	ID       ChatID `json:"id"`
	Finished bool   `json:"finished"`
}

func (s ChatStatus) String() string {
	if s.Finished {
		return s.ID.String() + ": Finished"
	}
	return s.ID.String() + ": Active"
}

// Inspector gives agents a view of the chats the world is currently tracking.
type Inspector interface {
	// Chats returns every registered chat ordered by id.
	Chats() []ChatStatus

	// FinishedCount returns the number of registered chats marked finished.
	FinishedCount() int

	// CurrentChat returns the chat the world is processing right now.
	CurrentChat() (ChatID, bool)

	// CleanupFinished removes every finished chat and returns their ids.
	CleanupFinished(context.Context) []ChatID
}
