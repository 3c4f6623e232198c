// Package events describes what happens to conversations while a world runs.
//
// Every step of the chat lifecycle produces one event:
//
//   - ChatStarted: a /start message created an agent for a chat
//   - ChatRejected: a /start message arrived while the bot was at capacity
//   - MessageDropped: a message for an unknown chat was discarded
//   - MessageObserved: a message was handed to the chat's agent
//   - ReplySent: the agent's reply was delivered to the router
//   - ChatFinished: the chat was removed from the registry
//   - Error: a round failed
//
// Each event embeds an Envelope with a unique id, the bot id, the chat id and a
// timestamp. Events serialize to JSON with a "type" discriminator so they can
// travel over a broker and be decoded with FromJSON on the other side.
//
// Consumers implement Hook and receive events through Dispatch:
//
//	switch e := event.(type) {
//	case events.ChatStarted:
//	    // a new agent is talking to e.Chat
//	case events.ReplySent:
//	    // e.Message went out to e.Chat
//	}
package events
