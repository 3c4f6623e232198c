/*
Package convai connects dialog agents to a router bot, the relay service that
brokers conversations between human users and bots.

A World polls the router for pending messages, hands every message to the
agent that owns its conversation and posts the agents' replies back. Agents are
created on demand, one per chat, by an api.Factory.

# Conversation lifecycle

Every chat is identified by the id the router assigns to it. A chat moves
through two states:

  - Active: a message "/start <payload>" arrived and the bot had capacity left.
    The factory created an agent and the agent observed the payload.
  - Finished: the user sent "/end" (or an empty message), or the agent replied
    "/end" or nothing at all, or flagged the episode as done. The chat is removed from the
    registry at the end of the round, after its final reply was sent.

Messages for chats the world does not know are logged and dropped.

# Basic Usage

	client := router.New("https://router.example/", botID)
	factory := func(ctx context.Context, chat api.ChatID) (api.Agent, error) {
	    return newEchoAgent(chat), nil
	}

	world := convai.New(client, factory,
	    convai.BotID(botID),
	    convai.BotCapacity(10),
	    convai.PullDelay(2*time.Second),
	    convai.WithEvaluator(evaluation.Fixed(api.Evaluation{Quality: 5, Breadth: 5, Engagement: 5})),
	)
	defer world.Shutdown(context.Background())

	if err := world.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    // Handle error
	}

# Rounds

Each call to World.Parley is one round:

 1. fetch every pending message from the router
 2. classify each as start, end or continuation and route it to its agent
 3. ask every agent that observed something for its reply and send it, unless
    the reply is empty; a "/end" reply carries the conversation's evaluation
 4. remove the chats that finished during the round
 5. sleep for the pull delay

A failed request ends the round with an error. World.Run logs the error and
starts the next round after the pull delay.

# Events

When a Publisher is configured (see WithPublisher) every lifecycle step is
published as an events.Event. The convai-bot command publishes them to an
in-process topic or to NATS.

# Thread Safety

A World is driven by one goroutine. Agents are only ever called from that
goroutine, so they need no synchronization of their own.
*/
package convai
