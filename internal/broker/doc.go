// Package broker distributes conversation lifecycle events to subscribers.
//
// A Broker hands out named Topics; publishing an event on a topic delivers it
// to every Subscription's events.Hook. Two implementations exist:
//
//   - Local: in-process fan-out, one buffered channel and goroutine per
//     subscriber; subscribers that stay full past a timeout are dropped
//   - NATS: events are encoded with events.ToJSON and published on the topic
//     name as subject, so other processes can follow the bot
//
// Example usage:
//
//	topic := broker.Local().Topic(ctx, "convai.my-bot")
//	sub, err := topic.Subscribe(ctx, events.LoggingHook())
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
//	world := convai.New(client, factory, convai.WithPublisher(topic))
package broker
