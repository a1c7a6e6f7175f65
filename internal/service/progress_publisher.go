package service

import (
	"context"
	"encoding/json"

	"docuchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// progressPublisher implements events.ProgressNotifier on top of a watermill
// gochannel topic. The index manager publishes here without knowing anything
// about websockets; the consumer service on the other end forwards frames to
// the hub.
type progressPublisher struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewProgressPublisher(pubSub *gochannel.GoChannel, topic string) events.ProgressNotifier {
	return &progressPublisher{
		pubSub: pubSub,
		topic:  topic,
	}
}

func (p *progressPublisher) Notify(ctx context.Context, event events.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topic, msg)
}
