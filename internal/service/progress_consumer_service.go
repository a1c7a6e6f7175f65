package service

import (
	"context"
	"encoding/json"
	"log"

	"docuchat-be/internal/websocket"
	"docuchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IProgressConsumerService interface {
	Consume(ctx context.Context) error
}

// progressConsumerService bridges the in-process progress bus to the
// websocket hub: every frame published by the index manager or the
// conversation orchestrator is forwarded to the addressed user's
// connections in order.
type progressConsumerService struct {
	pubSub *gochannel.GoChannel
	topic  string
	hub    *websocket.Hub
}

func NewProgressConsumerService(pubSub *gochannel.GoChannel, topic string, hub *websocket.Hub) IProgressConsumerService {
	return &progressConsumerService{
		pubSub: pubSub,
		topic:  topic,
		hub:    hub,
	}
}

func (cs *progressConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *progressConsumerService) processMessage(msg *message.Message) {
	var event events.ProgressEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Printf("[ERROR] Failed to unmarshal progress frame: %v", err)
		msg.Ack() // never retry a malformed frame
		return
	}

	data := interface{}(event.Message)
	if event.Data != nil {
		data = event.Data
	}

	cs.hub.SendEvent(event.UserId, websocket.Event{
		Type: string(event.Kind),
		Data: data,
	})

	msg.Ack()
}
