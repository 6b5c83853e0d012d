package pubsub

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Handler consumes an encoded event, the way a push subscription would.
type Handler func(ctx context.Context, topic EventType, data []byte) error

// local stands in for Pub/Sub when no GCP project is configured. Events are
// encoded like the real client and handed to an in-process handler, or
// logged and dropped when there is none.
type local struct {
	handler Handler
}

// NewLocal returns a PubSubClient that delivers to h in-process. h may be nil.
func NewLocal(h Handler) PubSubClient {
	return &local{handler: h}
}

func (l *local) SendMessage(ctx context.Context, topic EventType, data any) error {
	encoded, err := msgpack.Marshal(data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}
	if l.handler == nil {
		log.Info("Pub/Sub disabled, dropping event", "topic", topic, "bytes", len(encoded))
		return nil
	}
	// Delivery failures belong to the subscriber, the publish itself succeeded.
	if err := l.handler(ctx, topic, encoded); err != nil {
		log.Error("Local event delivery failed", "topic", topic, "error", err)
	}
	return nil
}

func (l *local) ProcessMessage(data []byte, returnValue any) error {
	return decode(data, returnValue)
}

func (l *local) Close() error {
	return nil
}
