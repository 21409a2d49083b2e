package queue

import (
	"context"

	"dinein-order-services/internal/settlement"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, payload any) error
}

// EventPublisher sends settlement events to the topic exchange, routed by
// event type.
type EventPublisher struct {
	client   jsonPublisher
	exchange string
}

func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client, exchange: EventsExchange}
}

func (p *EventPublisher) Publish(ctx context.Context, event settlement.Event) error {
	return p.client.PublishJSON(ctx, p.exchange, event.Type, event)
}
