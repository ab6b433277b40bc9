package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"

	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"
)

// EventPublisher pushes settled publish records to a Pub/Sub topic so
// downstream consumers (analytics, webhooks) see every outcome.
type EventPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewEventPublisher(ctx context.Context, projectID, topicID string) (*EventPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &EventPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

var _ repository.IEventNotifier = (*EventPublisher)(nil)

func (p *EventPublisher) Notify(ctx context.Context, payload []byte) error {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	logger.GetLogger().WithField("message_id", id).Debug("publish event sent to pubsub")
	return nil
}

func (p *EventPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
