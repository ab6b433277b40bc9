package servicebus

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"
)

// EventPublisher pushes settled publish records to an Azure Service Bus
// queue. Authentication uses the ambient Azure credential chain.
type EventPublisher struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
}

func NewEventPublisher(namespace, queue string) (*EventPublisher, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	client, err := azservicebus.NewClient(namespace, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("servicebus client: %w", err)
	}
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		return nil, fmt.Errorf("servicebus sender: %w", err)
	}
	return &EventPublisher{client: client, sender: sender}, nil
}

var _ repository.IEventNotifier = (*EventPublisher)(nil)

func (p *EventPublisher) Notify(ctx context.Context, payload []byte) error {
	msg := &azservicebus.Message{Body: payload}
	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("servicebus send: %w", err)
	}
	logger.GetLogger().Debug("publish event sent to service bus")
	return nil
}

func (p *EventPublisher) Close(ctx context.Context) error {
	if err := p.sender.Close(ctx); err != nil {
		return err
	}
	return p.client.Close(ctx)
}
