package repository

import "context"

// IEventNotifier receives completed publish records as JSON payloads.
// Notification is fire-and-forget; failures are logged, never surfaced
// to the publishing caller.
type IEventNotifier interface {
	Notify(ctx context.Context, payload []byte) error
}
