package eventbus

import "context"

// Bus distributes API lifecycle events to streaming subscribers.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
	// Subscribe returns a channel of payloads for topic and a function that
	// detaches and closes it.
	Subscribe(topic string, buffer int) (<-chan any, func(), error)
}
