package domain

import "context"

// Channel is a chat-platform adapter. Start blocks until ctx is cancelled,
// publishing inbound messages to the bus and registering an outbound handler.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
}
