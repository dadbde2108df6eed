package processing

import "context"

// Sender delivers one message to the processing backend, synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
