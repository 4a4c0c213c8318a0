package ddpubsub

import "context"

// DistributedPub is the public handle returned by StartDistributedPub.
type DistributedPub[T any] struct {
	publisher *Publisher[T]
}

// Publish resolves msg's topics to candidate nodes and forwards it.
// Publish does not await delivery acknowledgement and returns as soon as
// the forward attempts have been issued; replication and delivery
// failures are handled internally per the error-handling policy (they
// are logged and swallowed, as is a replica read cut short by ctx
// cancellation), so a non-nil error here only ever reflects an encoding
// failure on the caller's message type.
func (p *DistributedPub[T]) Publish(ctx context.Context, msg T) error {
	return p.publisher.Publish(ctx, msg)
}
