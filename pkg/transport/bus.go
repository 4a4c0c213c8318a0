// Package transport implements the cluster message bus the pub-sub
// subsystem forwards envelopes over: one topic per node inbox, adapted
// from the teacher's general-purpose pubsub.Manager.
package transport

import "context"

// Handler is invoked once per envelope delivered to a subscribed inbox.
// On LibP2PBus, handlers run on a per-inbox goroutine; a slow handler
// delays only its own inbox's fan-out, never other inboxes. MemoryBus
// runs handlers synchronously inside Publish.
type Handler func(envelope []byte)

// Bus is the interface Publisher and Subscriber code depends on, so
// tests can substitute an in-memory fake that delivers synchronously
// between in-process nodes without a real libp2p host.
type Bus interface {
	// Publish sends envelope to the inbox addressed to node.
	Publish(ctx context.Context, node string, envelope []byte) error
	// SubscribeInbox starts delivering envelopes addressed to node to
	// handler. The returned cancel function stops delivery.
	SubscribeInbox(ctx context.Context, node string, handler Handler) (cancel func(), err error)
	Close() error
}

// InboxTopic returns the bus-level topic name used for a node's private
// inbox.
func InboxTopic(node string) string {
	return "ddpubsub/inbox/" + node
}
