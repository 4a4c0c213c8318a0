package ddpubsub

import (
	"context"
	"time"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/acklabel"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/hashfamily"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/transport"
)

// Deps bundles the shared infrastructure both StartDistributedPub and
// StartDistributedSub need: the cluster transport, the replicated ddata
// stores, the hash family every node must agree on, and where to send
// logs and metrics.
type Deps struct {
	Self           NodeID
	Bus            transport.Bus
	Compressed     ddata.CompressedStore
	Literal        ddata.LiteralStore
	Hashes         *hashfamily.Family
	Metrics        *metrics.Registry
	Logger         *logging.ColoredLogger
	RestartDelay   time.Duration
	UpdateInterval time.Duration
	ForceUpdateP   float64
}

// StartDistributedSub spawns the subscriber-side supervisor tree (the
// Subscriptions Registry's mailbox, the bus inbox listener, the Update
// Loop, and the ack-label reconciliation listener) and returns a handle
// exposing Subscribe/Unsubscribe/RemoveSubscriber/DeclareAckLabels.
// topicExtractor is supplied by the caller at factory time and is the
// only coupling point to the message type T.
func StartDistributedSub[T any](ctx context.Context, deps Deps, topicExtractor func(T) []Topic) (*DistributedSub[T], error) {
	subscriber := NewSubscriber[T](deps.Self, topicExtractor, deps.Metrics, deps.Logger)
	ackReg := acklabel.NewRegistry(deps.Self, deps.Literal)
	sub := newDistributedSub[T](deps.Self, subscriber, ackReg)

	sup := newSupervisor(deps.Logger, deps.RestartDelay)

	sup.Spawn(ctx, "subscriptions-mailbox", sub.run)

	sup.Spawn(ctx, "bus-inbox", func(ctx context.Context) error {
		cancel, err := deps.Bus.SubscribeInbox(ctx, string(deps.Self), subscriber.HandleEnvelope)
		if err != nil {
			return err
		}
		<-ctx.Done()
		cancel()
		return nil
	})

	loop := NewUpdateLoop[T](deps.Self, sub, deps.Hashes, deps.Compressed, deps.UpdateInterval, deps.ForceUpdateP, deps.Metrics, deps.Logger)
	sup.Spawn(ctx, "update-loop", loop.Run)

	sup.Spawn(ctx, "acklabel-reconcile", func(ctx context.Context) error {
		cancel := deps.Literal.SubscribeChanges(func(NodeID) {
			_ = ackReg.Reconcile(ctx)
		})
		<-ctx.Done()
		cancel()
		return nil
	})

	sub.sup = sup
	return sub, nil
}

// StartDistributedPub builds a Publisher wired to sub's local Subscriber
// for the in-process delivery short-circuit described in the spec's
// publish edge cases: when self is itself a candidate destination,
// delivery skips the bus round trip but keeps identical filtering and
// counting semantics.
func StartDistributedPub[T any](deps Deps, topicExtractor func(T) []Topic, sub *DistributedSub[T]) *DistributedPub[T] {
	publisher := NewPublisher[T](deps.Self, topicExtractor, deps.Hashes, deps.Compressed, deps.Bus, sub.subscriber, deps.Metrics, deps.Logger)
	return &DistributedPub[T]{publisher: publisher}
}
