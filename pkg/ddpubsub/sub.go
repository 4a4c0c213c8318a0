package ddpubsub

import (
	"context"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/acklabel"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/subscriptions"
)

// DistributedSub is the public handle returned by StartDistributedSub. Its
// methods are the idiomatic-Go rendition of the original "Future<Done>"
// API: each call blocks on a round trip through the owning mailbox (or,
// for DeclareAckLabels, through the ack-label registry) and respects
// ctx cancellation.
type DistributedSub[T any] struct {
	self       NodeID
	mailbox    mailbox
	registry   *subscriptions.Registry[T]
	subscriber *Subscriber[T]
	ackReg     *acklabel.Registry
	sup        *supervisor

	lastExported map[Topic]struct{}
}

// Wait blocks until every supervised child task (the mailbox loop, the bus
// inbox listener, the update loop, the ack-label reconciliation listener)
// has observed the ctx passed to StartDistributedSub and returned. Call it
// after cancelling that ctx to drain the supervision tree before the
// process exits.
func (d *DistributedSub[T]) Wait() error {
	return d.sup.Wait()
}

// updateSnapshot is what the Update Loop pulls out of the owning mailbox
// each tick: a consistent reader plus the topic diff against the last
// exported set.
type updateSnapshot[T any] struct {
	reader  *subscriptions.Reader[T]
	current map[Topic]struct{}
	added   []Topic
	removed []Topic
}

func newDistributedSub[T any](self NodeID, subscriber *Subscriber[T], ackReg *acklabel.Registry) *DistributedSub[T] {
	d := &DistributedSub[T]{
		self:         self,
		mailbox:      newMailbox(),
		subscriber:   subscriber,
		ackReg:       ackReg,
		lastExported: make(map[Topic]struct{}),
	}
	d.registry = subscriptions.NewRegistry[T](func(id HandlerID) {
		d.mailbox.tell(func() { d.registry.RemoveSubscriber(id) })
	})
	return d
}

func (d *DistributedSub[T]) run(ctx context.Context) error {
	d.mailbox.run(ctx)
	return nil
}

// Subscribe adds handle to every topic in topics.
func (d *DistributedSub[T]) Subscribe(ctx context.Context, handle SubscriberHandle[T], topics []Topic) error {
	return ask(ctx, d.mailbox, func() error {
		d.registry.Subscribe(handle, topics)
		return nil
	})
}

// Unsubscribe removes id from the listed topics.
func (d *DistributedSub[T]) Unsubscribe(ctx context.Context, id HandlerID, topics []Topic) error {
	return ask(ctx, d.mailbox, func() error {
		d.registry.Unsubscribe(id, topics)
		return nil
	})
}

// RemoveSubscriber removes id from every topic.
func (d *DistributedSub[T]) RemoveSubscriber(ctx context.Context, id HandlerID) error {
	return ask(ctx, d.mailbox, func() error {
		d.registry.RemoveSubscriber(id)
		return nil
	})
}

// DeclareAckLabels attempts to declare every label for this node,
// returning a *acklabel.LabelConflict if any label is already owned
// elsewhere.
func (d *DistributedSub[T]) DeclareAckLabels(ctx context.Context, labels ...string) error {
	return d.ackReg.Declare(ctx, labels...)
}

// snapshotForUpdate computes, inside the owning mailbox, the diff the
// Update Loop needs for its tick.
func (d *DistributedSub[T]) snapshotForUpdate(ctx context.Context) (updateSnapshot[T], error) {
	return askValue(ctx, d.mailbox, func() updateSnapshot[T] {
		current := d.registry.Topics()
		added, removed := subscriptions.DiffSince(d.registry, d.lastExported)
		return updateSnapshot[T]{
			reader:  d.registry.Snapshot(),
			current: current,
			added:   added,
			removed: removed,
		}
	})
}

// commitUpdate runs inside the owning mailbox: on a successful ddata
// write the Update Loop advances lastExported and hands the Subscriber
// its new reader; on failure lastExported is left untouched so the next
// tick recomputes the same diff.
func (d *DistributedSub[T]) commitUpdate(ctx context.Context, newExported map[Topic]struct{}, reader *subscriptions.Reader[T]) error {
	return ask(ctx, d.mailbox, func() error {
		d.lastExported = newExported
		d.subscriber.SwapReader(reader)
		return nil
	})
}
