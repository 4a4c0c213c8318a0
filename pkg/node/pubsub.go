package node

import (
	"context"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub"
)

// StartPubSub brings up a DistributedSub/DistributedPub pair of message
// type T on top of n's shared infrastructure. topicExtractor is the only
// coupling point between the generic subsystem and the caller's message
// type.
func StartPubSub[T any](ctx context.Context, n *Node, topicExtractor func(T) []ddpubsub.Topic) (*ddpubsub.DistributedSub[T], *ddpubsub.DistributedPub[T], error) {
	deps := ddpubsub.Deps{
		Self:           ddpubsub.NodeID(n.ID()),
		Bus:            n.bus,
		Compressed:     n.Compressed,
		Literal:        n.Literal,
		Hashes:         n.Hashes,
		Metrics:        n.Metrics,
		Logger:         n.logger,
		RestartDelay:   n.cfg.RestartDelay,
		UpdateInterval: n.cfg.UpdateInterval,
		ForceUpdateP:   n.cfg.ForceUpdateProbability,
	}

	sub, err := ddpubsub.StartDistributedSub[T](ctx, deps, topicExtractor)
	if err != nil {
		return nil, nil, err
	}
	pub := ddpubsub.StartDistributedPub[T](deps, topicExtractor, sub)
	return sub, pub, nil
}
