package ddpubsub

import (
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/subscriptions"
)

// Topic identifies a publication channel.
type Topic = subscriptions.Topic

// NodeID is the cluster-unique identifier of a pub-sub participant.
type NodeID = ddata.NodeID

// HandlerID uniquely identifies a SubscriberHandle within one node.
type HandlerID = subscriptions.HandlerID

// SubscriberHandle is an opaque addressable reference to a local
// consumer of messages of type T.
type SubscriberHandle[T any] = subscriptions.SubscriberHandle[T]

// envelope is the wire shape forwarded between a Publisher and a
// destination node's Subscriber.
type envelope[T any] struct {
	Topics  []Topic `json:"topics"`
	Payload T       `json:"payload"`
}
