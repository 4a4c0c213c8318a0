package ddpubsub

import (
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/subscriptions"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
)

// Subscriber receives forwarded envelopes, consults the current
// SubscriptionsReader, and dispatches to true local subscribers while
// counting false positives from hash collisions.
type Subscriber[T any] struct {
	self           NodeID
	topicExtractor func(T) []Topic
	reader         atomic.Pointer[subscriptions.Reader[T]]
	metrics        *metrics.Registry
	logger         *logging.ColoredLogger
}

// NewSubscriber returns a Subscriber with an empty initial reader.
func NewSubscriber[T any](self NodeID, topicExtractor func(T) []Topic, m *metrics.Registry, logger *logging.ColoredLogger) *Subscriber[T] {
	s := &Subscriber[T]{self: self, topicExtractor: topicExtractor, metrics: m, logger: logger}
	s.reader.Store(subscriptions.NewRegistry[T](nil).Snapshot())
	return s
}

// SwapReader atomically replaces the reader used to filter incoming
// envelopes. Swaps are observed in the order the Update Loop emits them
// because atomic.Pointer provides a single coherent writer view.
func (s *Subscriber[T]) SwapReader(r *subscriptions.Reader[T]) {
	s.reader.Store(r)
}

// HandleEnvelope decodes a forwarded envelope and delivers it to every
// matching local subscriber, exactly mirroring the original
// Subscriber.broadcastToLocalSubscribers logic: an empty match set
// increments the false-positive counter, a non-empty one increments the
// true-positive counter and delivers once per handle.
func (s *Subscriber[T]) HandleEnvelope(data []byte) {
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.ComponentWarn(logging.ComponentSubscriber, "failed to decode envelope", zap.Error(err))
		return
	}

	reader := s.reader.Load()
	matches := reader.SubscribersFor(env.Topics)
	if len(matches) == 0 {
		s.metrics.RecordFalsePositive(string(s.self))
		return
	}

	s.metrics.RecordTruePositive(string(s.self))
	for _, h := range matches {
		h.Deliver(env.Payload)
	}
}

// DeliverLocal is the in-process short-circuit a Publisher takes when
// the local node is itself a candidate destination, skipping the bus
// round trip but keeping the same filtering and counting semantics.
func (s *Subscriber[T]) DeliverLocal(topics []Topic, payload T) {
	reader := s.reader.Load()
	matches := reader.SubscribersFor(topics)
	if len(matches) == 0 {
		s.metrics.RecordFalsePositive(string(s.self))
		return
	}
	s.metrics.RecordTruePositive(string(s.self))
	for _, h := range matches {
		h.Deliver(payload)
	}
}
