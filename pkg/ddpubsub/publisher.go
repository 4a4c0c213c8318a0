package ddpubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/hashfamily"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/transport"
)

// Publisher resolves a message to candidate destination nodes via the
// Compressed DData replica and forwards it to each one's inbox.
type Publisher[T any] struct {
	self           NodeID
	topicExtractor func(T) []Topic
	hashes         *hashfamily.Family
	compressed     ddata.CompressedStore
	bus            transport.Bus
	local          *Subscriber[T]
	metrics        *metrics.Registry
	logger         *logging.ColoredLogger
}

// NewPublisher builds a Publisher. local is the node's own Subscriber,
// used to short-circuit delivery when self is itself a candidate.
func NewPublisher[T any](
	self NodeID,
	topicExtractor func(T) []Topic,
	hashes *hashfamily.Family,
	compressed ddata.CompressedStore,
	bus transport.Bus,
	local *Subscriber[T],
	m *metrics.Registry,
	logger *logging.ColoredLogger,
) *Publisher[T] {
	return &Publisher[T]{
		self:           self,
		topicExtractor: topicExtractor,
		hashes:         hashes,
		compressed:     compressed,
		bus:            bus,
		local:          local,
		metrics:        m,
		logger:         logger,
	}
}

// Publish computes the candidate node set for msg and forwards it once
// to each candidate. Publish does not await delivery acknowledgement; it
// returns as soon as the forward attempts have been issued.
func (p *Publisher[T]) Publish(ctx context.Context, msg T) error {
	topics := p.topicExtractor(msg)
	if len(topics) == 0 {
		return nil
	}

	replicas, err := p.compressed.Read(ctx)
	if err != nil {
		p.logger.ComponentWarn(logging.ComponentPublisher, "failed to read compressed ddata, dropping publish", zap.Error(err))
		p.metrics.RecordPublish(string(p.self), false)
		return nil
	}

	wanted := make(map[uint32]struct{})
	for _, t := range topics {
		for _, h := range p.hashes.Hashes(string(t)) {
			wanted[h] = struct{}{}
		}
	}

	candidates := candidateNodes(replicas, wanted)
	if len(candidates) == 0 {
		p.metrics.RecordPublish(string(p.self), false)
		return nil
	}

	env := envelope[T]{Topics: topics, Payload: msg}
	var data []byte
	for _, node := range candidates {
		if node == p.self {
			p.local.DeliverLocal(topics, msg)
			continue
		}
		if data == nil {
			data, err = json.Marshal(env)
			if err != nil {
				return fmt.Errorf("marshal envelope: %w", err)
			}
		}
		if err := p.bus.Publish(ctx, string(node), data); err != nil {
			p.logger.ComponentWarn(logging.ComponentPublisher, "forward failed", zap.String("node", string(node)), zap.Error(err))
		}
	}

	p.metrics.RecordPublish(string(p.self), true)
	return nil
}

// candidateNodes returns every node whose advertised hash set intersects
// wanted. A node may be included due to a hash collision; the
// destination Subscriber is responsible for filtering false positives.
func candidateNodes(replicas map[NodeID]map[uint32]struct{}, wanted map[uint32]struct{}) []NodeID {
	var out []NodeID
	for node, hashes := range replicas {
		for h := range wanted {
			if _, ok := hashes[h]; ok {
				out = append(out, node)
				break
			}
		}
	}
	return out
}
