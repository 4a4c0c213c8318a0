package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus delivers envelopes synchronously between in-process nodes
// without a real libp2p host, so Publisher/Subscriber tests don't need
// to spin up real network transport the way manager_test.go does.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]map[string]Handler)}
}

func (b *MemoryBus) Publish(ctx context.Context, node string, envelope []byte) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[node]))
	for _, h := range b.handlers[node] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(envelope)
	}
	return nil
}

func (b *MemoryBus) SubscribeInbox(ctx context.Context, node string, handler Handler) (func(), error) {
	b.mu.Lock()
	if b.handlers[node] == nil {
		b.handlers[node] = make(map[string]Handler)
	}
	id := uuid.NewString()
	b.handlers[node][id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers[node], id)
		if len(b.handlers[node]) == 0 {
			delete(b.handlers, node)
		}
		b.mu.Unlock()
	}, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]map[string]Handler)
	return nil
}
