package ddata

import (
	"context"
	"sync"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

// MemStore is an in-process Store implementation backed by a plain map,
// used as a test double for components that depend on ddata.Store without
// exercising a real olric cluster — the ddata analogue of the transport
// package's in-memory fake Bus.
type MemStore[V comparable] struct {
	mu         sync.Mutex
	generation map[NodeID]uint64
	values     map[NodeID]map[V]struct{}
	changes    map[int]func(NodeID)
	nextID     int
}

// NewMemStore returns an empty MemStore.
func NewMemStore[V comparable]() *MemStore[V] {
	return &MemStore[V]{
		generation: make(map[NodeID]uint64),
		values:     make(map[NodeID]map[V]struct{}),
		changes:    make(map[int]func(NodeID)),
	}
}

func (m *MemStore[V]) Write(ctx context.Context, self NodeID, update indel.Snapshot[V], consistency WriteConsistency) error {
	m.mu.Lock()
	base := m.values[self]
	next := update.Apply(base)
	m.values[self] = next
	m.generation[self]++
	listeners := make([]func(NodeID), 0, len(m.changes))
	for _, l := range m.changes {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(self)
	}
	return nil
}

func (m *MemStore[V]) Read(ctx context.Context) (map[NodeID]map[V]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[NodeID]map[V]struct{}, len(m.values))
	for node, set := range m.values {
		copySet := make(map[V]struct{}, len(set))
		for v := range set {
			copySet[v] = struct{}{}
		}
		out[node] = copySet
	}
	return out, nil
}

func (m *MemStore[V]) SubscribeChanges(listener func(NodeID)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.changes[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.changes, id)
		m.mu.Unlock()
	}
}

func (m *MemStore[V]) Close(ctx context.Context) error { return nil }
