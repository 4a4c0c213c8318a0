package ddata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	olriclib "github.com/olric-data/olric"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

// entry is the JSON-encoded value stored under each NodeID key. generation
// is a per-node counter incremented on every Write; confirmWritten polls
// for it to detect that a Majority/All write is readable. Writes are not
// compared by generation: each Put overwrites the key.
type entry[V comparable] struct {
	Generation uint64 `json:"generation"`
	Values     []V    `json:"values"`
}

// OlricDMap is the subset of an olric.DMap that olricStore depends on,
// narrowed so tests can substitute a fake without a live cluster.
type OlricDMap interface {
	Put(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) (GetResponse, error)
	Delete(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, options ...olriclib.ScanOption) (olriclib.Iterator, error)
}

// GetResponse narrows olric.GetResponse to the Scan method olricStore uses.
type GetResponse interface {
	Scan(dest interface{}) error
}

// olricDMapAdapter adapts a real *olric.DMap (via the Client wrapper) to
// OlricDMap, since olric.GetResponse.Scan has a concrete pointer receiver
// that already satisfies GetResponse structurally.
type olricDMapAdapter struct {
	dm olriclib.DMap
}

func (a olricDMapAdapter) Put(ctx context.Context, key string, value interface{}) error {
	return a.dm.Put(ctx, key, value)
}

func (a olricDMapAdapter) Get(ctx context.Context, key string) (GetResponse, error) {
	return a.dm.Get(ctx, key)
}

func (a olricDMapAdapter) Delete(ctx context.Context, keys ...string) (int, error) {
	return a.dm.Delete(ctx, keys...)
}

func (a olricDMapAdapter) Scan(ctx context.Context, options ...olriclib.ScanOption) (olriclib.Iterator, error) {
	return a.dm.Scan(ctx, options...)
}

// olricStore is the Store implementation backing both the compressed and
// literal DData maps, one olric.DMap per store and one key per owning
// NodeID.
type olricStore[V comparable] struct {
	dmap         OlricDMap
	writeTimeout time.Duration

	pollInterval time.Duration
	mu           sync.Mutex
	changes      map[int]func(NodeID)
	nextChangeID int
	stopPolling  chan struct{}
	polling      bool
}

// NewOlricStore wraps an olric client's DMap (dmapName, e.g. "ddpubsub-compressed"
// or "ddpubsub-literal") as a Store[V].
func NewOlricStore[V comparable](client olriclib.Client, dmapName string, writeTimeout time.Duration) (Store[V], error) {
	dm, err := client.NewDMap(dmapName)
	if err != nil {
		return nil, fmt.Errorf("new dmap %s: %w", dmapName, err)
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	s := &olricStore[V]{
		dmap:         olricDMapAdapter{dm: dm},
		writeTimeout: writeTimeout,
		pollInterval: time.Second,
		changes:      make(map[int]func(NodeID)),
		stopPolling:  make(chan struct{}),
	}
	return s, nil
}

func (s *olricStore[V]) Write(ctx context.Context, self NodeID, update indel.Snapshot[V], consistency WriteConsistency) error {
	current, err := s.readOne(ctx, self)
	if err != nil && err != olriclib.ErrKeyNotFound {
		return fmt.Errorf("%w: %v", ErrClusterUnreachable, err)
	}

	base := make(map[V]struct{}, len(current.Values))
	for _, v := range current.Values {
		base[v] = struct{}{}
	}
	next := update.Apply(base)

	e := entry[V]{
		Generation: current.Generation + 1,
		Values:     setToSlice(next),
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.dmap.Put(writeCtx, string(self), e); err != nil {
		return fmt.Errorf("%w: %v", ErrClusterUnreachable, err)
	}

	if consistency == Local {
		return nil
	}
	return s.confirmWritten(ctx, self, e.Generation)
}

// confirmWritten polls Get until the just-written generation is locally
// readable, modeling Majority/All as write-then-confirm rather than a
// true quorum handshake the retrieved client surface cannot express.
func (s *olricStore[V]) confirmWritten(ctx context.Context, self NodeID, generation uint64) error {
	deadline := time.Now().Add(s.writeTimeout)
	for {
		got, err := s.readOne(ctx, self)
		if err == nil && got.Generation >= generation {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrReplicationTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (s *olricStore[V]) readOne(ctx context.Context, node NodeID) (entry[V], error) {
	resp, err := s.dmap.Get(ctx, string(node))
	if err != nil {
		return entry[V]{}, err
	}
	var e entry[V]
	if err := resp.Scan(&e); err != nil {
		return entry[V]{}, fmt.Errorf("decode entry for %s: %w", node, err)
	}
	return e, nil
}

func (s *olricStore[V]) Read(ctx context.Context) (map[NodeID]map[V]struct{}, error) {
	iter, err := s.dmap.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClusterUnreachable, err)
	}
	defer iter.Close()

	out := make(map[NodeID]map[V]struct{})
	for iter.Next() {
		key := iter.Key()
		e, err := s.readOne(ctx, NodeID(key))
		if err != nil {
			continue
		}
		set := make(map[V]struct{}, len(e.Values))
		for _, v := range e.Values {
			set[v] = struct{}{}
		}
		out[NodeID(key)] = set
	}
	return out, nil
}

// SubscribeChanges polls Read on a fixed interval and diffs against the
// last-seen snapshot per NodeID, since the retrieved olric client surface
// exposes no native change-watch primitive.
func (s *olricStore[V]) SubscribeChanges(listener func(NodeID)) (cancel func()) {
	s.mu.Lock()
	id := s.nextChangeID
	s.nextChangeID++
	s.changes[id] = listener
	startPolling := !s.polling
	s.polling = true
	s.mu.Unlock()

	if startPolling {
		go s.pollLoop()
	}

	return func() {
		s.mu.Lock()
		delete(s.changes, id)
		s.mu.Unlock()
	}
}

func (s *olricStore[V]) pollLoop() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	last := make(map[NodeID]string)
	for {
		select {
		case <-s.stopPolling:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
			current, err := s.Read(ctx)
			cancel()
			if err != nil {
				continue
			}
			fingerprint := make(map[NodeID]string, len(current))
			for node, set := range current {
				fingerprint[node] = fingerprintOf(set)
			}
			for node, fp := range fingerprint {
				if last[node] != fp {
					s.notify(node)
				}
			}
			for node := range last {
				if _, ok := fingerprint[node]; !ok {
					s.notify(node)
				}
			}
			last = fingerprint
		}
	}
}

func (s *olricStore[V]) notify(node NodeID) {
	s.mu.Lock()
	listeners := make([]func(NodeID), 0, len(s.changes))
	for _, listener := range s.changes {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()
	for _, listener := range listeners {
		listener(node)
	}
}

func (s *olricStore[V]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		close(s.stopPolling)
		s.polling = false
	}
	return nil
}

func fingerprintOf[V comparable](set map[V]struct{}) string {
	parts := make([]string, 0, len(set))
	for v := range set {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	sort.Strings(parts)
	b, _ := json.Marshal(parts)
	return string(b)
}

func setToSlice[V comparable](set map[V]struct{}) []V {
	out := make([]V, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
