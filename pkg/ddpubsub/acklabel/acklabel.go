// Package acklabel implements the secondary replicated map of declared
// acknowledgement labels, used to locate the node owning a label and to
// resolve concurrent declarations by lexicographic NodeId precedence.
package acklabel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

// LabelConflict is returned by Declare when a label is already owned by
// another node at the time of declaration.
type LabelConflict struct {
	Label string
}

func (e *LabelConflict) Error() string {
	return fmt.Sprintf("acklabel: label %q already declared by another node", e.Label)
}

// Registry implements the ack-label declare/release/ownerOf pipeline on
// top of a LiteralStore.
type Registry struct {
	self  ddata.NodeID
	store ddata.LiteralStore

	mu      sync.Mutex
	builder *indel.Builder[string]
}

// NewRegistry returns a Registry for self backed by store.
func NewRegistry(self ddata.NodeID, store ddata.LiteralStore) *Registry {
	return &Registry{
		self:    self,
		store:   store,
		builder: indel.NewBuilder[string](),
	}
}

// Declare attempts to insert every label in labels into self's entry. If
// any label is already owned by a different node, the whole declaration
// fails with a *LabelConflict and nothing is written.
func (r *Registry) Declare(ctx context.Context, labels ...string) error {
	snapshot, err := r.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("declare: %w", err)
	}
	for _, label := range labels {
		for node, owned := range snapshot {
			if node == r.self {
				continue
			}
			if _, taken := owned[label]; taken {
				return &LabelConflict{Label: label}
			}
		}
	}

	r.mu.Lock()
	for _, label := range labels {
		r.builder.Insert(label)
	}
	update := r.builder.ExportAndReset()
	r.mu.Unlock()

	if err := r.store.Write(ctx, r.self, update, ddata.All); err != nil {
		return fmt.Errorf("declare: %w", err)
	}
	return nil
}

// Release removes labels from self's entry.
func (r *Registry) Release(ctx context.Context, labels ...string) error {
	r.mu.Lock()
	for _, label := range labels {
		r.builder.Delete(label)
	}
	update := r.builder.ExportAndReset()
	r.mu.Unlock()

	if err := r.store.Write(ctx, r.self, update, ddata.All); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// OwnerOf returns the NodeID currently advertising label, and whether any
// node advertises it.
func (r *Registry) OwnerOf(ctx context.Context, label string) (ddata.NodeID, bool, error) {
	snapshot, err := r.store.Read(ctx)
	if err != nil {
		return "", false, fmt.Errorf("ownerOf: %w", err)
	}
	for node, owned := range snapshot {
		if _, ok := owned[label]; ok {
			return node, true, nil
		}
	}
	return "", false, nil
}

// Reconcile scans the current snapshot for labels held by more than one
// node and, for each, releases the label locally unless self is the
// lexicographically smallest owner. It is meant to be invoked from a
// ddata.Store.SubscribeChanges listener.
func (r *Registry) Reconcile(ctx context.Context) error {
	snapshot, err := r.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	ownersByLabel := make(map[string][]ddata.NodeID)
	for node, owned := range snapshot {
		for label := range owned {
			ownersByLabel[label] = append(ownersByLabel[label], node)
		}
	}

	var toRelease []string
	for label, owners := range ownersByLabel {
		if len(owners) < 2 {
			continue
		}
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
		survivor := owners[0]
		if survivor != r.self {
			if _, ownsLocally := snapshot[r.self][label]; ownsLocally {
				toRelease = append(toRelease, label)
			}
		}
	}

	if len(toRelease) == 0 {
		return nil
	}
	return r.Release(ctx, toRelease...)
}
