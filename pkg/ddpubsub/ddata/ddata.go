// Package ddata implements the replicated map from node identity to a
// set of values (32-bit topic hashes, or literal ack-label strings) that
// backs the cluster-wide pub-sub advertisement scheme.
package ddata

import (
	"context"
	"errors"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

// NodeID is the cluster-unique identifier of a pub-sub participant.
type NodeID string

// WriteConsistency controls how aggressively Write confirms replication
// before returning.
type WriteConsistency string

const (
	Local    WriteConsistency = "local"
	Majority WriteConsistency = "majority"
	All      WriteConsistency = "all"
)

// ErrReplicationTimeout indicates a write did not reach the requested
// consistency within its deadline. Callers are expected to swallow this
// and retry on the next tick rather than surface it further.
var ErrReplicationTimeout = errors.New("ddata: replication timeout")

// ErrClusterUnreachable indicates the replication subsystem reports no
// reachable peers.
var ErrClusterUnreachable = errors.New("ddata: cluster unreachable")

// Store is the common interface for both the compressed (uint32) and
// literal (string) replicated maps.
type Store[V comparable] interface {
	// Write applies update to self's entry at the given consistency.
	Write(ctx context.Context, self NodeID, update indel.Snapshot[V], consistency WriteConsistency) error
	// Read returns the latest locally observed replica state for every
	// node with a live entry.
	Read(ctx context.Context) (map[NodeID]map[V]struct{}, error)
	// SubscribeChanges registers listener to be called with the NodeID of
	// any entry that changes. The returned cancel function stops delivery.
	SubscribeChanges(listener func(NodeID)) (cancel func())
	Close(ctx context.Context) error
}

// CompressedStore backs the Compressed DData map: NodeID -> set of
// 32-bit topic-hash fingerprints.
type CompressedStore = Store[uint32]

// LiteralStore backs the Literal DData map: NodeID -> set of literal
// strings, used for declared acknowledgement labels.
type LiteralStore = Store[string]
