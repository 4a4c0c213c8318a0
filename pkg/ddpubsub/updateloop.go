package ddpubsub

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/hashfamily"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
)

// UpdateLoop is the timer-driven task that flushes the local
// Subscriptions Registry into the Compressed DData replica every
// interval, flipping to a full resync with probability forceProb or
// whenever the previous write failed.
type UpdateLoop[T any] struct {
	self      NodeID
	sub       *DistributedSub[T]
	hashes    *hashfamily.Family
	store     ddata.CompressedStore
	interval  time.Duration
	forceProb float64
	metrics   *metrics.Registry
	logger    *logging.ColoredLogger

	// oldHashes is the hash image of this node's last successfully
	// written advertisement. Deletes are always computed as
	// oldHashes \ newHashes after recomputing the full hash image of
	// the current topic set, never as a hash-level diff of only the
	// added/removed topics, so a collision can never strip a hash a
	// live topic still needs.
	oldHashes       map[uint32]struct{}
	lastWriteFailed bool
}

// NewUpdateLoop builds an UpdateLoop. sub is the DistributedSub instance
// whose registry this loop flushes and whose Subscriber it updates.
func NewUpdateLoop[T any](
	self NodeID,
	sub *DistributedSub[T],
	hashes *hashfamily.Family,
	store ddata.CompressedStore,
	interval time.Duration,
	forceProb float64,
	m *metrics.Registry,
	logger *logging.ColoredLogger,
) *UpdateLoop[T] {
	return &UpdateLoop[T]{
		self:      self,
		sub:       sub,
		hashes:    hashes,
		store:     store,
		interval:  interval,
		forceProb: forceProb,
		metrics:   m,
		logger:    logger,
		oldHashes: make(map[uint32]struct{}),
	}
}

// Run drives tick on a fixed-period ticker until ctx is cancelled. A
// missed tick is never queued: the ticker is fixed-period, per the
// concurrency model's cancellation rules.
func (u *UpdateLoop[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.tick(ctx)
		}
	}
}

func (u *UpdateLoop[T]) tick(ctx context.Context) {
	snap, err := u.sub.snapshotForUpdate(ctx)
	if err != nil {
		return
	}

	newHashes := make(map[uint32]struct{})
	for t := range snap.current {
		for _, h := range u.hashes.Hashes(string(t)) {
			newHashes[h] = struct{}{}
		}
	}

	force := u.lastWriteFailed || rand.Float64() < u.forceProb

	var update indel.Snapshot[uint32]
	consistency := ddata.Local
	if force {
		update = indel.Snapshot[uint32]{ReplaceAll: true, Inserts: hashSliceOf(newHashes)}
		consistency = ddata.All
	} else {
		inserts := setDifference(newHashes, u.oldHashes)
		deletes := setDifference(u.oldHashes, newHashes)
		update = indel.Snapshot[uint32]{Inserts: inserts, Deletes: deletes}
	}

	writeCtx, cancel := context.WithTimeout(ctx, u.interval)
	err = u.store.Write(writeCtx, u.self, update, consistency)
	cancel()

	u.metrics.RecordWrite(string(u.self), string(consistency))
	if err != nil {
		u.lastWriteFailed = true
		u.metrics.RecordWriteFailure(string(u.self), failureKind(err))
		u.logger.ComponentWarn(logging.ComponentUpdateLoop, "ddata write failed, retrying next tick", zap.Error(err))
		return
	}

	u.lastWriteFailed = false
	u.oldHashes = newHashes

	if err := u.sub.commitUpdate(ctx, snap.current, snap.reader); err != nil {
		u.logger.ComponentWarn(logging.ComponentUpdateLoop, "failed to commit update to subscriber", zap.Error(err))
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ddata.ErrReplicationTimeout):
		return "timeout"
	case errors.Is(err, ddata.ErrClusterUnreachable):
		return "unreachable"
	default:
		return "other"
	}
}

func hashSliceOf(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

func setDifference(a, b map[uint32]struct{}) []uint32 {
	var out []uint32
	for h := range a {
		if _, ok := b[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
