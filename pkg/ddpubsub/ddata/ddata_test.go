package ddata

import (
	"context"
	"testing"
	"time"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

func TestMemStoreWriteThenRead(t *testing.T) {
	store := NewMemStore[uint32]()
	ctx := context.Background()

	b := indel.NewBuilder[uint32]()
	b.Insert(1)
	b.Insert(2)
	if err := store.Write(ctx, NodeID("n1"), b.ExportAndReset(), Local); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got["n1"]) != 2 {
		t.Fatalf("expected 2 entries for n1, got %v", got["n1"])
	}
}

func TestMemStoreDeltaThenDelete(t *testing.T) {
	store := NewMemStore[uint32]()
	ctx := context.Background()

	b := indel.NewBuilder[uint32]()
	b.Insert(1)
	b.Insert(2)
	_ = store.Write(ctx, NodeID("n1"), b.ExportAndReset(), Local)

	b2 := indel.NewBuilder[uint32]()
	b2.Delete(1)
	_ = store.Write(ctx, NodeID("n1"), b2.ExportAndReset(), Local)

	got, _ := store.Read(ctx)
	if _, ok := got["n1"][1]; ok {
		t.Fatal("expected 1 to be deleted")
	}
	if _, ok := got["n1"][2]; !ok {
		t.Fatal("expected 2 to still be present")
	}
}

func TestMemStoreReplaceAllDiscardsOldState(t *testing.T) {
	store := NewMemStore[uint32]()
	ctx := context.Background()

	b := indel.NewBuilder[uint32]()
	b.Insert(1)
	_ = store.Write(ctx, NodeID("n1"), b.ExportAndReset(), Local)

	b2 := indel.NewBuilder[uint32]()
	b2.ReplaceAll(map[uint32]struct{}{2: {}})
	_ = store.Write(ctx, NodeID("n1"), b2.ExportAndReset(), All)

	got, _ := store.Read(ctx)
	if len(got["n1"]) != 1 {
		t.Fatalf("expected exactly one entry after replace, got %v", got["n1"])
	}
	if _, ok := got["n1"][2]; !ok {
		t.Fatal("expected 2 to be present after replace")
	}
}

func TestMemStoreSubscribeChangesNotifiesOnWrite(t *testing.T) {
	store := NewMemStore[uint32]()
	notified := make(chan NodeID, 1)
	cancel := store.SubscribeChanges(func(n NodeID) { notified <- n })
	defer cancel()

	b := indel.NewBuilder[uint32]()
	b.Insert(1)
	_ = store.Write(context.Background(), NodeID("n1"), b.ExportAndReset(), Local)

	select {
	case n := <-notified:
		if n != "n1" {
			t.Fatalf("unexpected node notified: %s", n)
		}
	case <-time.After(time.Second):
		t.Fatal("change listener not invoked")
	}
}

func TestSnapshotApplyReplaceAll(t *testing.T) {
	snap := indel.Snapshot[uint32]{Inserts: []uint32{5}, ReplaceAll: true}
	base := map[uint32]struct{}{1: {}, 2: {}}
	got := snap.Apply(base)
	if len(got) != 1 {
		t.Fatalf("expected single entry, got %v", got)
	}
}
