package acklabel

import (
	"context"
	"errors"
	"testing"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/indel"
)

func TestDeclareSucceedsWhenUnowned(t *testing.T) {
	store := ddata.NewMemStore[string]()
	r := NewRegistry("n1", store)

	if err := r.Declare(context.Background(), "lbl"); err != nil {
		t.Fatalf("declare: %v", err)
	}

	owner, ok, err := r.OwnerOf(context.Background(), "lbl")
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if !ok || owner != "n1" {
		t.Fatalf("expected n1 to own lbl, got %q (ok=%v)", owner, ok)
	}
}

func TestDeclareFailsOnConflict(t *testing.T) {
	store := ddata.NewMemStore[string]()
	n1 := NewRegistry("n1", store)
	n2 := NewRegistry("n2", store)

	if err := n1.Declare(context.Background(), "lbl"); err != nil {
		t.Fatalf("n1 declare: %v", err)
	}

	err := n2.Declare(context.Background(), "lbl")
	var conflict *LabelConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected LabelConflict, got %v", err)
	}
	if conflict.Label != "lbl" {
		t.Fatalf("unexpected label in conflict: %q", conflict.Label)
	}
}

func TestReleaseRemovesLabel(t *testing.T) {
	store := ddata.NewMemStore[string]()
	r := NewRegistry("n1", store)
	_ = r.Declare(context.Background(), "lbl")
	_ = r.Release(context.Background(), "lbl")

	_, ok, err := r.OwnerOf(context.Background(), "lbl")
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if ok {
		t.Fatal("expected lbl to have no owner after release")
	}
}

func TestReconcileKeepsLexicographicallySmallestOwner(t *testing.T) {
	store := ddata.NewMemStore[string]()

	snap := indel.Snapshot[string]{Inserts: []string{"lbl"}}
	_ = store.Write(context.Background(), "nodeB", snap, ddata.All)
	_ = store.Write(context.Background(), "nodeA", snap, ddata.All)

	rLoser := NewRegistry("nodeB", store)
	if err := rLoser.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	snapshot, _ := store.Read(context.Background())
	if _, ok := snapshot["nodeB"]["lbl"]; ok {
		t.Fatal("expected nodeB to release lbl in favor of nodeA")
	}
	if _, ok := snapshot["nodeA"]["lbl"]; !ok {
		t.Fatal("expected nodeA to keep lbl")
	}
}
