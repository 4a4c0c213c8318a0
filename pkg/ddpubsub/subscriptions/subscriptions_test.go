package subscriptions

import (
	"testing"
	"time"
)

func handle(id string) SubscriberHandle[string] {
	return SubscriberHandle[string]{ID: HandlerID(id)}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry[string](nil)
	h := handle("a")
	r.Subscribe(h, []Topic{"t"})
	r.Subscribe(h, []Topic{"t"})
	reader := r.Snapshot()
	subs := reader.SubscribersFor([]Topic{"t"})
	if len(subs) != 1 {
		t.Fatalf("expected exactly one subscriber, got %d", len(subs))
	}
}

func TestUnsubscribeRemovesOnlyListedTopics(t *testing.T) {
	r := NewRegistry[string](nil)
	h := handle("a")
	r.Subscribe(h, []Topic{"t1", "t2"})
	r.Unsubscribe(h.ID, []Topic{"t1"})
	reader := r.Snapshot()
	if len(reader.SubscribersFor([]Topic{"t1"})) != 0 {
		t.Fatal("t1 should have no subscribers")
	}
	if len(reader.SubscribersFor([]Topic{"t2"})) != 1 {
		t.Fatal("t2 should still have one subscriber")
	}
}

func TestRemoveSubscriberClearsAllTopics(t *testing.T) {
	r := NewRegistry[string](nil)
	h := handle("a")
	r.Subscribe(h, []Topic{"t1", "t2"})
	r.RemoveSubscriber(h.ID)
	reader := r.Snapshot()
	if len(reader.SubscribersFor([]Topic{"t1", "t2"})) != 0 {
		t.Fatal("expected no subscribers after removal")
	}
}

func TestDiffSinceSymmetricDifference(t *testing.T) {
	r := NewRegistry[string](nil)
	r.Subscribe(handle("a"), []Topic{"t1"})
	last := map[Topic]struct{}{"t0": {}}
	added, removed := DiffSince(r, last)
	if len(added) != 1 || added[0] != "t1" {
		t.Fatalf("expected added=[t1], got %v", added)
	}
	if len(removed) != 1 || removed[0] != "t0" {
		t.Fatalf("expected removed=[t0], got %v", removed)
	}
}

func TestSubscribersForUnionsAcrossTopics(t *testing.T) {
	r := NewRegistry[string](nil)
	r.Subscribe(handle("a"), []Topic{"t1"})
	r.Subscribe(handle("b"), []Topic{"t2"})
	reader := r.Snapshot()
	subs := reader.SubscribersFor([]Topic{"t1", "t2"})
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}
}

func TestSubscriberGoneTriggersCallback(t *testing.T) {
	gone := make(chan HandlerID, 1)
	r := NewRegistry[string](func(id HandlerID) { gone <- id })
	done := make(chan struct{})
	h := SubscriberHandle[string]{ID: "a", Done: done}
	r.Subscribe(h, []Topic{"t"})
	close(done)
	select {
	case id := <-gone:
		if id != "a" {
			t.Fatalf("unexpected handler id %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("onGone callback not invoked")
	}
}
