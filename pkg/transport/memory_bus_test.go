package transport

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBusDeliversToSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	received := make(chan []byte, 1)

	cancel, err := bus.SubscribeInbox(context.Background(), "n1", func(envelope []byte) {
		received <- envelope
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := bus.Publish(context.Background(), "n1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Fatalf("unexpected payload: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("envelope not delivered")
	}
}

func TestMemoryBusMultipleHandlersReceiveIndependently(t *testing.T) {
	bus := NewMemoryBus()
	a := make(chan []byte, 1)
	b := make(chan []byte, 1)

	cancelA, _ := bus.SubscribeInbox(context.Background(), "n1", func(e []byte) { a <- e })
	cancelB, _ := bus.SubscribeInbox(context.Background(), "n1", func(e []byte) { b <- e })
	defer cancelA()
	defer cancelB()

	_ = bus.Publish(context.Background(), "n1", []byte("x"))

	for _, ch := range []chan []byte{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("handler did not receive envelope")
		}
	}
}

func TestMemoryBusCancelStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	received := make(chan []byte, 1)

	cancel, _ := bus.SubscribeInbox(context.Background(), "n1", func(e []byte) { received <- e })
	cancel()

	_ = bus.Publish(context.Background(), "n1", []byte("after cancel"))

	select {
	case <-received:
		t.Fatal("expected no delivery after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInboxTopicNaming(t *testing.T) {
	if got := InboxTopic("n1"); got != "ddpubsub/inbox/n1" {
		t.Fatalf("unexpected inbox topic: %s", got)
	}
}
