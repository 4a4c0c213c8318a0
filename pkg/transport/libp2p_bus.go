package transport

import (
	"context"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// inboxSubscription fans a single libp2p subscription out to every
// handler currently registered for that inbox, ref-counted so multiple
// local callers can subscribe to the same inbox independently.
type inboxSubscription struct {
	mu       sync.RWMutex
	sub      *pubsub.Subscription
	cancel   func()
	handlers map[string]Handler
}

// LibP2PBus implements Bus over a go-libp2p-pubsub GossipSub router.
// Grounded on the teacher's pkg/pubsub.Manager: one *pubsub.Topic per
// inbox, ref-counted subscriptions, a fan-out goroutine per inbox.
type LibP2PBus struct {
	ps     *pubsub.PubSub
	logger *zap.Logger

	mu            sync.Mutex
	topics        map[string]*pubsub.Topic
	subscriptions map[string]*inboxSubscription
}

// NewLibP2PBus wraps an already-constructed GossipSub router.
func NewLibP2PBus(ps *pubsub.PubSub, logger *zap.Logger) *LibP2PBus {
	return &LibP2PBus{
		ps:            ps,
		logger:        logger,
		topics:        make(map[string]*pubsub.Topic),
		subscriptions: make(map[string]*inboxSubscription),
	}
}

func (b *LibP2PBus) getOrJoinTopic(name string) (*pubsub.Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[name]; ok {
		return t, nil
	}
	t, err := b.ps.Join(name)
	if err != nil {
		return nil, fmt.Errorf("join topic %s: %w", name, err)
	}
	b.topics[name] = t
	return t, nil
}

func (b *LibP2PBus) Publish(ctx context.Context, node string, envelope []byte) error {
	topic, err := b.getOrJoinTopic(InboxTopic(node))
	if err != nil {
		return err
	}
	if err := topic.Publish(ctx, envelope); err != nil {
		return fmt.Errorf("publish to inbox %s: %w", node, err)
	}
	return nil
}

func (b *LibP2PBus) SubscribeInbox(ctx context.Context, node string, handler Handler) (func(), error) {
	name := InboxTopic(node)

	b.mu.Lock()
	existing, ok := b.subscriptions[name]
	if ok {
		handlerID := uuid.NewString()
		existing.mu.Lock()
		existing.handlers[handlerID] = handler
		existing.mu.Unlock()
		b.mu.Unlock()
		return b.unsubscribeFunc(name, handlerID), nil
	}
	b.mu.Unlock()

	topic, err := b.getOrJoinTopic(name)
	if err != nil {
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe to inbox %s: %w", node, err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	handlerID := uuid.NewString()
	inbox := &inboxSubscription{
		sub:      sub,
		cancel:   cancel,
		handlers: map[string]Handler{handlerID: handler},
	}

	b.mu.Lock()
	b.subscriptions[name] = inbox
	b.mu.Unlock()

	go b.fanOut(subCtx, name, inbox)

	return b.unsubscribeFunc(name, handlerID), nil
}

func (b *LibP2PBus) fanOut(ctx context.Context, name string, inbox *inboxSubscription) {
	defer inbox.sub.Cancel()
	for {
		msg, err := inbox.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		inbox.mu.RLock()
		handlers := make([]Handler, 0, len(inbox.handlers))
		for _, h := range inbox.handlers {
			handlers = append(handlers, h)
		}
		inbox.mu.RUnlock()

		for _, h := range handlers {
			h(msg.Data)
		}
	}
}

func (b *LibP2PBus) unsubscribeFunc(name, handlerID string) func() {
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		inbox, ok := b.subscriptions[name]
		if !ok {
			return
		}
		inbox.mu.Lock()
		delete(inbox.handlers, handlerID)
		remaining := len(inbox.handlers)
		inbox.mu.Unlock()

		if remaining == 0 {
			inbox.cancel()
			delete(b.subscriptions, name)
		}
	}
}

func (b *LibP2PBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, inbox := range b.subscriptions {
		inbox.cancel()
	}
	b.subscriptions = make(map[string]*inboxSubscription)

	for _, topic := range b.topics {
		_ = topic.Close()
	}
	b.topics = make(map[string]*pubsub.Topic)
	return nil
}
