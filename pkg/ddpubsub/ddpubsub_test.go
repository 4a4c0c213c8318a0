package ddpubsub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/hashfamily"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testMsg struct {
	Topics []Topic
	Body   string
}

func testMsgTopics(m testMsg) []Topic { return m.Topics }

type testCluster struct {
	bus        *transport.MemoryBus
	compressed ddata.CompressedStore
	literal    ddata.LiteralStore
	hashes     *hashfamily.Family
}

func newTestCluster(k int) *testCluster {
	return &testCluster{
		bus:        transport.NewMemoryBus(),
		compressed: ddata.NewMemStore[uint32](),
		literal:    ddata.NewMemStore[string](),
		hashes:     hashfamily.New("test-seed", k),
	}
}

func (c *testCluster) deps(t *testing.T, self NodeID) Deps {
	logger, err := logging.NewColoredLogger(logging.ComponentGeneral, false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	return Deps{
		Self:           self,
		Bus:            c.bus,
		Compressed:     c.compressed,
		Literal:        c.literal,
		Hashes:         c.hashes,
		Metrics:        reg,
		Logger:         logger,
		RestartDelay:   time.Millisecond,
		UpdateInterval: 20 * time.Millisecond,
		ForceUpdateP:   0,
	}
}

func startNode(t *testing.T, ctx context.Context, c *testCluster, self NodeID) (*DistributedSub[testMsg], *DistributedPub[testMsg], Deps) {
	t.Helper()
	deps := c.deps(t, self)
	sub, err := StartDistributedSub[testMsg](ctx, deps, testMsgTopics)
	if err != nil {
		t.Fatalf("start sub: %v", err)
	}
	pub := StartDistributedPub[testMsg](deps, testMsgTopics, sub)
	return sub, pub, deps
}

// S1: two nodes, N2 subscribes hA to "t", wait a tick, N1 publishes; hA
// receives the message once and N2's true-positive counter is 1.
func TestScenarioS1BasicDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestCluster(2)
	_, pub1, _ := startNode(t, ctx, c, "n1")
	sub2, _, deps2 := startNode(t, ctx, c, "n2")

	received := make(chan string, 1)
	handle := SubscriberHandle[testMsg]{ID: "hA", Deliver: func(m testMsg) { received <- m.Body }}
	if err := sub2.Subscribe(ctx, handle, []Topic{"t"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waitForTick(deps2.UpdateInterval)

	if err := pub1.Publish(ctx, testMsg{Topics: []Topic{"t"}, Body: "hello"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case body := <-received:
		if body != "hello" {
			t.Fatalf("unexpected body: %q", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hA never received the message")
	}

	if got := testutil.ToFloat64(deps2.Metrics.TruePositives.WithLabelValues("n2")); got != 1 {
		t.Fatalf("expected 1 true positive on n2, got %v", got)
	}
}

// S2: two subscribers on two topics each receive exactly once, no
// cross-delivery.
func TestScenarioS2NoDuplicateCrossDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestCluster(2)
	_, pub1, _ := startNode(t, ctx, c, "n1")
	sub2, _, deps2 := startNode(t, ctx, c, "n2")

	aReceived := make(chan string, 4)
	bReceived := make(chan string, 4)
	_ = sub2.Subscribe(ctx, SubscriberHandle[testMsg]{ID: "hA", Deliver: func(m testMsg) { aReceived <- m.Body }}, []Topic{"t1"})
	_ = sub2.Subscribe(ctx, SubscriberHandle[testMsg]{ID: "hB", Deliver: func(m testMsg) { bReceived <- m.Body }}, []Topic{"t2"})

	waitForTick(deps2.UpdateInterval)

	_ = pub1.Publish(ctx, testMsg{Topics: []Topic{"t1", "t2"}, Body: "m"})

	mustReceiveOnce(t, aReceived)
	mustReceiveOnce(t, bReceived)
}

// S4: subscribe then unsubscribe before any tick elapses; the
// subscriber never receives the message.
func TestScenarioS4SubscribeThenUnsubscribeBeforeTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestCluster(2)
	_, pub1, _ := startNode(t, ctx, c, "n1")
	sub2, _, deps2 := startNode(t, ctx, c, "n2")

	received := make(chan string, 1)
	handle := SubscriberHandle[testMsg]{ID: "hA", Deliver: func(m testMsg) { received <- m.Body }}
	_ = sub2.Subscribe(ctx, handle, []Topic{"t"})
	_ = sub2.Unsubscribe(ctx, "hA", []Topic{"t"})

	waitForTick(deps2.UpdateInterval)
	_ = pub1.Publish(ctx, testMsg{Topics: []Topic{"t"}, Body: "m"})

	select {
	case <-received:
		t.Fatal("hA should not have received the message")
	case <-time.After(200 * time.Millisecond):
	}
}

func waitForTick(interval time.Duration) {
	time.Sleep(3 * interval)
}

func mustReceiveOnce(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected delivery, got none")
	}
	select {
	case <-ch:
		t.Fatal("expected exactly one delivery, got a duplicate")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSupervisorLoggerSmoke(t *testing.T) {
	logger := &logging.ColoredLogger{Logger: zap.NewNop()}
	s := newSupervisor(logger, time.Millisecond)
	if s == nil {
		t.Fatal("expected non-nil supervisor")
	}
}
