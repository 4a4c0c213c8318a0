// Package node wires the ddpubsub subsystem's shared infrastructure (the
// libp2p host, the cluster message bus, the olric-backed ddata stores) into
// a single composition root, grounded on the teacher's pkg/node.Node.
package node

import (
	"context"
	"crypto/rand"
	"fmt"

	libp2ppubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/config"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/ddata"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/hashfamily"
	"github.com/DeBrosOfficial/ddpubsub/pkg/ddpubsub/metrics"
	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/olric"
	"github.com/DeBrosOfficial/ddpubsub/pkg/transport"
)

const (
	compressedDMapName = "ddpubsub-compressed"
	literalDMapName    = "ddpubsub-acklabels"
)

// Node bundles every piece of shared infrastructure a ddpubsub deployment
// needs: the libp2p host and GossipSub router, the cluster message bus
// built on top of it, the olric client and the two ddata stores it backs,
// the hash family every participant must agree on, and where to send logs
// and metrics. StartPubSub uses these to bring up a DistributedSub/Pub
// pair for a caller-chosen message type.
type Node struct {
	cfg    *config.Config
	logger *logging.ColoredLogger

	host host.Host
	ps   *libp2ppubsub.PubSub
	bus  *transport.LibP2PBus

	olricClient *olric.Client
	Compressed  ddata.CompressedStore
	Literal     ddata.LiteralStore
	Hashes      *hashfamily.Family
	Metrics     *metrics.Registry
}

// NewNode builds a Node. It does not touch the network or the ddata
// backing store; call Start for that.
func NewNode(cfg *config.Config, reg *metrics.Registry) (*Node, error) {
	logger, err := logging.NewDefaultLogger(logging.ComponentNode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &Node{
		cfg:     cfg,
		logger:  logger,
		Metrics: reg,
		Hashes:  hashfamily.New(cfg.Seed, cfg.HashFamilySize),
	}, nil
}

// ID returns this node's libp2p peer ID, valid only after Start.
func (n *Node) ID() string {
	if n.host == nil {
		return ""
	}
	return n.host.ID().String()
}

// Bus returns the cluster message bus, valid only after Start.
func (n *Node) Bus() transport.Bus { return n.bus }

// Start brings up the libp2p host, joins the GossipSub router, dials
// configured bootstrap peers, and connects to the olric cluster backing
// the compressed and literal ddata stores.
func (n *Node) Start(ctx context.Context) error {
	n.logger.ComponentInfo(logging.ComponentNode, "starting node")

	if err := n.startLibP2P(ctx); err != nil {
		return fmt.Errorf("start libp2p: %w", err)
	}

	if err := n.startOlric(); err != nil {
		return fmt.Errorf("start olric: %w", err)
	}

	n.logger.ComponentInfo(logging.ComponentNode, "node started", zap.String("peer_id", n.ID()))
	return nil
}

// Stop tears down the olric client, the message bus, and the libp2p host.
func (n *Node) Stop(ctx context.Context) error {
	n.logger.ComponentInfo(logging.ComponentNode, "stopping node")

	if n.Compressed != nil {
		_ = n.Compressed.Close(ctx)
	}
	if n.Literal != nil {
		_ = n.Literal.Close(ctx)
	}
	if n.olricClient != nil {
		_ = n.olricClient.Close(ctx)
	}
	if n.bus != nil {
		_ = n.bus.Close()
	}
	if n.host != nil {
		_ = n.host.Close()
	}

	n.logger.ComponentInfo(logging.ComponentNode, "node stopped")
	return nil
}

func (n *Node) startOlric() error {
	client, err := olric.NewClient(olric.Config{
		Servers: n.cfg.Olric.Servers,
		Timeout: n.cfg.Olric.Timeout,
	}, n.logger.Logger)
	if err != nil {
		return fmt.Errorf("new olric client: %w", err)
	}
	n.olricClient = client

	compressed, err := ddata.NewOlricStore[uint32](client.GetClient(), compressedDMapName, n.cfg.Olric.Timeout)
	if err != nil {
		return fmt.Errorf("new compressed store: %w", err)
	}
	n.Compressed = compressed

	literal, err := ddata.NewOlricStore[string](client.GetClient(), literalDMapName, n.cfg.Olric.Timeout)
	if err != nil {
		return fmt.Errorf("new literal store: %w", err)
	}
	n.Literal = literal

	return nil
}

// generateIdentity creates a fresh libp2p identity for this process.
// Nothing in this subsystem persists state across restarts, so unlike the
// teacher's Node, the identity is never written to or read from disk.
func (n *Node) generateIdentity() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateKeyPairWithReader(crypto.Ed25519, 2048, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return priv, nil
}

func parseListenAddrs(raw []string) ([]multiaddr.Multiaddr, error) {
	addrs := make([]multiaddr.Multiaddr, 0, len(raw))
	for _, a := range raw {
		ma, err := multiaddr.NewMultiaddr(a)
		if err != nil {
			return nil, fmt.Errorf("invalid listen address %q: %w", a, err)
		}
		addrs = append(addrs, ma)
	}
	return addrs, nil
}
