package node

import (
	"context"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	libp2ppubsub "github.com/libp2p/go-libp2p-pubsub"
	noise "github.com/libp2p/go-libp2p/p2p/security/noise"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
	"github.com/DeBrosOfficial/ddpubsub/pkg/transport"
)

// startLibP2P creates the host and its GossipSub router, joins the
// cluster message bus on top of it, and dials the configured bootstrap
// peers. Grounded on the teacher's Node.startLibP2P: noise security, TCP
// and QUIC transports, peerstore seeded from the bootstrap list.
func (n *Node) startLibP2P(ctx context.Context) error {
	n.logger.ComponentInfo(logging.ComponentTransport, "starting libp2p host")

	identity, err := n.generateIdentity()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	listenAddrs, err := parseListenAddrs(n.cfg.Node.ListenAddresses)
	if err != nil {
		return err
	}

	h, err := libp2p.New(
		libp2p.Identity(identity),
		libp2p.ListenAddrs(listenAddrs...),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Transport(libp2pquic.NewTransport),
		libp2p.DefaultMuxers,
	)
	if err != nil {
		return fmt.Errorf("new libp2p host: %w", err)
	}
	n.host = h

	ps, err := libp2ppubsub.NewGossipSub(ctx, h,
		libp2ppubsub.WithPeerExchange(true),
		libp2ppubsub.WithFloodPublish(true),
	)
	if err != nil {
		return fmt.Errorf("new gossipsub: %w", err)
	}
	n.ps = ps
	n.bus = transport.NewLibP2PBus(ps, n.logger.Logger)

	n.connectBootstrapPeers(ctx)

	n.logger.ComponentInfo(logging.ComponentTransport, "libp2p host started", zap.String("peer_id", h.ID().String()))
	return nil
}

func (n *Node) connectBootstrapPeers(ctx context.Context) {
	if len(n.cfg.Discovery.BootstrapPeers) == 0 {
		return
	}

	infos, err := transport.ParseBootstrapPeers(n.cfg.Discovery.BootstrapPeers)
	if err != nil {
		n.logger.ComponentWarn(logging.ComponentTransport, "failed to parse bootstrap peers", zap.Error(err))
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, info := range infos {
		if info.ID == n.host.ID() {
			continue
		}
		n.host.Peerstore().AddAddrs(info.ID, info.Addrs, 24*time.Hour)
		if err := n.host.Connect(dialCtx, info); err != nil {
			n.logger.ComponentWarn(logging.ComponentTransport, "failed to connect to bootstrap peer",
				zap.String("peer", info.ID.String()), zap.Error(err))
			continue
		}
		n.logger.ComponentInfo(logging.ComponentTransport, "connected to bootstrap peer", zap.String("peer", info.ID.String()))
	}
}
