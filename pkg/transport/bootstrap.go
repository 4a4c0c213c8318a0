package transport

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ParseBootstrapPeers parses a list of multiaddr strings into AddrInfos
// suitable for libp2p's host.Connect. The first malformed entry fails the
// whole batch with an error naming that entry.
func ParseBootstrapPeers(addrs []string) ([]peer.AddrInfo, error) {
	var infos []peer.AddrInfo
	for _, raw := range addrs {
		ma, err := multiaddr.NewMultiaddr(raw)
		if err != nil {
			return nil, fmt.Errorf("parse bootstrap addr %q: %w", raw, err)
		}
		info, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			return nil, fmt.Errorf("addr info from %q: %w", raw, err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
