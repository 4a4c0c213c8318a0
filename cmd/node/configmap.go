package main

import (
	"fmt"
	"os"

	"github.com/DeBrosOfficial/ddpubsub/pkg/config"
)

// loadConfigFromYAML reads and strictly decodes a config file at path on
// top of DefaultConfig, so an absent key simply keeps its default.
func loadConfigFromYAML(path string) (*config.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg := config.DefaultConfig()
	if err := config.DecodeStrict(f, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides layers CLI flag values on top of cfg. Flags take
// precedence over both the YAML file and the environment.
func applyFlagOverrides(cfg *config.Config, nodeID, listenAddr, bootstrapPeer string) {
	if nodeID != "" {
		cfg.Node.ID = nodeID
	}
	if listenAddr != "" {
		cfg.Node.ListenAddresses = []string{listenAddr}
	}
	if bootstrapPeer != "" {
		cfg.Discovery.BootstrapPeers = []string{bootstrapPeer}
	}
}
