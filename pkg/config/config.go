package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// WriteConsistency controls how aggressively a ddata write confirms
// replication before the caller's Write call returns.
type WriteConsistency string

const (
	WriteConsistencyLocal    WriteConsistency = "local"
	WriteConsistencyMajority WriteConsistency = "majority"
	WriteConsistencyAll      WriteConsistency = "all"
)

// NodeConfig holds this node's identity and libp2p listen configuration.
// Nothing about a node is persisted across restarts, so this carries no
// data directory: a fresh libp2p identity is generated on every start.
type NodeConfig struct {
	ID              string   `yaml:"id" env:"DDPUBSUB_NODE_ID"`
	ListenAddresses []string `yaml:"listenAddresses" env:"DDPUBSUB_LISTEN_ADDRESSES" envSeparator:","`
}

// DiscoveryConfig holds the bootstrap peers this node dials on startup.
type DiscoveryConfig struct {
	BootstrapPeers []string `yaml:"bootstrapPeers" env:"DDPUBSUB_BOOTSTRAP_PEERS" envSeparator:","`
}

// OlricConfig holds the connection settings for the ddata backing store.
type OlricConfig struct {
	Servers []string      `yaml:"servers" env:"DDPUBSUB_OLRIC_SERVERS" envSeparator:","`
	Timeout time.Duration `yaml:"timeout" env:"DDPUBSUB_OLRIC_TIMEOUT"`
}

// Config holds every tunable of the ddpubsub subsystem. Zero value is
// invalid; use DefaultConfig and override from there.
type Config struct {
	// HashFamilySize is k, the number of independent hash functions used to
	// compress a topic into its cluster-advertised footprint.
	HashFamilySize int `yaml:"hashFamilySize" env:"DDPUBSUB_HASH_FAMILY_SIZE"`

	// RestartDelay is the base backoff before a supervisor restarts a
	// crashed child.
	RestartDelay time.Duration `yaml:"restartDelay" env:"DDPUBSUB_RESTART_DELAY"`

	// UpdateInterval is the period of the update loop's flush tick.
	UpdateInterval time.Duration `yaml:"updateInterval" env:"DDPUBSUB_UPDATE_INTERVAL"`

	// ForceUpdateProbability is the chance, per tick, that the update loop
	// replaces its entire advertised set instead of sending a delta.
	ForceUpdateProbability float64 `yaml:"forceUpdateProbability" env:"DDPUBSUB_FORCE_UPDATE_PROBABILITY"`

	// Seed salts the hash family; nodes that disagree on Seed cannot
	// interoperate over the same replicated topic-hash map.
	Seed string `yaml:"seed" env:"DDPUBSUB_SEED"`

	// WriteConsistency is the default consistency used by ddata writes that
	// do not specify their own.
	WriteConsistency WriteConsistency `yaml:"writeConsistency" env:"DDPUBSUB_WRITE_CONSISTENCY"`

	Node      NodeConfig      `yaml:"node"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Olric     OlricConfig     `yaml:"olric"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() *Config {
	return &Config{
		HashFamilySize:         2,
		RestartDelay:           10 * time.Second,
		UpdateInterval:         3 * time.Second,
		ForceUpdateProbability: 0.01,
		Seed:                   "ditto-ddpubsub-default-seed",
		WriteConsistency:       WriteConsistencyLocal,
		Node: NodeConfig{
			ListenAddresses: []string{"/ip4/0.0.0.0/tcp/4001"},
		},
		Olric: OlricConfig{
			Servers: []string{"localhost:3320"},
			Timeout: 10 * time.Second,
		},
	}
}

// ApplyEnv overlays environment variable overrides onto cfg in place.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// Validate checks that cfg is internally consistent, returning the first
// field-level error it finds wrapped with the offending field's name.
func (c *Config) Validate() error {
	if c.HashFamilySize < 1 {
		return fmt.Errorf("hashFamilySize: %w", fmt.Errorf("must be >= 1, got %d", c.HashFamilySize))
	}
	if c.RestartDelay <= 0 {
		return fmt.Errorf("restartDelay: %w", fmt.Errorf("must be positive, got %s", c.RestartDelay))
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("updateInterval: %w", fmt.Errorf("must be positive, got %s", c.UpdateInterval))
	}
	if c.ForceUpdateProbability < 0 || c.ForceUpdateProbability > 1 {
		return fmt.Errorf("forceUpdateProbability: %w", fmt.Errorf("must be in [0,1], got %f", c.ForceUpdateProbability))
	}
	if c.Seed == "" {
		return fmt.Errorf("seed: %w", fmt.Errorf("must not be empty"))
	}
	switch c.WriteConsistency {
	case WriteConsistencyLocal, WriteConsistencyMajority, WriteConsistencyAll:
	default:
		return fmt.Errorf("writeConsistency: %w", fmt.Errorf("unknown value %q", c.WriteConsistency))
	}
	if len(c.Node.ListenAddresses) == 0 {
		return fmt.Errorf("node.listenAddresses: %w", fmt.Errorf("must list at least one multiaddr"))
	}
	if len(c.Olric.Servers) == 0 {
		return fmt.Errorf("olric.servers: %w", fmt.Errorf("must list at least one server"))
	}
	return nil
}
