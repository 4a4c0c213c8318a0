package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateHashFamilySize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HashFamilySize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for HashFamilySize=0")
	}
}

func TestValidateRestartDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RestartDelay = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero RestartDelay")
	}
}

func TestValidateUpdateInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdateInterval = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative UpdateInterval")
	}
}

func TestValidateForceUpdateProbability(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceUpdateProbability = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range ForceUpdateProbability")
	}
}

func TestValidateSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty Seed")
	}
}

func TestValidateWriteConsistency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WriteConsistency = "quorum"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown WriteConsistency")
	}
}

func TestApplyEnvOverride(t *testing.T) {
	t.Setenv("DDPUBSUB_SEED", "override-seed")
	t.Setenv("DDPUBSUB_HASH_FAMILY_SIZE", "4")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Seed != "override-seed" {
		t.Fatalf("Seed override not applied: %q", cfg.Seed)
	}
	if cfg.HashFamilySize != 4 {
		t.Fatalf("HashFamilySize override not applied: %d", cfg.HashFamilySize)
	}
}
