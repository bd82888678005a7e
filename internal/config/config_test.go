package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]string{"--address", "node1"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EpochDuration != 10 {
		t.Fatalf("EpochDuration = %d, want 10", cfg.EpochDuration)
	}
	if cfg.RPCListenAddr != "127.0.0.1:8645" {
		t.Fatalf("RPCListenAddr = %q, want default", cfg.RPCListenAddr)
	}
}

func TestLoadRequiresAddress(t *testing.T) {
	if _, err := Load([]string{}); err == nil {
		t.Fatal("expected error when --address is missing")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load([]string{"--address", "node1", "--epochduration", "25"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EpochDuration != 25 {
		t.Fatalf("EpochDuration = %d, want 25", cfg.EpochDuration)
	}
}
