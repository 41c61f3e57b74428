package config

import (
	"testing"
	"time"
)

func TestServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.Database.Path != "echowire.db" {
		t.Errorf("Database.Path = %q, want echowire.db", cfg.Database.Path)
	}
	if cfg.UploadDir != "public/uploads" {
		t.Errorf("UploadDir = %q, want public/uploads", cfg.UploadDir)
	}
	if cfg.HistoryLimit != 100 {
		t.Errorf("HistoryLimit = %d, want 100", cfg.HistoryLimit)
	}
	if cfg.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want 15s", cfg.WriteTimeout)
	}
}

func TestServerConfigOverrides(t *testing.T) {
	t.Setenv("ECHOWIRE_LISTEN_ADDR", ":8123")
	t.Setenv("ECHOWIRE_HISTORY_LIMIT", "5")
	t.Setenv("ECHOWIRE_WRITE_TIMEOUT", "3s")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":8123" {
		t.Errorf("ListenAddr = %q, want :8123", cfg.ListenAddr)
	}
	if cfg.HistoryLimit != 5 {
		t.Errorf("HistoryLimit = %d, want 5", cfg.HistoryLimit)
	}
	if cfg.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v, want 3s", cfg.WriteTimeout)
	}
}

func TestClientConfigDefaults(t *testing.T) {
	cfg, err := LoadClientConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServerURL != "ws://localhost:9000/socket" {
		t.Errorf("ServerURL = %q, want ws://localhost:9000/socket", cfg.ServerURL)
	}
	if cfg.CommandPrefix != "/" {
		t.Errorf("CommandPrefix = %q, want /", cfg.CommandPrefix)
	}
}
