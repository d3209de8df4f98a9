package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost/rewards",
		ServiceToken:       "secret",
		FinalizerMode:      FinalizerModeLocal,
		CacheTTL:           time.Minute,
		RetroBadgeInterval: time.Hour,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid local", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "missing token", mutate: func(c *Config) { c.ServiceToken = "" }, wantErr: true},
		{name: "rpc without url", mutate: func(c *Config) { c.FinalizerMode = FinalizerModeRPC }, wantErr: true},
		{name: "rpc with url", mutate: func(c *Config) {
			c.FinalizerMode = FinalizerModeRPC
			c.BackendRPCURL = "https://backend.example.com"
		}},
		{name: "unknown mode", mutate: func(c *Config) { c.FinalizerMode = "edge" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.CacheTTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplitOrigins(t *testing.T) {
	got := splitOrigins(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rewards")
	t.Setenv("SERVICE_TOKEN", "secret")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5200" {
		t.Fatalf("expected default port 5200, got %q", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("expected 30s cache ttl, got %s", cfg.CacheTTL)
	}
	if cfg.FinalizerMode != FinalizerModeLocal {
		t.Fatalf("expected local finalizer, got %q", cfg.FinalizerMode)
	}
}
