package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != DefaultHost {
		t.Errorf("expected host %s, got %s", DefaultHost, cfg.Server.Host)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Balancer.Policy != "weighted-random" {
		t.Errorf("expected default balancer policy weighted-random, got %s", cfg.Balancer.Policy)
	}
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("expected failure threshold 5, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.HalfOpenProbeQuota != 3 {
		t.Errorf("expected half-open probe quota 3, got %d", cfg.Breaker.HalfOpenProbeQuota)
	}
	if cfg.ClientPool.MaxConnsPerOrigin != 20 {
		t.Errorf("expected max conns per origin 20, got %d", cfg.ClientPool.MaxConnsPerOrigin)
	}
	if len(cfg.Routing.Rules) != 0 {
		t.Errorf("expected empty routing rules so the compiled-in default set applies, got %d", len(cfg.Routing.Rules))
	}
}

func TestLoadConfig_WithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("expected no error when config file is absent, got %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d when no file present, got %d", DefaultPort, cfg.Server.Port)
	}
}

func TestLoadConfig_WithEnvironmentVariable(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GATEWAY_SERVER_PORT", "9999")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected env override to set port 9999, got %d", cfg.Server.Port)
	}
}
