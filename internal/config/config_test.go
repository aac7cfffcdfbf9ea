package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8480 {
		t.Errorf("Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Match.Threshold != 0.75 || cfg.Match.TitleWeight != 0.6 || cfg.Match.ArtistWeight != 0.4 {
		t.Errorf("unexpected match defaults: %+v", cfg.Match)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 9000\nmatch:\n  threshold: 0.8\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("BB_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, env should win over file", cfg.Server.Port)
	}
	if cfg.Match.Threshold != 0.8 {
		t.Errorf("Threshold = %g, want file value 0.8", cfg.Match.Threshold)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("match:\n  threshold: 1.5\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for threshold outside [0,1]")
	}
}
