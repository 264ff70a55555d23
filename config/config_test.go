package config

import "testing"

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("BIND_ADDRESS", "0.0.0.0")

	cfg := Load()

	if cfg.Port != "9191" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9191")
	}
	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("BindAddress = %q, want %q", cfg.BindAddress, "0.0.0.0")
	}
}

func TestLoadDefaults(t *testing.T) {
	// getEnv treats empty as unset, so clearing is enough for defaults.
	t.Setenv("PORT", "")
	t.Setenv("BIND_ADDRESS", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.BindAddress != "localhost" {
		t.Errorf("BindAddress = %q, want %q", cfg.BindAddress, "localhost")
	}
}
