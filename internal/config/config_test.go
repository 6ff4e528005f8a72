package config

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// CONFIG FILE TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TESTGEN_ENV", "")
	t.Setenv("TESTGEN_ENDPOINT_LOCAL", "")
	t.Setenv("TESTGEN_ENDPOINT_DEPLOYED", "")
	t.Setenv("TESTGEN_LOG_LEVEL", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Environment != EnvLocal {
		t.Errorf("expected Environment=local, got %s", cfg.Environment)
	}
	if cfg.Endpoint() != "http://localhost:8000/generate-test-cases" {
		t.Errorf("unexpected default endpoint %q", cfg.Endpoint())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Environment = EnvDeployed
	cfg.Endpoints.Deployed = "https://tests.example.com/generate"
	cfg.UI.Watch = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Environment != EnvDeployed {
		t.Errorf("expected deployed, got %s", loaded.Environment)
	}
	if loaded.Endpoint() != "https://tests.example.com/generate" {
		t.Errorf("expected deployed endpoint, got %q", loaded.Endpoint())
	}
	if !loaded.UI.Watch {
		t.Error("expected ui.watch to round-trip")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Endpoint() != DefaultConfig().Endpoint() {
		t.Errorf("expected default endpoint, got %q", cfg.Endpoint())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = "staging"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "chatty"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}

	cfg = DefaultConfig()
	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestConfig_MalformedEndpointIsNotValidated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoints.Local = "::not a url::"
	if err := cfg.Validate(); err != nil {
		t.Errorf("endpoint shape must not be validated: %v", err)
	}
}
