package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	paths := PathsUnder(t.TempDir())

	cfg, err := Load(paths, LoadOptions{Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.Kind != BackendBitwarden {
		t.Errorf("expected default backend %q, got %q", BackendBitwarden, cfg.Backend.Kind)
	}
	if cfg.Sync.Workers != DefaultWorkers {
		t.Errorf("expected %d workers, got %d", DefaultWorkers, cfg.Sync.Workers)
	}
	if cfg.TimeoutDuration() != DefaultTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultTimeout, cfg.TimeoutDuration())
	}
}

func TestLoadLayersFileEnvAndOverrides(t *testing.T) {
	paths := PathsUnder(t.TempDir())

	fileCfg := &Config{
		Backend: BackendConfig{Kind: BackendPass, Location: "dotfiles", Timeout: "10s"},
		Sync:    SyncConfig{Workers: 2},
	}
	if err := Save(paths, fileCfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	environment := map[string]string{
		"DOTVAULT_BACKEND_LOCATION": "personal",
		"DOTVAULT_SYNC_WORKERS":     "6",
	}
	overrides := &Config{Backend: BackendConfig{Timeout: "90s"}}

	cfg, err := Load(paths, LoadOptions{Environment: environment, Overrides: overrides})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.Kind != BackendPass {
		t.Errorf("file layer lost: kind=%q", cfg.Backend.Kind)
	}
	if cfg.Backend.Location != "personal" {
		t.Errorf("env layer lost: location=%q", cfg.Backend.Location)
	}
	if cfg.Sync.Workers != 6 {
		t.Errorf("env layer lost: workers=%d", cfg.Sync.Workers)
	}
	if cfg.TimeoutDuration() != 90*time.Second {
		t.Errorf("override layer lost: timeout=%s", cfg.TimeoutDuration())
	}
}

func TestLoadReadsBitwardenSessionFromEnvironment(t *testing.T) {
	paths := PathsUnder(t.TempDir())

	cfg, err := Load(paths, LoadOptions{Environment: map[string]string{"BW_SESSION": "token-123"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.Session != "token-123" {
		t.Errorf("expected session from BW_SESSION, got %q", cfg.Backend.Session)
	}
}

func TestSessionIsNeverPersisted(t *testing.T) {
	paths := PathsUnder(t.TempDir())

	cfg := Default()
	cfg.Backend.Session = "secret-session"
	if err := Save(paths, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(paths.ConfigFile())
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if strings.Contains(string(data), "secret-session") {
		t.Errorf("session token leaked into config file:\n%s", data)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = "keychain"
	cfg.Sync.Workers = 12
	cfg.Backend.Timeout = "soon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestAgeBackendRequiresIdentity(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = BackendAge
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for age backend without identity")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	paths := PathsUnder(t.TempDir())
	if err := os.MkdirAll(paths.ConfigDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(paths.ConfigDir, "config.toml"), []byte("[backend\nkind="), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(paths, LoadOptions{Environment: map[string]string{}})
	if !errors.Is(err, kerrors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
