package configs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadTOML(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "config.toml")

	original := Config{
		Backend: BackendConfig{Kind: BackendOnePassword, Location: "Private"},
		Sync:    SyncConfig{Workers: 3},
	}

	if err := SaveTOML(testFile, original); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded := Config{}
	if err := LoadTOML(testFile, &loaded); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}

	if loaded.Backend.Kind != original.Backend.Kind {
		t.Errorf("Expected Kind %q, got %q", original.Backend.Kind, loaded.Backend.Kind)
	}
	if loaded.Backend.Location != original.Backend.Location {
		t.Errorf("Expected Location %q, got %q", original.Backend.Location, loaded.Backend.Location)
	}
	if loaded.Sync.Workers != original.Sync.Workers {
		t.Errorf("Expected Workers %d, got %d", original.Sync.Workers, loaded.Sync.Workers)
	}
}

func TestLoadTOMLNonExistent(t *testing.T) {
	data := Config{}
	if err := LoadTOML(filepath.Join(t.TempDir(), "nonexistent.toml"), &data); err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
}

func TestSaveTOMLCreatesDirectoryAndLeavesNoTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "subdir", "config.toml")

	if err := SaveTOML(testFile, Default()); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(testFile))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "config.toml" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only config.toml, found %v", names)
	}
}
