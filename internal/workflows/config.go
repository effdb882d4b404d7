package workflows

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	"github.com/PolarWolf314/dotvault/internal/manifest"
)

// ConfigInitOptions configures the config init workflow.
type ConfigInitOptions struct {
	// Backend is the backend kind to record. Empty keeps the default.
	Backend string

	// Location is the default namespace to record.
	Location string

	// Force overwrites an existing config file. The manifest is never
	// overwritten.
	Force bool
}

// ConfigInitResult reports which files were created.
type ConfigInitResult struct {
	ConfigPath     string
	ManifestPath   string
	WroteConfig    bool
	WroteManifest  bool
	BackendKind    string
	ExistingConfig bool
}

// ConfigInit writes a starter config.toml and an example items.yaml.
//
// Returns ErrInvalidConfig if the requested backend is not supported.
func ConfigInit(ctx context.Context, env *Env, opts ConfigInitOptions) (*ConfigInitResult, error) {
	cfg := configs.Default()
	if opts.Backend != "" {
		cfg.Backend.Kind = opts.Backend
	}
	cfg.Backend.Location = opts.Location
	if cfg.Backend.Kind == configs.BackendAge {
		cfg.Backend.AgeIdentity = "~/.config/dotvault/identity.txt"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &ConfigInitResult{
		ConfigPath:   env.Paths.ConfigFile(),
		ManifestPath: env.Paths.DefaultManifest(),
		BackendKind:  cfg.Backend.Kind,
	}

	exists, err := afero.Exists(env.fs(), result.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	result.ExistingConfig = exists
	if !exists || opts.Force {
		if err := configs.Save(env.Paths, cfg); err != nil {
			return nil, err
		}
		result.WroteConfig = true
	}

	exists, err = afero.Exists(env.fs(), result.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if !exists {
		if err := env.fs().MkdirAll(filepath.Dir(result.ManifestPath), 0o700); err != nil {
			return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
		}
		if err := afero.WriteFile(env.fs(), result.ManifestPath, []byte(manifest.Example), 0o600); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %w", kerrors.ErrIO, result.ManifestPath, err)
		}
		result.WroteManifest = true
	}
	return result, nil
}

// ConfigShowResult is the effective configuration with resolved paths.
type ConfigShowResult struct {
	Config       *configs.Config `json:"config"`
	ConfigFile   string          `json:"config_file"`
	ManifestPath string          `json:"manifest"`
	StateDir     string          `json:"state_dir"`
	BackupDir    string          `json:"backup_dir"`
	SessionSet   bool            `json:"session_set"`
}

// ConfigShow loads the effective configuration. The session token is
// reported only as present or absent.
func ConfigShow(ctx context.Context, env *Env) (*ConfigShowResult, error) {
	cfg, err := env.LoadConfig()
	if err != nil {
		return nil, err
	}
	manifestPath, err := env.manifestPath(cfg)
	if err != nil {
		return nil, err
	}

	shown := *cfg
	shown.Backend.Session = ""
	return &ConfigShowResult{
		Config:       &shown,
		ConfigFile:   env.Paths.ConfigFile(),
		ManifestPath: manifestPath,
		StateDir:     env.Paths.StateDir,
		BackupDir:    env.Paths.BackupDir,
		SessionSet:   cfg.Backend.Session != "",
	}, nil
}

func itemNames(items []manifest.Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}
