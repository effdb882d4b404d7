package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// EnvPrefix is prepended to every environment variable read into Config.
const EnvPrefix = "DOTVAULT_"

const (
	DefaultTimeout = 45 * time.Second
	DefaultWorkers = 4
	MaxWorkers     = 8
)

// DefaultProtectedPrefixes name the credential items whose deletion needs typed confirmation.
var DefaultProtectedPrefixes = []string{"SSH-", "AWS-", "Git-", "GPG-"}

// Backend kinds accepted in BackendConfig.Kind.
const (
	BackendBitwarden   = "bitwarden"
	BackendOnePassword = "onepassword"
	BackendPass        = "pass"
	BackendAge         = "age"
)

type Config struct {
	Backend BackendConfig `toml:"backend" envPrefix:"BACKEND_"`
	Sync    SyncConfig    `toml:"sync" envPrefix:"SYNC_"`

	// Manifest overrides the default items.yaml location.
	Manifest string `toml:"manifest,omitempty" env:"MANIFEST"`

	ProtectedPrefixes []string `toml:"protected_prefixes,omitempty" env:"PROTECTED_PREFIXES" envSeparator:","`

	// LogFile enables the rotating debug log. "default" uses the state dir.
	LogFile string `toml:"log_file,omitempty" env:"LOG_FILE"`
}

type BackendConfig struct {
	Kind     string `toml:"kind" env:"KIND"`
	Location string `toml:"location,omitempty" env:"LOCATION"`
	Timeout  string `toml:"timeout,omitempty" env:"TIMEOUT"`

	// Session is an unlock token. Never persisted.
	Session string `toml:"-" env:"SESSION"`

	// Binary overrides the CLI executable for bitwarden, onepassword and pass.
	Binary string `toml:"binary,omitempty" env:"BINARY"`

	PassStoreDir string `toml:"pass_store_dir,omitempty" env:"PASS_STORE_DIR"`

	AgeIdentity string `toml:"age_identity,omitempty" env:"AGE_IDENTITY"`
	AgeStoreDir string `toml:"age_store_dir,omitempty" env:"AGE_STORE_DIR"`
}

type SyncConfig struct {
	Workers int `toml:"workers,omitempty" env:"WORKERS"`
}

// Default returns the built-in configuration layer.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:    BackendBitwarden,
			Timeout: DefaultTimeout.String(),
		},
		Sync:              SyncConfig{Workers: DefaultWorkers},
		ProtectedPrefixes: append([]string(nil), DefaultProtectedPrefixes...),
	}
}

// TimeoutDuration parses Backend.Timeout, falling back to DefaultTimeout when empty.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// ManifestPath returns the configured manifest, expanded, or the default under paths.
func (c *Config) ManifestPath(paths Paths) (string, error) {
	if c.Manifest == "" {
		return paths.DefaultManifest(), nil
	}
	return paths.Expand(c.Manifest)
}

// LogFilePath returns the debug log location or "" when file logging is off.
func (c *Config) LogFilePath(paths Paths) (string, error) {
	switch c.LogFile {
	case "":
		return "", nil
	case "default":
		return paths.LogFile(), nil
	default:
		return paths.Expand(c.LogFile)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []error

	switch c.Backend.Kind {
	case BackendBitwarden, BackendOnePassword, BackendPass, BackendAge:
	default:
		problems = append(problems, fmt.Errorf("backend.kind %q is not one of %s", c.Backend.Kind,
			strings.Join([]string{BackendBitwarden, BackendOnePassword, BackendPass, BackendAge}, ", ")))
	}

	if c.Backend.Timeout != "" {
		d, err := time.ParseDuration(c.Backend.Timeout)
		if err != nil {
			problems = append(problems, fmt.Errorf("backend.timeout: %w", err))
		} else if d <= 0 {
			problems = append(problems, fmt.Errorf("backend.timeout must be positive"))
		}
	}

	if c.Sync.Workers < 1 || c.Sync.Workers > MaxWorkers {
		problems = append(problems, fmt.Errorf("sync.workers must be between 1 and %d, got %d", MaxWorkers, c.Sync.Workers))
	}

	if c.Backend.Kind == BackendAge && c.Backend.AgeIdentity == "" {
		problems = append(problems, fmt.Errorf("backend.age_identity is required for the age backend"))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", kerrors.ErrInvalidConfig, errors.Join(problems...))
}

// LoadOptions controls Load. Zero values mean "use the process environment".
type LoadOptions struct {
	// File overrides Paths.ConfigFile().
	File string

	// Environment replaces os.Environ for the env layer.
	Environment map[string]string

	// Overrides is the command-line layer.
	Overrides *Config
}

// Load builds the effective configuration from defaults, file, env and overrides.
// A missing config file is not an error.
func Load(paths Paths, opts LoadOptions) (*Config, error) {
	cfg := Default()

	file := opts.File
	if file == "" {
		file = paths.ConfigFile()
	}

	fileCfg := &Config{}
	if _, err := os.Stat(file); err == nil {
		if err := LoadTOML(file, fileCfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", kerrors.ErrInvalidConfig, file, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", file, err)
	}

	environment := opts.Environment
	if environment == nil {
		environment = env.ToMap(os.Environ())
	}
	envCfg := &Config{}
	if err := env.ParseWithOptions(envCfg, env.Options{Prefix: EnvPrefix, Environment: environment}); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", kerrors.ErrInvalidConfig, err)
	}

	layers := []*Config{fileCfg, envCfg}
	if opts.Overrides != nil {
		layers = append(layers, opts.Overrides)
	}
	for _, layer := range layers {
		if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging configuration: %w", err)
		}
	}

	if cfg.Backend.Session == "" && cfg.Backend.Kind == BackendBitwarden {
		cfg.Backend.Session = environment["BW_SESSION"]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the persistable parts of cfg to the config file.
func Save(paths Paths, cfg *Config) error {
	if err := SaveTOML(paths.ConfigFile(), cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
