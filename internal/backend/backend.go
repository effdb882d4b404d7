package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
)

// Location scopes remote lookups: a folder, vault or directory prefix
// depending on the backend. The empty Location means the backend's default.
type Location string

func (l Location) String() string {
	if l == "" {
		return "(default)"
	}
	return string(l)
}

// Backend is the contract the sync engine depends on. Implementations must
// return errors wrapping ErrNotFound only when the store is reachable and
// authenticated and the item genuinely does not exist.
type Backend interface {
	// Name identifies the backend kind, e.g. "bitwarden".
	Name() string

	Exists(ctx context.Context, name string, loc Location) (bool, error)

	// Read returns the stored content or an error wrapping ErrNotFound.
	Read(ctx context.Context, name string, loc Location) ([]byte, error)

	// Write creates or replaces the item.
	Write(ctx context.Context, name string, loc Location, content []byte) error

	// List returns the item names visible in loc, sorted.
	List(ctx context.Context, loc Location) ([]string, error)

	// Delete removes the item or returns an error wrapping ErrNotFound.
	Delete(ctx context.Context, name string, loc Location) error
}

// Options configure New. Zero values select sensible defaults.
type Options struct {
	// Binary overrides the CLI executable name or path.
	Binary string

	// Session is an unlock token for backends that use one (bitwarden).
	Session string

	// Timeout bounds every CLI invocation when Runner is nil.
	Timeout time.Duration

	// Runner executes CLI commands. Nil uses an ExecRunner with Timeout.
	Runner Runner

	// Fs is used by the pass and age variants for local store access.
	Fs afero.Fs

	PassStoreDir string

	AgeIdentity string
	AgeStoreDir string

	// Home resolves the default store directories.
	Home string

	Logger logger.Logger
}

func (o Options) runner() Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return ExecRunner{Timeout: o.Timeout}
}

func (o Options) fs() afero.Fs {
	if o.Fs != nil {
		return o.Fs
	}
	return afero.NewOsFs()
}

func (o Options) binary(fallback string) string {
	if o.Binary != "" {
		return o.Binary
	}
	return fallback
}

// New returns the backend named by kind.
func New(kind string, opts Options) (Backend, error) {
	switch kind {
	case configs.BackendBitwarden:
		return NewBitwarden(opts), nil
	case configs.BackendOnePassword:
		return NewOnePassword(opts), nil
	case configs.BackendPass:
		return NewPass(opts), nil
	case configs.BackendAge:
		a, err := NewAge(opts)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", kerrors.ErrUnknownBackend, kind)
	}
}

// FromConfig builds the backend selected by cfg. fs and runner may be nil.
func FromConfig(cfg *configs.Config, paths configs.Paths, fs afero.Fs, runner Runner, log logger.Logger) (Backend, error) {
	opts := Options{
		Binary:  cfg.Backend.Binary,
		Session: cfg.Backend.Session,
		Timeout: cfg.TimeoutDuration(),
		Runner:  runner,
		Fs:      fs,
		Home:    paths.Home,
		Logger:  log,
	}

	var err error
	if opts.PassStoreDir, err = expandOptional(paths, cfg.Backend.PassStoreDir); err != nil {
		return nil, err
	}
	if opts.AgeIdentity, err = expandOptional(paths, cfg.Backend.AgeIdentity); err != nil {
		return nil, err
	}
	if opts.AgeStoreDir, err = expandOptional(paths, cfg.Backend.AgeStoreDir); err != nil {
		return nil, err
	}
	if opts.AgeStoreDir == "" && cfg.Backend.Kind == configs.BackendAge {
		opts.AgeStoreDir = paths.AgeStoreDir()
	}

	return New(cfg.Backend.Kind, opts)
}

func expandOptional(paths configs.Paths, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	p, err := paths.Expand(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", kerrors.ErrInvalidConfig, err)
	}
	return p, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid item name %q", name)
	}
	return nil
}

func checkLocation(loc Location) error {
	for _, part := range strings.Split(string(loc), "/") {
		if part == ".." {
			return fmt.Errorf("invalid location %q", loc)
		}
	}
	return nil
}

// binaryPrefix marks note bodies that were not valid UTF-8 when written.
// Note fields in bitwarden and 1Password only carry text.
const binaryPrefix = "dotvault:base64:"

func encodeNote(content []byte) string {
	if utf8.Valid(content) && !strings.HasPrefix(string(content), binaryPrefix) {
		return string(content)
	}
	return binaryPrefix + base64.StdEncoding.EncodeToString(content)
}

func decodeNote(note string) ([]byte, error) {
	if !strings.HasPrefix(note, binaryPrefix) {
		return []byte(note), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(note, binaryPrefix))
	if err != nil {
		return nil, fmt.Errorf("decoding stored content: %w", err)
	}
	return data, nil
}
