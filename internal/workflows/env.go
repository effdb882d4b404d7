package workflows

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/PolarWolf314/dotvault/internal/audit"
	"github.com/PolarWolf314/dotvault/internal/backend"
	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
	"github.com/PolarWolf314/dotvault/internal/manifest"
	"github.com/PolarWolf314/dotvault/internal/state"
	"github.com/PolarWolf314/dotvault/internal/vault"
)

// Env carries what every workflow needs from the outside world. The cmd
// layer fills it once per invocation; tests fill it with in-memory parts.
type Env struct {
	Fs    afero.Fs
	Paths configs.Paths

	// ConfigOptions is passed to configs.Load when Config is nil.
	ConfigOptions configs.LoadOptions
	Config        *configs.Config

	// Manifest overrides the manifest location from the configuration.
	Manifest string

	// Runner executes backend CLIs. Nil runs the real binaries.
	Runner backend.Runner

	// Backend replaces the configured backend when set.
	Backend backend.Backend

	Log   logger.Logger
	Audit *audit.Trail

	// Now stamps backups. Nil means time.Now.
	Now func() time.Time
}

func (e *Env) fs() afero.Fs {
	if e.Fs == nil {
		e.Fs = afero.NewOsFs()
	}
	return e.Fs
}

func (e *Env) trail() *audit.Trail {
	if e.Audit == nil {
		e.Audit = audit.New(e.fs(), e.Paths.AuditFile())
	}
	return e.Audit
}

// LoadConfig returns the effective configuration, loading it on first use.
func (e *Env) LoadConfig() (*configs.Config, error) {
	if e.Config != nil {
		return e.Config, nil
	}
	cfg, err := configs.Load(e.Paths, e.ConfigOptions)
	if err != nil {
		return nil, err
	}
	e.Config = cfg
	return cfg, nil
}

func (e *Env) manifestPath(cfg *configs.Config) (string, error) {
	if e.Manifest != "" {
		p, err := e.Paths.Expand(e.Manifest)
		if err != nil {
			return "", fmt.Errorf("%w: --manifest: %w", kerrors.ErrInvalidConfig, err)
		}
		return p, nil
	}
	p, err := cfg.ManifestPath(e.Paths)
	if err != nil {
		return "", fmt.Errorf("%w: manifest: %w", kerrors.ErrInvalidConfig, err)
	}
	return p, nil
}

func (e *Env) loadManifest(cfg *configs.Config) (*manifest.Manifest, error) {
	path, err := e.manifestPath(cfg)
	if err != nil {
		return nil, err
	}
	e.Log.Debugf("loading manifest %s", path)
	m, err := manifest.Load(e.fs(), path, manifest.Options{ProtectedPrefixes: cfg.ProtectedPrefixes})
	if err != nil {
		return nil, err
	}
	for _, w := range m.Warnings {
		e.Log.Warnf("%s: %s", path, w)
	}
	return m, nil
}

// openState opens the checksum store. A corrupt store is returned together
// with its ErrStateCorrupt error so read-only callers can keep going.
func (e *Env) openState() (*state.Store, error) {
	store, err := state.Open(e.fs(), e.Paths.ChecksumFile())
	if err != nil && !errors.Is(err, kerrors.ErrStateCorrupt) {
		return nil, err
	}
	if err != nil {
		e.Log.WarnfAlways("%v", err)
	}
	return store, err
}

func (e *Env) backend(cfg *configs.Config) (backend.Backend, error) {
	if e.Backend != nil {
		return e.Backend, nil
	}
	b, err := backend.FromConfig(cfg, e.Paths, e.Fs, e.Runner, e.Log)
	if err != nil {
		return nil, err
	}
	e.Backend = b
	return b, nil
}

// location picks the namespace: the manifest's wins over the configuration's.
func location(cfg *configs.Config, m *manifest.Manifest) backend.Location {
	if m.Location != "" {
		return backend.Location(m.Location)
	}
	return backend.Location(cfg.Backend.Location)
}

func (e *Env) local() vault.Local {
	return vault.Local{Fs: e.fs(), Paths: e.Paths}
}

func (e *Env) backups() vault.Backups {
	return vault.Backups{Fs: e.fs(), Dir: e.Paths.BackupDir, Now: e.Now}
}

// session is the loaded context of a workflow: configuration, manifest,
// state and backend, opened in that order.
type session struct {
	cfg      *configs.Config
	manifest *manifest.Manifest
	store    *state.Store
	remote   backend.Backend
	location backend.Location
}

// open loads config, manifest and state. The backend is built only when
// withBackend is set. A corrupt state store is not an error here.
func (e *Env) open(withBackend bool) (*session, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, err
	}
	m, err := e.loadManifest(cfg)
	if err != nil {
		return nil, err
	}
	store, err := e.openState()
	if err != nil && !errors.Is(err, kerrors.ErrStateCorrupt) {
		return nil, err
	}

	s := &session{cfg: cfg, manifest: m, store: store, location: location(cfg, m)}
	if withBackend {
		if s.remote, err = e.backend(cfg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) engine(e *Env, workers int) *vault.Engine {
	if workers == 0 {
		workers = s.cfg.Sync.Workers
	}
	return &vault.Engine{
		Backend:  s.remote,
		Location: s.location,
		State:    s.store,
		Local:    e.local(),
		Backups:  e.backups(),
		Workers:  workers,
		Log:      e.Log,
	}
}

func (s *session) auditEntry(e *Env, op string) audit.Entry {
	entry := e.trail().Entry(op)
	entry.Location = string(s.location)
	if s.remote != nil {
		entry.Backend = s.remote.Name()
	}
	return entry
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
