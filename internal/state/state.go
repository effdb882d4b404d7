package state

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// Version is the file format written by this package.
const Version = 1

// Direction records which side won the last sync of an item.
type Direction string

const (
	Pushed Direction = "pushed"
	Pulled Direction = "pulled"
	// Converged marks content found identical on both sides without a transfer.
	Converged Direction = "converged"
)

// Record is the baseline of one item.
type Record struct {
	Checksum     string    `json:"checksum"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	Direction    Direction `json:"direction,omitempty"`
}

type document struct {
	Version int               `json:"version"`
	Items   map[string]Record `json:"items"`
}

// Store is the in-memory view of the checksum file. It is safe for
// concurrent use; every mutation is flushed before it returns.
type Store struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	items   map[string]Record
	corrupt bool

	// now is replaced in tests.
	now func() time.Time
}

// retryDelay separates the two read attempts made by Open.
var retryDelay = 50 * time.Millisecond

// Open loads the store at path. A missing file yields an empty store. A
// corrupt file yields an empty store and an error wrapping ErrStateCorrupt.
func Open(fs afero.Fs, path string) (*Store, error) {
	s := &Store{
		fs:    fs,
		path:  path,
		items: make(map[string]Record),
		now:   func() time.Time { return time.Now().UTC() },
	}

	items, err := s.read()
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		// A concurrent writer may be between truncate and rename on
		// filesystems without atomic rename.
		time.Sleep(retryDelay)
		items, err = s.read()
	}
	switch {
	case err == nil:
		s.items = items
		return s, nil
	case errors.Is(err, iofs.ErrNotExist):
		return s, nil
	case errors.Is(err, kerrors.ErrStateCorrupt):
		s.corrupt = true
		return s, err
	default:
		return nil, fmt.Errorf("reading checksum state %s: %w", path, err)
	}
}

func (s *Store) read() (map[string]Record, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", kerrors.ErrStateCorrupt, s.path, err)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", kerrors.ErrStateCorrupt, s.path, doc.Version)
	}
	if doc.Items == nil {
		doc.Items = make(map[string]Record)
	}
	return doc.Items, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Corrupt reports whether the file on disk could not be parsed at Open.
func (s *Store) Corrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrupt
}

// Baseline returns the record for name, if one exists.
func (s *Store) Baseline(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[name]
	return r, ok
}

// SetBaseline records checksum as the agreed content of name.
func (s *Store) SetBaseline(name, checksum string, direction Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt {
		return fmt.Errorf("%w: refusing to overwrite %s", kerrors.ErrStateCorrupt, s.path)
	}

	prev, had := s.items[name]
	s.items[name] = Record{Checksum: checksum, LastSyncedAt: s.now(), Direction: direction}
	if err := s.flush(); err != nil {
		if had {
			s.items[name] = prev
		} else {
			delete(s.items, name)
		}
		return err
	}
	return nil
}

// Invalidate forgets the baselines of names. Unknown names are ignored.
func (s *Store) Invalidate(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt {
		return fmt.Errorf("%w: refusing to overwrite %s", kerrors.ErrStateCorrupt, s.path)
	}

	removed := make(map[string]Record)
	for _, name := range names {
		if r, ok := s.items[name]; ok {
			removed[name] = r
			delete(s.items, name)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	if err := s.flush(); err != nil {
		for name, r := range removed {
			s.items[name] = r
		}
		return err
	}
	return nil
}

// InvalidateAll empties the store. It is the only mutation allowed on a
// corrupt store and clears the corrupt flag on success.
func (s *Store) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	s.items = make(map[string]Record)
	if err := s.flush(); err != nil {
		s.items = prev
		return err
	}
	s.corrupt = false
	return nil
}

// Names lists every item with a baseline, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// flush writes the store through a temp file in the same directory and
// renames it into place. Callers hold s.mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(document{Version: Version, Items: s.items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checksum state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating %s: %w", kerrors.ErrIO, dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".checksums-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: writing %s: %w", kerrors.ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: syncing %s: %w", kerrors.ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: closing %s: %w", kerrors.ErrIO, tmpName, err)
	}
	if err := s.fs.Chmod(tmpName, 0600); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: replacing %s: %w", kerrors.ErrIO, s.path, err)
	}
	return nil
}
