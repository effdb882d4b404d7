package vault

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	"github.com/PolarWolf314/dotvault/internal/manifest"
)

const backupStamp = "20060102T150405Z"

// Backups copies local files aside before a pull overwrites them.
type Backups struct {
	Fs  afero.Fs
	Dir string

	// Now is replaced in tests.
	Now func() time.Time
}

func (b Backups) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

// Save copies the files behind item to <Dir>/<name>/<timestamp>-<basename>
// and returns the copies made. A missing local file needs no backup.
func (b Backups) Save(item manifest.Item, path string) ([]string, error) {
	sources := []string{path}
	if item.Kind == manifest.KindSSHKey {
		sources = append(sources, path+".pub")
	}

	stamp := b.now().Format(backupStamp)
	var saved []string
	for _, src := range sources {
		if _, err := b.Fs.Stat(src); err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return saved, fmt.Errorf("%w: backing up %s: %w", kerrors.ErrIO, src, err)
		}

		dst, err := b.target(item.Name, stamp, filepath.Base(src))
		if err != nil {
			return saved, err
		}
		if err := copyFile(b.Fs, src, dst); err != nil {
			return saved, fmt.Errorf("%w: backing up %s: %w", kerrors.ErrIO, src, err)
		}
		saved = append(saved, dst)
	}
	return saved, nil
}

// target picks a path that does not exist yet, so two backups within the
// same second never overwrite each other.
func (b Backups) target(name, stamp, base string) (string, error) {
	dir := filepath.Join(b.Dir, name)
	candidate := filepath.Join(dir, stamp+"-"+base)
	for i := 1; ; i++ {
		_, err := b.Fs.Stat(candidate)
		if errors.Is(err, iofs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", kerrors.ErrIO, err)
		}
		candidate = filepath.Join(dir, stamp+"."+strconv.Itoa(i)+"-"+base)
	}
}

// SaveRemote keeps a copy of content fetched from the remote store before it
// is deleted there. The copy lands next to the local backups of the item as
// <timestamp>-<name>.remote.
func (b Backups) SaveRemote(item manifest.Item, content []byte) (string, error) {
	dst, err := b.target(item.Name, b.now().Format(backupStamp), item.Name+".remote")
	if err != nil {
		return "", err
	}
	if err := b.Fs.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return "", fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if err := afero.WriteFile(b.Fs, dst, content, privateFileMode); err != nil {
		return "", fmt.Errorf("%w: saving remote copy of %s: %w", kerrors.ErrIO, item.Name, err)
	}
	return dst, nil
}
