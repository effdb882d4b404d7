package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/spf13/afero"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
)

const ageSuffix = ".age"

// Age keeps each item as <root>/<location>/<name>.age, encrypted to the
// X25519 recipients derived from the configured identity file. It needs no
// external tool and no session.
type Age struct {
	root         string
	identityFile string
	fs           afero.Fs
	log          logger.Logger

	mu         sync.Mutex
	identities []age.Identity
	recipients []age.Recipient
}

func NewAge(opts Options) (*Age, error) {
	if opts.AgeStoreDir == "" {
		return nil, fmt.Errorf("%w: age backend needs a store directory", kerrors.ErrInvalidConfig)
	}
	if opts.AgeIdentity == "" {
		return nil, fmt.Errorf("%w: age backend needs an identity file", kerrors.ErrInvalidConfig)
	}
	return &Age{
		root:         opts.AgeStoreDir,
		identityFile: opts.AgeIdentity,
		fs:           opts.fs(),
		log:          opts.Logger,
	}, nil
}

func (a *Age) Name() string { return "age" }

// keys loads the identity file on first use.
func (a *Age) keys() ([]age.Identity, []age.Recipient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.identities != nil {
		return a.identities, a.recipients, nil
	}

	data, err := afero.ReadFile(a.fs, a.identityFile)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: age identity %s does not exist", kerrors.ErrAuth, a.identityFile)
		}
		return nil, nil, fmt.Errorf("%w: reading age identity: %w", kerrors.ErrAuth, err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parsing age identity %s: %w", kerrors.ErrAuth, a.identityFile, err)
	}

	var recipients []age.Recipient
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			recipients = append(recipients, x.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, nil, fmt.Errorf("%w: %s holds no X25519 identity", kerrors.ErrAuth, a.identityFile)
	}

	a.log.Debugf("age: loaded %d identities from %s", len(identities), a.identityFile)
	a.identities, a.recipients = identities, recipients
	return identities, recipients, nil
}

func (a *Age) dir(loc Location) (string, error) {
	if err := checkLocation(loc); err != nil {
		return "", err
	}
	return filepath.Join(a.root, filepath.FromSlash(string(loc))), nil
}

func (a *Age) file(name string, loc Location) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	dir, err := a.dir(loc)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+ageSuffix), nil
}

func (a *Age) Exists(ctx context.Context, name string, loc Location) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, _, err := a.keys(); err != nil {
		return false, err
	}
	file, err := a.file(name, loc)
	if err != nil {
		return false, err
	}
	_, err = a.fs.Stat(file)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, iofs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
}

func (a *Age) Read(ctx context.Context, name string, loc Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identities, _, err := a.keys()
	if err != nil {
		return nil, err
	}
	file, err := a.file(name, loc)
	if err != nil {
		return nil, err
	}

	f, err := a.fs.Open(file)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s in %s", kerrors.ErrNotFound, name, loc)
		}
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	defer f.Close()

	r, err := age.Decrypt(f, identities...)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("%w: %s was encrypted to a different key", kerrors.ErrAuth, name)
		}
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return content, nil
}

// Write encrypts to a temp file beside the target and renames it into place.
func (a *Age) Write(ctx context.Context, name string, loc Location, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, recipients, err := a.keys()
	if err != nil {
		return err
	}
	file, err := a.file(name, loc)
	if err != nil {
		return err
	}

	var sealed bytes.Buffer
	w, err := age.Encrypt(&sealed, recipients...)
	if err != nil {
		return fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("encrypting %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", name, err)
	}

	dir := filepath.Dir(file)
	if err := a.fs.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	tmp, err := afero.TempFile(a.fs, dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed.Bytes()); err != nil {
		_ = tmp.Close()
		_ = a.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = a.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if err := a.fs.Rename(tmpName, file); err != nil {
		_ = a.fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return nil
}

func (a *Age) List(ctx context.Context, loc Location) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := a.keys(); err != nil {
		return nil, err
	}
	dir, err := a.dir(loc)
	if err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), ageSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ageSuffix))
	}
	sort.Strings(names)
	return names, nil
}

func (a *Age) Delete(ctx context.Context, name string, loc Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := a.keys(); err != nil {
		return err
	}
	file, err := a.file(name, loc)
	if err != nil {
		return err
	}
	if err := a.fs.Remove(file); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("%w: %s in %s", kerrors.ErrNotFound, name, loc)
		}
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return nil
}
