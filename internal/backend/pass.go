package backend

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
)

// Pass stores items in the standard unix password store. Reads and writes go
// through the pass CLI so gpg-agent handles decryption; existence and listing
// look at the store directory directly.
type Pass struct {
	binary   string
	storeDir string
	runner   Runner
	fs       afero.Fs
	log      logger.Logger
}

func NewPass(opts Options) *Pass {
	dir := opts.PassStoreDir
	if dir == "" {
		dir = os.Getenv("PASSWORD_STORE_DIR")
	}
	if dir == "" {
		dir = filepath.Join(opts.Home, ".password-store")
	}
	return &Pass{
		binary:   opts.binary("pass"),
		storeDir: dir,
		runner:   opts.runner(),
		fs:       opts.fs(),
		log:      opts.Logger,
	}
}

func (p *Pass) Name() string { return "pass" }

// StoreDir is the password store root in use.
func (p *Pass) StoreDir() string { return p.storeDir }

func (p *Pass) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := Command{
		Name:  p.binary,
		Args:  args,
		Stdin: stdin,
		Env:   []string{"PASSWORD_STORE_DIR=" + p.storeDir},
	}
	p.log.Debugf("pass: running %s", cmd)
	out, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return nil, classifyPass(err)
	}
	return out, nil
}

func classifyPass(err error) error {
	switch {
	case stderrContains(err, "is not in the password store"):
		return fmt.Errorf("%w: %w", kerrors.ErrNotFound, err)
	case stderrContains(err, "decryption failed", "no secret key", "inappropriate ioctl", "operation cancelled"):
		return fmt.Errorf("%w: gpg could not decrypt: %w", kerrors.ErrAuth, err)
	case stderrContains(err, "you must run", "pass init"):
		return fmt.Errorf("%w: password store is not initialised: %w", kerrors.ErrBackendUnavailable, err)
	}
	return err
}

func entryPath(name string, loc Location) string {
	if loc == "" {
		return name
	}
	return path.Join(string(loc), name)
}

func (p *Pass) Exists(ctx context.Context, name string, loc Location) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkName(name); err != nil {
		return false, err
	}
	if err := checkLocation(loc); err != nil {
		return false, err
	}
	_, err := p.fs.Stat(filepath.Join(p.storeDir, filepath.FromSlash(entryPath(name, loc))+".gpg"))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, iofs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
}

func (p *Pass) Read(ctx context.Context, name string, loc Location) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := checkLocation(loc); err != nil {
		return nil, err
	}
	return p.run(ctx, nil, "show", entryPath(name, loc))
}

func (p *Pass) Write(ctx context.Context, name string, loc Location, content []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkLocation(loc); err != nil {
		return err
	}
	_, err := p.run(ctx, content, "insert", "--multiline", "--force", entryPath(name, loc))
	return err
}

func (p *Pass) List(ctx context.Context, loc Location) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkLocation(loc); err != nil {
		return nil, err
	}
	dir := filepath.Join(p.storeDir, filepath.FromSlash(string(loc)))
	entries, err := afero.ReadDir(p.fs, dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: listing %s: %w", kerrors.ErrIO, dir, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gpg") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".gpg"))
	}
	sort.Strings(names)
	return names, nil
}

func (p *Pass) Delete(ctx context.Context, name string, loc Location) error {
	exists, err := p.Exists(ctx, name, loc)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s in %s", kerrors.ErrNotFound, name, loc)
	}
	_, err = p.run(ctx, nil, "rm", "--force", entryPath(name, loc))
	return err
}
