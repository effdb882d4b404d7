package vault

import (
	"bytes"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"

	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	"github.com/PolarWolf314/dotvault/internal/manifest"
)

// publicKeyMarker separates the private and public halves of an sshkey item
// in its remote entry.
const publicKeyMarker = "-----DOTVAULT PUBLIC KEY-----"

const (
	privateFileMode iofs.FileMode = 0600
	publicFileMode  iofs.FileMode = 0644
)

// Local reads and writes the on-disk side of items.
type Local struct {
	Fs    afero.Fs
	Paths configs.Paths
}

// Resolve expands the item's anchored path.
func (l Local) Resolve(item manifest.Item) (string, error) {
	p, err := l.Paths.Expand(item.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return p, nil
}

// Read returns the item's content as it would be stored remotely. ok is
// false when the file does not exist.
func (l Local) Read(item manifest.Item) (content []byte, ok bool, err error) {
	path, err := l.Resolve(item)
	if err != nil {
		return nil, false, err
	}

	private, ok, err := l.readFile(path)
	if err != nil || !ok {
		return nil, ok, err
	}
	if item.Kind != manifest.KindSSHKey {
		return private, true, nil
	}

	public, _, err := l.readFile(path + ".pub")
	if err != nil {
		return nil, false, err
	}
	return PackKeyPair(private, public), true, nil
}

// Digest hashes the item's local content.
func (l Local) Digest(item manifest.Item) (Digest, error) {
	content, ok, err := l.Read(item)
	if err != nil || !ok {
		return Absent, err
	}
	return Hash(content), nil
}

func (l Local) readFile(path string) ([]byte, bool, error) {
	data, err := afero.ReadFile(l.Fs, path)
	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, iofs.ErrNotExist):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: reading %s: %w", kerrors.ErrIO, path, err)
	}
}

// Write replaces the item's local files with content. For sshkey items the
// public half goes to <path>.pub; when the content carries none it is
// derived from an unencrypted private key.
func (l Local) Write(item manifest.Item, content []byte) error {
	path, err := l.Resolve(item)
	if err != nil {
		return err
	}

	if item.Kind != manifest.KindSSHKey {
		return writeFileAtomic(l.Fs, path, content, l.modeFor(path, privateFileMode))
	}

	private, public := UnpackKeyPair(content)
	if len(public) == 0 {
		public = DerivePublicKey(private)
	}
	if err := writeFileAtomic(l.Fs, path, private, privateFileMode); err != nil {
		return err
	}
	if len(public) == 0 {
		return nil
	}
	return writeFileAtomic(l.Fs, path+".pub", public, l.modeFor(path+".pub", publicFileMode))
}

// modeFor keeps the permissions of an existing file.
func (l Local) modeFor(path string, fallback iofs.FileMode) iofs.FileMode {
	if info, err := l.Fs.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return fallback
}

// PackKeyPair joins a private key and an optional public key into one blob.
func PackKeyPair(private, public []byte) []byte {
	if len(public) == 0 {
		return private
	}
	var b bytes.Buffer
	b.Write(private)
	if !bytes.HasSuffix(private, []byte("\n")) {
		b.WriteByte('\n')
	}
	b.WriteString(publicKeyMarker)
	b.WriteByte('\n')
	b.Write(public)
	return b.Bytes()
}

// UnpackKeyPair reverses PackKeyPair. Content without the marker is all
// private key.
func UnpackKeyPair(content []byte) (private, public []byte) {
	marker := []byte("\n" + publicKeyMarker + "\n")
	i := bytes.Index(content, marker)
	if i < 0 {
		return content, nil
	}
	return content[:i+1], content[i+len(marker):]
}

// DerivePublicKey returns the authorized_keys line for an unencrypted
// private key, or nil when the key cannot be parsed without a passphrase.
func DerivePublicKey(private []byte) []byte {
	signer, err := ssh.ParsePrivateKey(private)
	if err != nil {
		return nil
	}
	return ssh.MarshalAuthorizedKey(signer.PublicKey())
}

// writeFileAtomic writes data beside path and renames it into place so a
// crash never leaves a truncated file.
func writeFileAtomic(fs afero.Fs, path string, data []byte, perm iofs.FileMode) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating %s: %w", kerrors.ErrIO, dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".dotvault-*")
	if err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	name := tmp.Name()
	fail := func(step string, err error) error {
		_ = fs.Remove(name)
		return fmt.Errorf("%w: %s %s: %w", kerrors.ErrIO, step, path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail("writing", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("closing", err)
	}
	if err := fs.Chmod(name, perm); err != nil {
		return fail("setting permissions on", err)
	}
	if err := fs.Rename(name, path); err != nil {
		return fail("replacing", err)
	}
	return nil
}

// copyFile duplicates src to dst, creating dst's directory.
func copyFile(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	mode := privateFileMode
	if info, err := fs.Stat(src); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	return afero.WriteFile(fs, dst, data, mode)
}
