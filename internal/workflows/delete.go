package workflows

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	"github.com/PolarWolf314/dotvault/internal/manifest"
)

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	// Name is the manifest item to remove from the remote store.
	Name string

	// Force is required for protected items.
	Force bool

	// Confirm must repeat Name exactly for protected items.
	Confirm string
}

// DeleteResult contains the outcome of a delete operation.
type DeleteResult struct {
	Item     manifest.Item
	Backend  string
	Location string

	// Existed is false when the remote entry was already gone.
	Existed bool

	// Backup is the local copy of the remote content taken before deletion.
	Backup string
}

// CheckDeletion applies the protected-item gate without side effects.
//
// Returns ErrProtected if item is protected and force is not set.
// Returns ErrConfirmationMismatch if confirm does not repeat the item name.
func CheckDeletion(item manifest.Item, force bool, confirm string) error {
	if !item.Protected {
		return nil
	}
	if !force {
		return fmt.Errorf("%w: %s needs --force and --confirm %s", kerrors.ErrProtected, item.Name, item.Name)
	}
	if confirm != item.Name {
		return fmt.Errorf("%w: got %q, want %q", kerrors.ErrConfirmationMismatch, confirm, item.Name)
	}
	return nil
}

// Delete removes one item from the remote store and forgets its baseline.
// Local files are never touched. When the item has backup enabled the
// remote content is copied into the backup directory first.
//
// Returns ErrUnknownItem if the name is not in the manifest.
// Returns ErrProtected or ErrConfirmationMismatch if the protection gate
// refuses; nothing is read or written in that case.
// Returns ErrStateCorrupt if the checksum store must be reset first.
func Delete(ctx context.Context, env *Env, opts DeleteOptions) (*DeleteResult, error) {
	cfg, err := env.LoadConfig()
	if err != nil {
		return nil, err
	}
	m, err := env.loadManifest(cfg)
	if err != nil {
		return nil, err
	}
	item, ok := m.Get(opts.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnknownItem, opts.Name)
	}
	if err := CheckDeletion(item, opts.Force, opts.Confirm); err != nil {
		return nil, err
	}

	store, err := env.openState()
	if err != nil {
		return nil, err
	}
	remote, err := env.backend(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, manifest: m, store: store, remote: remote, location: location(cfg, m)}
	result := &DeleteResult{
		Item:     item,
		Backend:  remote.Name(),
		Location: s.location.String(),
		Existed:  true,
	}

	entry := s.auditEntry(env, "delete")
	entry.Target = item.Name
	defer func() { env.trail().Log(entry) }()

	if item.Backup {
		content, err := remote.Read(ctx, item.Name, s.location)
		switch {
		case err == nil:
			if result.Backup, err = env.backups().SaveRemote(item, content); err != nil {
				entry.Error = err.Error()
				return nil, err
			}
		case errors.Is(err, kerrors.ErrNotFound):
		default:
			entry.Error = err.Error()
			return nil, err
		}
	}

	if err := remote.Delete(ctx, item.Name, s.location); err != nil {
		if !errors.Is(err, kerrors.ErrNotFound) {
			entry.Error = err.Error()
			return nil, err
		}
		result.Existed = false
	}
	env.Log.Infof("deleted %s from %s (%s)", item.Name, remote.Name(), s.location)

	if err := store.Invalidate(item.Name); err != nil {
		entry.Error = err.Error()
		return result, err
	}
	return result, nil
}
