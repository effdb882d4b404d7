package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
)

const (
	bwItemTypeSecureNote = 2
	bwNoteTypeGeneric    = 0
)

// Bitwarden stores items as secure notes through the bw CLI.
type Bitwarden struct {
	binary  string
	session string
	runner  Runner
	log     logger.Logger

	mu       sync.Mutex
	unlocked bool
	folders  map[Location]string
}

type bwItem struct {
	ID         string        `json:"id,omitempty"`
	Type       int           `json:"type"`
	Name       string        `json:"name"`
	Notes      string        `json:"notes"`
	FolderID   *string       `json:"folderId"`
	SecureNote *bwSecureNote `json:"secureNote,omitempty"`
}

type bwSecureNote struct {
	Type int `json:"type"`
}

type bwFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewBitwarden(opts Options) *Bitwarden {
	return &Bitwarden{
		binary:  opts.binary("bw"),
		session: opts.Session,
		runner:  opts.runner(),
		log:     opts.Logger,
		folders: make(map[Location]string),
	}
}

func (b *Bitwarden) Name() string { return "bitwarden" }

func (b *Bitwarden) run(ctx context.Context, args ...string) ([]byte, error) {
	return b.runInput(ctx, nil, args...)
}

// runInput passes encoded payloads on stdin; bw reads them from there when
// the positional argument is omitted.
func (b *Bitwarden) runInput(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := Command{Name: b.binary, Args: args, Stdin: stdin}
	if b.session != "" {
		cmd.Env = []string{"BW_SESSION=" + b.session}
	}
	b.log.Debugf("bitwarden: running %s", cmd)
	out, err := b.runner.Run(ctx, cmd)
	if err != nil {
		return nil, classifyBitwarden(err)
	}
	return out, nil
}

func classifyBitwarden(err error) error {
	switch {
	case stderrContains(err, "vault is locked", "you are not logged in", "invalid master password", "session key is invalid"):
		return fmt.Errorf("%w: %w", kerrors.ErrAuth, err)
	case stderrContains(err, "not found"):
		return fmt.Errorf("%w: %w", kerrors.ErrNotFound, err)
	}
	return err
}

// ensureUnlocked checks bw status once per process. Only success is cached
// so a vault unlocked mid-run is picked up by the next item.
func (b *Bitwarden) ensureUnlocked(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unlocked {
		return nil
	}

	out, err := b.run(ctx, "status")
	if err != nil {
		return err
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(out, &status); err != nil {
		return fmt.Errorf("%w: unreadable bw status output: %w", kerrors.ErrBackendUnavailable, err)
	}
	switch status.Status {
	case "unlocked":
		b.unlocked = true
		return nil
	case "locked":
		return fmt.Errorf("%w: bitwarden vault is locked; run `bw unlock` and export BW_SESSION", kerrors.ErrAuth)
	case "unauthenticated":
		return fmt.Errorf("%w: not logged in to bitwarden; run `bw login`", kerrors.ErrAuth)
	default:
		return fmt.Errorf("%w: unexpected bw status %q", kerrors.ErrAuth, status.Status)
	}
}

// folderID resolves loc to a folder id. ok is false when the folder does not
// exist yet.
func (b *Bitwarden) folderID(ctx context.Context, loc Location) (id string, ok bool, err error) {
	if loc == "" {
		return "", true, nil
	}

	b.mu.Lock()
	cached, hit := b.folders[loc]
	b.mu.Unlock()
	if hit {
		return cached, true, nil
	}

	out, err := b.run(ctx, "list", "folders", "--search", string(loc))
	if err != nil {
		return "", false, err
	}
	var folders []bwFolder
	if err := json.Unmarshal(out, &folders); err != nil {
		return "", false, fmt.Errorf("parsing bw folder list: %w", err)
	}
	for _, f := range folders {
		if f.Name == string(loc) {
			b.mu.Lock()
			b.folders[loc] = f.ID
			b.mu.Unlock()
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

func (b *Bitwarden) createFolder(ctx context.Context, loc Location) (string, error) {
	payload, err := json.Marshal(bwFolder{Name: string(loc)})
	if err != nil {
		return "", err
	}
	out, err := b.runInput(ctx, encodePayload(payload), "create", "folder")
	if err != nil {
		return "", fmt.Errorf("creating folder %q: %w", loc, err)
	}
	var folder bwFolder
	if err := json.Unmarshal(out, &folder); err != nil {
		return "", fmt.Errorf("parsing created folder: %w", err)
	}
	b.mu.Lock()
	b.folders[loc] = folder.ID
	b.mu.Unlock()
	return folder.ID, nil
}

func (b *Bitwarden) listItems(ctx context.Context, loc Location, search string) ([]bwItem, bool, error) {
	if err := b.ensureUnlocked(ctx); err != nil {
		return nil, false, err
	}
	if err := checkLocation(loc); err != nil {
		return nil, false, err
	}
	folder, ok, err := b.folderID(ctx, loc)
	if err != nil || !ok {
		return nil, ok, err
	}

	args := []string{"list", "items"}
	if search != "" {
		args = append(args, "--search", search)
	}
	if folder != "" {
		args = append(args, "--folderid", folder)
	}
	out, err := b.run(ctx, args...)
	if err != nil {
		return nil, true, err
	}
	var items []bwItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, true, fmt.Errorf("parsing bw item list: %w", err)
	}

	notes := items[:0]
	for _, item := range items {
		if item.Type == bwItemTypeSecureNote {
			notes = append(notes, item)
		}
	}
	return notes, true, nil
}

// find returns the single secure note called name in loc.
func (b *Bitwarden) find(ctx context.Context, name string, loc Location) (bwItem, error) {
	if err := checkName(name); err != nil {
		return bwItem{}, err
	}
	items, folderExists, err := b.listItems(ctx, loc, name)
	if err != nil {
		return bwItem{}, err
	}
	if !folderExists {
		return bwItem{}, fmt.Errorf("%w: folder %q does not exist", kerrors.ErrNotFound, loc)
	}

	var matches []bwItem
	for _, item := range items {
		if item.Name == name {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return bwItem{}, fmt.Errorf("%w: %s in %s", kerrors.ErrNotFound, name, loc)
	case 1:
		return matches[0], nil
	default:
		return bwItem{}, fmt.Errorf("%w: %d bitwarden items named %q in %s", kerrors.ErrConflict, len(matches), name, loc)
	}
}

func encodePayload(payload []byte) []byte {
	return []byte(base64.StdEncoding.EncodeToString(payload))
}

func (b *Bitwarden) Exists(ctx context.Context, name string, loc Location) (bool, error) {
	_, err := b.find(ctx, name, loc)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kerrors.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (b *Bitwarden) Read(ctx context.Context, name string, loc Location) ([]byte, error) {
	item, err := b.find(ctx, name, loc)
	if err != nil {
		return nil, err
	}
	return decodeNote(item.Notes)
}

func (b *Bitwarden) Write(ctx context.Context, name string, loc Location, content []byte) error {
	item, err := b.find(ctx, name, loc)
	switch {
	case err == nil:
		return b.edit(ctx, item.ID, content)
	case !errors.Is(err, kerrors.ErrNotFound):
		return err
	}

	folder, ok, err := b.folderID(ctx, loc)
	if err != nil {
		return err
	}
	if !ok {
		if folder, err = b.createFolder(ctx, loc); err != nil {
			return err
		}
	}

	fresh := bwItem{
		Type:       bwItemTypeSecureNote,
		Name:       name,
		Notes:      encodeNote(content),
		SecureNote: &bwSecureNote{Type: bwNoteTypeGeneric},
	}
	if folder != "" {
		fresh.FolderID = &folder
	}
	payload, err := json.Marshal(fresh)
	if err != nil {
		return err
	}
	_, err = b.runInput(ctx, encodePayload(payload), "create", "item")
	return err
}

// edit rewrites only the notes of an existing item. The full item is
// fetched first because bw edit replaces every field it is given.
func (b *Bitwarden) edit(ctx context.Context, id string, content []byte) error {
	out, err := b.run(ctx, "get", "item", id)
	if err != nil {
		return err
	}
	var full map[string]any
	if err := json.Unmarshal(out, &full); err != nil {
		return fmt.Errorf("parsing bw item %s: %w", id, err)
	}
	full["notes"] = encodeNote(content)
	payload, err := json.Marshal(full)
	if err != nil {
		return err
	}
	_, err = b.runInput(ctx, encodePayload(payload), "edit", "item", id)
	return err
}

func (b *Bitwarden) List(ctx context.Context, loc Location) ([]string, error) {
	items, _, err := b.listItems(ctx, loc, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Bitwarden) Delete(ctx context.Context, name string, loc Location) error {
	item, err := b.find(ctx, name, loc)
	if err != nil {
		return err
	}
	_, err = b.run(ctx, "delete", "item", item.ID)
	return err
}
