package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
)

const opCategorySecureNote = "SECURE_NOTE"

// OnePassword stores items as Secure Notes through the op CLI. The note
// body lives in the built-in notesPlain field.
type OnePassword struct {
	binary string
	runner Runner
	log    logger.Logger

	mu       sync.Mutex
	signedIn bool
}

type opField struct {
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Label   string `json:"label,omitempty"`
	Value   string `json:"value"`
}

type opItem struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Fields   []opField `json:"fields"`
}

func (i opItem) notes() string {
	for _, f := range i.Fields {
		if f.ID == "notesPlain" || f.Purpose == "NOTES" {
			return f.Value
		}
	}
	return ""
}

func NewOnePassword(opts Options) *OnePassword {
	return &OnePassword{
		binary: opts.binary("op"),
		runner: opts.runner(),
		log:    opts.Logger,
	}
}

func (o *OnePassword) Name() string { return "onepassword" }

func (o *OnePassword) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := Command{Name: o.binary, Args: args, Stdin: stdin}
	o.log.Debugf("onepassword: running %s", cmd)
	out, err := o.runner.Run(ctx, cmd)
	if err != nil {
		return nil, classifyOnePassword(err)
	}
	return out, nil
}

func classifyOnePassword(err error) error {
	switch {
	case stderrContains(err, "isn't an item", "no item found"):
		return fmt.Errorf("%w: %w", kerrors.ErrNotFound, err)
	case stderrContains(err, "isn't a vault"):
		return fmt.Errorf("%w: %w", kerrors.ErrNotFound, err)
	case stderrContains(err, "more than one item matches"):
		return fmt.Errorf("%w: %w", kerrors.ErrConflict, err)
	case stderrContains(err, "not currently signed in", "you are not signed in", "session expired", "authorization prompt dismissed", "no accounts configured"):
		return fmt.Errorf("%w: %w", kerrors.ErrAuth, err)
	}
	return err
}

func (o *OnePassword) ensureSignedIn(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.signedIn {
		return nil
	}

	if _, err := o.run(ctx, nil, "whoami", "--format", "json"); err != nil {
		if errors.Is(err, kerrors.ErrTimeout) || errors.Is(err, kerrors.ErrBackendUnavailable) {
			return err
		}
		return fmt.Errorf("%w: 1Password CLI is not signed in; run `op signin`: %w", kerrors.ErrAuth, err)
	}
	o.signedIn = true
	return nil
}

func vaultArgs(args []string, loc Location) []string {
	if loc != "" {
		args = append(args, "--vault", string(loc))
	}
	return args
}

func (o *OnePassword) get(ctx context.Context, name string, loc Location) (opItem, error) {
	if err := checkName(name); err != nil {
		return opItem{}, err
	}
	if err := o.ensureSignedIn(ctx); err != nil {
		return opItem{}, err
	}

	out, err := o.run(ctx, nil, vaultArgs([]string{"item", "get", name, "--format", "json"}, loc)...)
	if err != nil {
		return opItem{}, err
	}
	var item opItem
	if err := json.Unmarshal(out, &item); err != nil {
		return opItem{}, fmt.Errorf("parsing op item %s: %w", name, err)
	}
	if item.Category != opCategorySecureNote {
		return opItem{}, fmt.Errorf("%w: 1Password item %q is a %s, not a Secure Note", kerrors.ErrConflict, name, item.Category)
	}
	return item, nil
}

func (o *OnePassword) Exists(ctx context.Context, name string, loc Location) (bool, error) {
	_, err := o.get(ctx, name, loc)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, kerrors.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (o *OnePassword) Read(ctx context.Context, name string, loc Location) ([]byte, error) {
	item, err := o.get(ctx, name, loc)
	if err != nil {
		return nil, err
	}
	return decodeNote(item.notes())
}

// Write pipes a JSON item template to op on stdin so the content never
// appears on the command line.
func (o *OnePassword) Write(ctx context.Context, name string, loc Location, content []byte) error {
	existing, err := o.get(ctx, name, loc)
	if err != nil && !errors.Is(err, kerrors.ErrNotFound) {
		return err
	}

	template := opItem{
		Title:    name,
		Category: opCategorySecureNote,
		Fields: []opField{{
			ID:      "notesPlain",
			Type:    "STRING",
			Purpose: "NOTES",
			Label:   "notesPlain",
			Value:   encodeNote(content),
		}},
	}
	payload, err := json.Marshal(template)
	if err != nil {
		return err
	}

	if existing.ID != "" {
		_, err = o.run(ctx, payload, vaultArgs([]string{"item", "edit", existing.ID, "--format", "json"}, loc)...)
		return err
	}
	_, err = o.run(ctx, payload, vaultArgs([]string{"item", "create", "--format", "json"}, loc)...)
	return err
}

func (o *OnePassword) List(ctx context.Context, loc Location) ([]string, error) {
	if err := checkLocation(loc); err != nil {
		return nil, err
	}
	if err := o.ensureSignedIn(ctx); err != nil {
		return nil, err
	}

	out, err := o.run(ctx, nil, vaultArgs([]string{"item", "list", "--categories", "Secure Note", "--format", "json"}, loc)...)
	if err != nil {
		return nil, err
	}
	var items []opItem
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("parsing op item list: %w", err)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Title)
	}
	sort.Strings(names)
	return names, nil
}

func (o *OnePassword) Delete(ctx context.Context, name string, loc Location) error {
	item, err := o.get(ctx, name, loc)
	if err != nil {
		return err
	}
	_, err = o.run(ctx, nil, vaultArgs([]string{"item", "delete", item.ID}, loc)...)
	return err
}
