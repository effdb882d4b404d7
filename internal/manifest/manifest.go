// Package manifest loads and validates the item manifest: the user-edited
// list of files dotvault keeps in the remote store.
//
// The manifest is YAML (items.yaml) or JSON with comments (items.json).
// Loading is all-or-nothing: every violation is collected into one
// *errors.ValidationError and no partial manifest is ever returned.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// Kind is the physical shape of an item.
type Kind string

const (
	// KindFile is a single plain file.
	KindFile Kind = "file"
	// KindSSHKey is a private key plus its optional .pub, stored as one remote entry.
	KindSSHKey Kind = "sshkey"
)

// ParseKind accepts the canonical names and their long-form aliases.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "plainfile":
		return KindFile, true
	case "sshkey", "sshkeypair":
		return KindSSHKey, true
	}
	return "", false
}

// Item is one managed file.
type Item struct {
	Name string `json:"name"`
	// Path is the anchored path as written in the manifest (~/, /, $VAR/).
	Path      string `json:"path"`
	Kind      Kind   `json:"kind"`
	Required  bool   `json:"required"`
	Sync      bool   `json:"sync"`
	Backup    bool   `json:"backup"`
	Protected bool   `json:"protected"`
}

// Manifest is a validated item list.
type Manifest struct {
	Path     string
	Location string
	Items    []Item
	Warnings []string

	byName map[string]int
}

// Options tunes derived fields.
type Options struct {
	// ProtectedPrefixes mark items as protected by name. Nil uses the defaults.
	ProtectedPrefixes []string
}

var itemFields = map[string]bool{
	"name": true, "path": true, "kind": true,
	"required": true, "sync": true, "backup": true, "protected": true,
}

// Load reads and validates the manifest at path.
func Load(fs afero.Fs, path string, opts Options) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(path, data, opts)
}

// Parse validates manifest bytes. The format is chosen by the file extension
// of name; anything other than .json/.jsonc is treated as YAML.
func Parse(name string, data []byte, opts Options) (*Manifest, error) {
	verr := &kerrors.ValidationError{Path: name}

	doc, err := decode(name, data)
	if err != nil {
		verr.Violations = append(verr.Violations, kerrors.Violation{Field: "document", Message: err.Error()})
		return nil, verr
	}

	prefixes := opts.ProtectedPrefixes
	if prefixes == nil {
		prefixes = configs.DefaultProtectedPrefixes
	}

	m := &Manifest{Path: name, byName: make(map[string]int)}

	for _, key := range sortedKeys(doc) {
		if key != "location" && key != "items" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("unknown top-level key %q ignored", key))
		}
	}

	if raw, ok := doc["location"]; ok && raw != nil {
		location, ok := raw.(string)
		if !ok {
			verr.Violations = append(verr.Violations, kerrors.Violation{Field: "location", Message: "must be a string"})
		}
		m.Location = strings.TrimSpace(location)
	}

	rawItems, ok := doc["items"]
	if !ok {
		verr.Violations = append(verr.Violations, kerrors.Violation{Field: "items", Message: "missing"})
		return nil, verr
	}
	list, ok := rawItems.([]any)
	if !ok {
		verr.Violations = append(verr.Violations, kerrors.Violation{Field: "items", Message: "must be a list"})
		return nil, verr
	}

	for i, raw := range list {
		item, violations, warnings := parseItem(i, raw, prefixes)
		verr.Violations = append(verr.Violations, violations...)
		m.Warnings = append(m.Warnings, warnings...)
		if len(violations) > 0 {
			continue
		}
		if _, dup := m.byName[item.Name]; dup {
			verr.Violations = append(verr.Violations, kerrors.Violation{Item: item.Name, Field: "name", Message: "duplicate name"})
			continue
		}
		m.byName[item.Name] = len(m.Items)
		m.Items = append(m.Items, item)
	}

	if len(verr.Violations) > 0 {
		return nil, verr
	}
	return m, nil
}

func decode(name string, data []byte) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func parseItem(index int, raw any, prefixes []string) (Item, []kerrors.Violation, []string) {
	label := fmt.Sprintf("#%d", index+1)
	fields, ok := raw.(map[string]any)
	if !ok {
		return Item{}, []kerrors.Violation{{Item: label, Message: "must be a mapping"}}, nil
	}

	var (
		item       Item
		violations []kerrors.Violation
		warnings   []string
	)

	if name, ok := fields["name"].(string); ok {
		item.Name = strings.TrimSpace(name)
	}
	if item.Name != "" {
		label = item.Name
	}
	fail := func(field, msg string) {
		violations = append(violations, kerrors.Violation{Item: label, Field: field, Message: msg})
	}

	switch {
	case item.Name == "":
		fail("name", "required")
	case strings.ContainsAny(item.Name, `/\`) || strings.HasPrefix(item.Name, "."):
		fail("name", "must not contain path separators or start with '.'")
	case !unicode.IsUpper([]rune(item.Name)[0]):
		warnings = append(warnings, fmt.Sprintf("item %q: name should start with an uppercase letter", item.Name))
	}

	path, _ := fields["path"].(string)
	item.Path = strings.TrimSpace(path)
	switch {
	case item.Path == "":
		fail("path", "required")
	case !configs.HasAnchor(item.Path):
		fail("path", fmt.Sprintf("%q must start with ~/, / or $VAR/", item.Path))
	}

	kindRaw, _ := fields["kind"].(string)
	if kind, ok := ParseKind(kindRaw); ok {
		item.Kind = kind
	} else if kindRaw == "" {
		fail("kind", "required (file or sshkey)")
	} else {
		fail("kind", fmt.Sprintf("%q is not file or sshkey", kindRaw))
	}

	item.Sync = true
	flag := func(field string, dst *bool) {
		v, present := fields[field]
		if !present || v == nil {
			return
		}
		b, ok := v.(bool)
		if !ok {
			fail(field, "must be true or false")
			return
		}
		*dst = b
	}
	flag("required", &item.Required)
	flag("sync", &item.Sync)
	flag("backup", &item.Backup)
	flag("protected", &item.Protected)

	// An explicit protected value wins over the name prefixes.
	if v, set := fields["protected"]; !set || v == nil {
		item.Protected = hasAnyPrefix(item.Name, prefixes)
	}

	for _, key := range sortedKeys(fields) {
		if !itemFields[key] {
			warnings = append(warnings, fmt.Sprintf("item %q: unknown field %q ignored", label, key))
		}
	}

	return item, violations, warnings
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Get returns the item with the given name.
func (m *Manifest) Get(name string) (Item, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Item{}, false
	}
	return m.Items[i], true
}

// Syncable returns the items included in bulk operations.
func (m *Manifest) Syncable() []Item {
	var out []Item
	for _, item := range m.Items {
		if item.Sync {
			out = append(out, item)
		}
	}
	return out
}

// Required returns the items whose absence blocks a complete setup.
func (m *Manifest) Required() []Item {
	var out []Item
	for _, item := range m.Items {
		if item.Required {
			out = append(out, item)
		}
	}
	return out
}

// Select resolves names to items. No names means every syncable item.
// Explicitly named items are returned even when sync is false.
func (m *Manifest) Select(names []string) ([]Item, error) {
	if len(names) == 0 {
		return m.Syncable(), nil
	}

	var (
		out     []Item
		unknown []string
		seen    = make(map[string]bool)
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		item, ok := m.Get(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, item)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnknownItem, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Names lists every item name in manifest order.
func (m *Manifest) Names() []string {
	out := make([]string, len(m.Items))
	for i, item := range m.Items {
		out[i] = item.Name
	}
	return out
}

