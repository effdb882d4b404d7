package manifest

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

const validYAML = `
location: dotfiles
items:
  - name: Git-Config
    path: ~/.gitconfig
    kind: file
    required: true
    backup: true
  - name: SSH-Personal
    path: ~/.ssh/id_ed25519
    kind: sshKeyPair
  - name: Shell-Local
    path: ${HOME}/.zshrc.local
    kind: plainFile
    sync: false
`

func TestParseValidYAML(t *testing.T) {
	m, err := Parse("items.yaml", []byte(validYAML), Options{})
	require.NoError(t, err)

	assert.Equal(t, "dotfiles", m.Location)
	require.Len(t, m.Items, 3)

	git, ok := m.Get("Git-Config")
	require.True(t, ok)
	assert.Equal(t, KindFile, git.Kind)
	assert.True(t, git.Required)
	assert.True(t, git.Sync, "sync defaults to true")
	assert.True(t, git.Backup)
	assert.True(t, git.Protected, "Git- prefix is protected by default")

	ssh, _ := m.Get("SSH-Personal")
	assert.Equal(t, KindSSHKey, ssh.Kind)
	assert.True(t, ssh.Protected)

	shell, _ := m.Get("Shell-Local")
	assert.False(t, shell.Sync)
	assert.False(t, shell.Protected)

	assert.Equal(t, []string{"Git-Config", "SSH-Personal"}, namesOf(m.Syncable()))
	assert.Equal(t, []string{"Git-Config"}, namesOf(m.Required()))
	assert.Empty(t, m.Warnings)
}

func TestParseJSONWithComments(t *testing.T) {
	doc := `{
  // personal machines only
  "location": "Private",
  "items": [
    {"name": "AWS-Credentials", "path": "~/.aws/credentials", "kind": "file", "backup": true}, // trailing comma ok
  ]
}`
	m, err := Parse("items.json", []byte(doc), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Private", m.Location)
	item, ok := m.Get("AWS-Credentials")
	require.True(t, ok)
	assert.True(t, item.Protected)
}

func TestParseBatchesAllViolations(t *testing.T) {
	doc := `
items:
  - name: Git-Config
    path: .gitconfig
    kind: file
  - name: ""
    path: ~/.npmrc
    kind: file
  - name: Docker
    path: ~/.docker/config.json
    kind: symlink
  - name: Git-Config
    path: ~/.gitconfig
    kind: file
  - name: Kube
    path: ~/.kube/config
    kind: file
    backup: "yes"
`
	_, err := Parse("items.yaml", []byte(doc), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, kerrors.ErrValidation))

	var verr *kerrors.ValidationError
	require.True(t, errors.As(err, &verr))

	got := map[string]string{}
	for _, v := range verr.Violations {
		got[v.Item+"/"+v.Field] = v.Message
	}
	assert.Contains(t, got, "Git-Config/path")
	assert.Contains(t, got, "#2/name")
	assert.Contains(t, got, "Docker/kind")
	assert.Contains(t, got, "Kube/backup")
	assert.Len(t, verr.Violations, 4, "the second Git-Config is never compared because the first failed")
}

func TestParseDuplicateNames(t *testing.T) {
	doc := `
items:
  - {name: Git-Config, path: ~/.gitconfig, kind: file}
  - {name: Git-Config, path: ~/.config/git/config, kind: file}
`
	_, err := Parse("items.yaml", []byte(doc), Options{})
	var verr *kerrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "duplicate name", verr.Violations[0].Message)
}

func TestLowercaseNameIsOnlyAWarning(t *testing.T) {
	doc := `
items:
  - {name: npmrc, path: ~/.npmrc, kind: file, color: blue}
`
	m, err := Parse("items.yaml", []byte(doc), Options{})
	require.NoError(t, err)
	require.Len(t, m.Warnings, 2)
	assert.Contains(t, m.Warnings[0], "uppercase")
	assert.Contains(t, m.Warnings[1], `unknown field "color"`)
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := Parse("items.yaml", []byte("items: [unclosed"), Options{})
	var verr *kerrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "document", verr.Violations[0].Field)
}

func TestCustomProtectedPrefixes(t *testing.T) {
	doc := `
items:
  - {name: Vault-Token, path: ~/.vault-token, kind: file}
  - {name: SSH-Work, path: ~/.ssh/work, kind: sshkey}
`
	m, err := Parse("items.yaml", []byte(doc), Options{ProtectedPrefixes: []string{"Vault-"}})
	require.NoError(t, err)

	vault, _ := m.Get("Vault-Token")
	ssh, _ := m.Get("SSH-Work")
	assert.True(t, vault.Protected)
	assert.False(t, ssh.Protected)
}

func TestExplicitProtectedOverridesPrefix(t *testing.T) {
	doc := `
items:
  - {name: Git-Ignore, path: ~/.gitignore_global, kind: file, protected: false}
  - {name: Git-Config, path: ~/.gitconfig, kind: file, protected: null}
  - {name: Notes, path: ~/notes.md, kind: file, protected: true}
`
	m, err := Parse("items.yaml", []byte(doc), Options{})
	require.NoError(t, err)

	ignore, _ := m.Get("Git-Ignore")
	config, _ := m.Get("Git-Config")
	notes, _ := m.Get("Notes")
	assert.False(t, ignore.Protected, "protected: false lifts the prefix protection")
	assert.True(t, config.Protected, "a null value falls back to the prefixes")
	assert.True(t, notes.Protected)
}

func TestSelect(t *testing.T) {
	m, err := Parse("items.yaml", []byte(validYAML), Options{})
	require.NoError(t, err)

	all, err := m.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	named, err := m.Select([]string{"Shell-Local", "Shell-Local"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Shell-Local"}, namesOf(named))

	_, err = m.Select([]string{"Git-Config", "Nope"})
	assert.ErrorIs(t, err, kerrors.ErrUnknownItem)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/cfg/items.yaml", Options{})
	assert.ErrorIs(t, err, kerrors.ErrManifestNotFound)
}

func TestExampleManifestIsValid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/items.yaml", []byte(Example), 0600))

	m, err := Load(fs, "/cfg/items.yaml", Options{})
	require.NoError(t, err)
	assert.Len(t, m.Items, 4)
	assert.Empty(t, m.Warnings)
}

func namesOf(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}
