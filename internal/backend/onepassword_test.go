package backend

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

const opGitConfig = `{
	"id": "op-1",
	"title": "Git-Config",
	"category": "SECURE_NOTE",
	"fields": [{"id": "notesPlain", "type": "STRING", "purpose": "NOTES", "label": "notesPlain", "value": "user=alice\n"}]
}`

func TestOnePasswordSignedOutIsAuthError(t *testing.T) {
	r := (&scriptedRunner{}).on("whoami", "", stderr("[ERROR] account is not signed in"))
	o := NewOnePassword(Options{Runner: r})

	_, err := o.Read(context.Background(), "Git-Config", "Private")
	assert.ErrorIs(t, err, kerrors.ErrAuth)
	assert.NotErrorIs(t, err, kerrors.ErrNotFound)
}

func TestOnePasswordRead(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{"user_uuid":"u"}`, nil).
		on("item get Git-Config", opGitConfig, nil).
		on("item get", "", stderr(`[ERROR] "SSH-Work" isn't an item in the "Private" vault.`))
	o := NewOnePassword(Options{Runner: r})

	content, err := o.Read(context.Background(), "Git-Config", "Private")
	require.NoError(t, err)
	assert.Equal(t, "user=alice\n", string(content))
	assert.Equal(t, []string{"item", "get", "Git-Config", "--format", "json", "--vault", "Private"}, r.called("item get Git-Config")[0].Args)

	exists, err := o.Exists(context.Background(), "SSH-Work", "Private")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Len(t, r.called("whoami"), 1)
}

func TestOnePasswordRejectsOtherCategories(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{}`, nil).
		on("item get", `{"id":"x","title":"Git-Config","category":"LOGIN","fields":[]}`, nil)
	o := NewOnePassword(Options{Runner: r})

	_, err := o.Read(context.Background(), "Git-Config", "")
	assert.ErrorIs(t, err, kerrors.ErrConflict)
}

func TestOnePasswordWriteCreatesThroughStdin(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{}`, nil).
		on("item get", "", stderr(`"Git-Config" isn't an item.`)).
		on("item create", `{"id":"op-2"}`, nil)
	o := NewOnePassword(Options{Runner: r})

	require.NoError(t, o.Write(context.Background(), "Git-Config", "Private", []byte("user=bob\n")))

	created := r.called("item create")
	require.Len(t, created, 1)
	assert.NotContains(t, created[0].Args, "user=bob\n")

	var tmpl opItem
	require.NoError(t, json.Unmarshal(created[0].Stdin, &tmpl))
	assert.Equal(t, "Git-Config", tmpl.Title)
	assert.Equal(t, opCategorySecureNote, tmpl.Category)
	assert.Equal(t, "user=bob\n", tmpl.notes())
}

func TestOnePasswordWriteEditsExisting(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{}`, nil).
		on("item get", opGitConfig, nil).
		on("item edit op-1", `{}`, nil)
	o := NewOnePassword(Options{Runner: r})

	require.NoError(t, o.Write(context.Background(), "Git-Config", "Private", []byte("user=carol\n")))
	assert.Len(t, r.called("item edit op-1"), 1)
	assert.Empty(t, r.called("item create"))
}

func TestOnePasswordList(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{}`, nil).
		on("item list", `[{"id":"1","title":"Shell-Local","category":"SECURE_NOTE"},{"id":"2","title":"Git-Config","category":"SECURE_NOTE"}]`, nil)
	o := NewOnePassword(Options{Runner: r})

	names, err := o.List(context.Background(), "Private")
	require.NoError(t, err)
	assert.Equal(t, []string{"Git-Config", "Shell-Local"}, names)
}

func TestOnePasswordDeleteMissing(t *testing.T) {
	r := (&scriptedRunner{}).
		on("whoami", `{}`, nil).
		on("item get", "", stderr(`"Git-Config" isn't an item.`))
	o := NewOnePassword(Options{Runner: r})

	assert.ErrorIs(t, o.Delete(context.Background(), "Git-Config", ""), kerrors.ErrNotFound)
	assert.Empty(t, r.called("item delete"))
}
