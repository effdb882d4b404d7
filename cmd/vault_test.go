package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/dotvault/internal/backend"
	"github.com/PolarWolf314/dotvault/internal/configs"
	"github.com/PolarWolf314/dotvault/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLocation backend.Location = "dotfiles"

const cmdTestManifest = `location: dotfiles
items:
  - name: Git-Config
    path: ~/.gitconfig
    kind: file
    required: true
    backup: true
  - name: Shell-Local
    path: ~/.zshrc.local
    kind: file
`

func setupVault(t *testing.T) configs.Paths {
	t.Helper()
	paths := setupTestEnvironment(t)
	writeTestFile(t, paths.DefaultManifest(), cmdTestManifest)
	return paths
}

func TestVaultSyncPushesLocalFile(t *testing.T) {
	paths := setupVault(t)
	mem := useMemoryBackend(t)
	writeTestFile(t, filepath.Join(paths.Home, ".gitconfig"), "[user]\n\tname = test\n")

	output, code, err := runCLI(t, "vault", "sync", "Git-Config")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code, output)
	assert.Contains(t, output, "'Git-Config' pushed")

	content, ok := mem.Get("Git-Config", testLocation)
	require.True(t, ok)
	assert.Equal(t, "[user]\n\tname = test\n", string(content))
}

func TestVaultSyncReportsConflict(t *testing.T) {
	paths := setupVault(t)
	mem := useMemoryBackend(t)
	writeTestFile(t, filepath.Join(paths.Home, ".gitconfig"), "local\n")
	mem.Put("Git-Config", testLocation, []byte("remote\n"))

	output, code, err := runCLI(t, "vault", "sync", "Git-Config")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitConflicts, code, output)
	assert.Contains(t, output, "conflict")
	assert.Contains(t, output, "Resolve Git-Config with --force-local")

	assert.Equal(t, "local\n", readTestFile(t, filepath.Join(paths.Home, ".gitconfig")))
	content, _ := mem.Get("Git-Config", testLocation)
	assert.Equal(t, "remote\n", string(content))
}

func TestVaultSyncReportsNothingToDo(t *testing.T) {
	paths := setupVault(t)
	useMemoryBackend(t)
	writeTestFile(t, filepath.Join(paths.Home, ".gitconfig"), "v1\n")

	output, _, err := runCLI(t, "vault", "sync")
	require.NoError(t, err)
	assert.NotContains(t, output, "Nothing to do")

	output, code, err := runCLI(t, "vault", "sync")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code, output)
	assert.Contains(t, output, "Nothing to do")
}

func TestVaultSyncForceFlagsAreExclusive(t *testing.T) {
	setupVault(t)
	useMemoryBackend(t)

	_, _, err := runCLI(t, "vault", "sync", "--force-local", "--force-vault")
	assert.Error(t, err)
}

func TestVaultPullWritesLocalFile(t *testing.T) {
	paths := setupVault(t)
	mem := useMemoryBackend(t)
	mem.Put("Shell-Local", testLocation, []byte("export EDITOR=vim\n"))

	output, code, err := runCLI(t, "vault", "pull", "Shell-Local")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code, output)
	assert.Equal(t, "export EDITOR=vim\n", readTestFile(t, filepath.Join(paths.Home, ".zshrc.local")))
}

func TestVaultPushRequiresNamesOrAll(t *testing.T) {
	setupVault(t)
	useMemoryBackend(t)

	_, _, err := runCLI(t, "vault", "push")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")

	_, _, err = runCLI(t, "vault", "push", "--all", "Git-Config")
	require.Error(t, err)
}

func TestVaultPushUnknownItemIsInvalid(t *testing.T) {
	setupVault(t)
	useMemoryBackend(t)

	output, code, err := runCLI(t, "vault", "push", "Nope")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitInvalid, code)
	assert.Contains(t, output, "Nope")
}

func TestVaultValidate(t *testing.T) {
	t.Run("ValidManifest", func(t *testing.T) {
		setupVault(t)

		output, code, err := runCLI(t, "vault", "validate")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitOK, code)
		assert.Contains(t, output, "2 items")
		assert.Contains(t, output, "Git-Config, Shell-Local")
	})

	t.Run("InvalidManifest", func(t *testing.T) {
		paths := setupTestEnvironment(t)
		writeTestFile(t, paths.DefaultManifest(), "items:\n  - name: Bad\n    path: relative/path\n    kind: file\n")

		output, code, err := runCLI(t, "vault", "validate")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitInvalid, code)
		assert.Contains(t, output, "✗")
	})

	t.Run("MissingManifest", func(t *testing.T) {
		setupTestEnvironment(t)

		output, code, err := runCLI(t, "vault", "validate")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitInvalid, code)
		assert.Contains(t, output, "dotvault config init")
	})
}

func TestVaultDriftJSON(t *testing.T) {
	paths := setupVault(t)
	useMemoryBackend(t)
	gitconfig := filepath.Join(paths.Home, ".gitconfig")
	writeTestFile(t, gitconfig, "v1\n")

	_, code, err := runCLI(t, "vault", "push", "Git-Config")
	require.NoError(t, err)
	require.Equal(t, vault.ExitOK, code)

	writeTestFile(t, gitconfig, "v2\n")

	output, code, err := runCLI(t, "vault", "drift", "--json")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitDrift, code)

	var report vault.DriftReport
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &report), output)
	assert.True(t, report.Available)

	statuses := map[string]vault.DriftStatus{}
	for _, e := range report.Entries {
		statuses[e.Name] = e.Status
	}
	assert.Equal(t, vault.DriftModified, statuses["Git-Config"])
}

func TestVaultDriftWithoutStateIsUnavailable(t *testing.T) {
	setupVault(t)

	output, code, err := runCLI(t, "vault", "drift")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code)
	assert.Contains(t, output, "unavailable")
}

func TestVaultDelete(t *testing.T) {
	t.Run("ProtectedWithoutForceIsRefused", func(t *testing.T) {
		setupVault(t)
		mem := useMemoryBackend(t)
		mem.Put("Git-Config", testLocation, []byte("keep\n"))

		output, code, err := runCLI(t, "vault", "delete", "Git-Config")
		require.NoError(t, err)
		assert.NotEqual(t, vault.ExitOK, code)
		assert.Contains(t, output, "--confirm")

		_, ok := mem.Get("Git-Config", testLocation)
		assert.True(t, ok)
	})

	t.Run("ProtectedWithWrongConfirmationIsRefused", func(t *testing.T) {
		setupVault(t)
		mem := useMemoryBackend(t)
		mem.Put("Git-Config", testLocation, []byte("keep\n"))

		_, code, err := runCLI(t, "vault", "delete", "Git-Config", "--force", "--confirm", "git-config")
		require.NoError(t, err)
		assert.NotEqual(t, vault.ExitOK, code)

		_, ok := mem.Get("Git-Config", testLocation)
		assert.True(t, ok)
	})

	t.Run("ProtectedWithConfirmationBacksUp", func(t *testing.T) {
		paths := setupVault(t)
		mem := useMemoryBackend(t)
		mem.Put("Git-Config", testLocation, []byte("gone\n"))

		output, code, err := runCLI(t, "vault", "delete", "Git-Config", "--force", "--confirm", "Git-Config")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitOK, code, output)
		assert.Contains(t, output, "Deleted")

		_, ok := mem.Get("Git-Config", testLocation)
		assert.False(t, ok)

		matches, err := filepath.Glob(filepath.Join(paths.BackupDir, "Git-Config", "*.remote"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("UnprotectedWithYes", func(t *testing.T) {
		setupVault(t)
		mem := useMemoryBackend(t)
		mem.Put("Shell-Local", testLocation, []byte("x\n"))

		output, code, err := runCLI(t, "vault", "delete", "Shell-Local", "--yes")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitOK, code, output)

		_, ok := mem.Get("Shell-Local", testLocation)
		assert.False(t, ok)
	})
}

func TestVaultListMarksUnmanagedEntries(t *testing.T) {
	setupVault(t)
	mem := useMemoryBackend(t)
	mem.Put("Git-Config", testLocation, []byte("a"))
	mem.Put("Old-Thing", testLocation, []byte("b"))

	output, code, err := runCLI(t, "vault", "list")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code, output)
	assert.Contains(t, output, "Old-Thing (not in manifest)")
	assert.Contains(t, output, "Shell-Local")
}

func TestVaultStatusJSON(t *testing.T) {
	paths := setupVault(t)
	useMemoryBackend(t)
	writeTestFile(t, filepath.Join(paths.Home, ".zshrc.local"), "x\n")

	output, code, err := runCLI(t, "vault", "status", "--json")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code)

	var result struct {
		Items []struct {
			Name         string `json:"name"`
			LocalPresent bool   `json:"local_present"`
		} `json:"items"`
		MissingRequired []string `json:"missing_required"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &result), output)
	require.Len(t, result.Items, 2)
	assert.Equal(t, []string{"Git-Config"}, result.MissingRequired)
}

func TestVaultResetState(t *testing.T) {
	paths := setupVault(t)
	useMemoryBackend(t)
	writeTestFile(t, filepath.Join(paths.Home, ".gitconfig"), "v1\n")

	_, _, err := runCLI(t, "vault", "push", "Git-Config")
	require.NoError(t, err)

	output, code, err := runCLI(t, "vault", "reset-state", "Git-Config")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code)
	assert.Contains(t, output, "Git-Config")

	output, _, err = runCLI(t, "vault", "drift")
	require.NoError(t, err)
	assert.Contains(t, output, "never synced")
}
