package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PolarWolf314/dotvault/internal/configs"
	"github.com/PolarWolf314/dotvault/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	t.Run("WritesConfigAndManifest", func(t *testing.T) {
		paths := setupTestEnvironment(t)

		output, code, err := runCLI(t, "config", "init", "--backend", "pass", "--location", "dotfiles")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitOK, code, output)

		cfg, err := configs.Load(paths, configs.LoadOptions{Environment: map[string]string{}})
		require.NoError(t, err)
		assert.Equal(t, configs.BackendPass, cfg.Backend.Kind)
		assert.Equal(t, "dotfiles", cfg.Backend.Location)
		assert.Contains(t, readTestFile(t, paths.DefaultManifest()), "items:")
	})

	t.Run("KeepsExistingConfigWithoutForce", func(t *testing.T) {
		paths := setupTestEnvironment(t)
		writeTestFile(t, paths.ConfigFile(), "[backend]\nkind = \"onepassword\"\n")

		output, code, err := runCLI(t, "config", "init", "--backend", "pass")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitOK, code)
		assert.Contains(t, output, "already exists")
		assert.Contains(t, readTestFile(t, paths.ConfigFile()), "onepassword")
	})

	t.Run("RejectsUnknownBackend", func(t *testing.T) {
		setupTestEnvironment(t)

		_, code, err := runCLI(t, "config", "init", "--backend", "dropbox")
		require.NoError(t, err)
		assert.Equal(t, vault.ExitInvalid, code)
	})
}

func TestConfigShowJSON(t *testing.T) {
	paths := setupTestEnvironment(t)
	writeTestFile(t, paths.ConfigFile(), "[backend]\nkind = \"pass\"\nlocation = \"dotfiles\"\n")
	t.Setenv("DOTVAULT_BACKEND_SESSION", "secret-token")

	output, code, err := runCLI(t, "config", "show", "--json")
	require.NoError(t, err)
	assert.Equal(t, vault.ExitOK, code)
	assert.NotContains(t, output, "secret-token")

	var shown struct {
		Config struct {
			Backend struct {
				Kind     string
				Location string
			}
		} `json:"config"`
		SessionSet bool `json:"session_set"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &shown), output)
	assert.Equal(t, "pass", shown.Config.Backend.Kind)
	assert.Equal(t, "dotfiles", shown.Config.Backend.Location)
	assert.True(t, shown.SessionSet)
}
