// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up isolated config and
// state directories, capturing output, and running the CLI in-process.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/dotvault/internal/backend/backendtest"
	"github.com/PolarWolf314/dotvault/internal/configs"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
	"github.com/PolarWolf314/dotvault/internal/workflows"
	"github.com/spf13/cobra"
)

// setupTestEnvironment points HOME and the dotvault directories at a fresh
// temporary tree and returns the resolved paths.
func setupTestEnvironment(t *testing.T) configs.Paths {
	t.Helper()
	root := t.TempDir()

	t.Setenv("HOME", filepath.Join(root, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg-config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	t.Setenv("DOTVAULT_CONFIG_DIR", filepath.Join(root, "config"))
	t.Setenv("DOTVAULT_STATE_DIR", filepath.Join(root, "state"))
	t.Setenv("BW_SESSION", "")
	t.Setenv("NO_COLOR", "1")

	paths, err := configs.ResolvePaths()
	if err != nil {
		t.Fatalf("Failed to resolve paths: %v", err)
	}
	for _, dir := range []string{paths.Home, paths.ConfigDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	t.Cleanup(func() {
		ResetGlobalState()
		ResetConfigState()
		envHook = nil
		confirmPrompt = huhPrompt{}
	})
	return paths
}

// useMemoryBackend routes every vault command to an in-memory backend.
func useMemoryBackend(t *testing.T) *backendtest.Memory {
	t.Helper()
	mem := backendtest.NewMemory()
	envHook = func(env *workflows.Env) {
		env.Backend = mem
	}
	return mem
}

// writeTestFile writes content to path, creating parent directories.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// readTestFile returns the content of path or fails the test.
func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// createTestCLI creates a complete CLI instance for testing with the given arguments.
func createTestCLI(args []string, stdout, stderr io.Writer) *cobra.Command {
	ResetGlobalState()
	ResetConfigState()

	// Initialize the logger; PersistentPreRun rebuilds it from the parsed flags.
	Logger = logger.Logger{}
	ConfigLogger = logger.Logger{}

	// Create a fresh root command for this test
	rootCmd := &cobra.Command{
		Use:           "dotvault",
		Short:         "dotvault - keep dotfiles and credentials in sync with a secret store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(VaultCmd)
	rootCmd.AddCommand(ConfigCmd)

	if stdout != nil {
		rootCmd.SetOut(stdout)
	}
	if stderr != nil {
		rootCmd.SetErr(stderr)
	}
	rootCmd.SetArgs(args)
	return rootCmd
}

// runCLI executes the CLI with args and returns the captured output, the
// command error and the exit status main would report.
func runCLI(t *testing.T, args ...string) (string, int, error) {
	t.Helper()
	output, err := captureOutput(func() error {
		return createTestCLI(args, nil, nil).Execute()
	})
	return output, ExitCode(), err
}
