package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// An HCL syntax error is guaranteed to make app.NewApp panic during the
	// loading phase.
	invalidHCL := `
		variable "region" {
	// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{filePath}
	out := &bytes.Buffer{}

	runErr := run(out, args)

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "failed to load configuration")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_PassingSuite(t *testing.T) {
	t.Parallel()

	configHCL := `
variable "region" {
  type    = string
  default = "us-east-1"

  validation {
    condition     = length(var.region) > 0
    error_message = "Region must not be empty."
  }
}

resource "vpc" "main" {
  region = var.region
}
`
	testHCL := `
run "provision" {}
`
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.hcl"), []byte(configHCL), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.test.hcl"), []byte(testHCL), 0600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-log-level", "error", tempDir})

	require.NoError(t, err)
	require.Contains(t, out.String(), "pass  provision (apply)")
	require.Contains(t, out.String(), "1 passed, 0 failed, 0 errored")
}

func TestRun_FailingSuite(t *testing.T) {
	t.Parallel()

	configHCL := `
variable "name" {
  type = string

  validation {
    condition     = length(var.name) >= 3
    error_message = "Name must be at least 3 characters."
  }
}
`
	testHCL := `
run "too_short" {
  variables {
    name = "ab"
  }
}
`
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.hcl"), []byte(configHCL), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.test.hcl"), []byte(testHCL), 0600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-log-level", "error", tempDir})

	require.Error(t, err)
	require.Contains(t, err.Error(), "did not pass")
	require.Contains(t, out.String(), "fail  too_short (apply)")
}
