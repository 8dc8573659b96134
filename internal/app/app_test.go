package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/checkrig/internal/hcl"
)

func writeFixture(t *testing.T, configSrc, testSrc string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(configSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.test.hcl"), []byte(testSrc), 0o644))
	return dir
}

func TestNewApp_LoadsModel(t *testing.T) {
	dir := writeFixture(t, `
variable "region" {
  type    = string
  default = "us-east-1"
}

resource "vpc" "main" {
  region = var.region
}
`, `
run "provision" {}
`)

	cfg, err := NewConfig(Config{ConfigPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := NewApp(out, cfg, hcl.NewLoader())

	require.NotNil(t, a.Model())
	assert.Len(t, a.Model().Variables, 1)
	assert.Len(t, a.Model().Resources, 1)
}

func TestNewApp_PanicsOnInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(`variable "broken" {`), 0o644))

	cfg, err := NewConfig(Config{ConfigPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	assert.Panics(t, func() {
		NewApp(&bytes.Buffer{}, cfg, hcl.NewLoader())
	})
}

func TestAppRun_ReportsOutcome(t *testing.T) {
	dir := writeFixture(t, `
variable "name" {
  type = string

  validation {
    condition     = length(var.name) >= 3
    error_message = "Name must be at least 3 characters."
  }
}
`, `
run "accepts_long_name" {
  variables {
    name = "edge"
  }
}

run "rejects_short_name" {
  variables {
    name = "ab"
  }

  expect_failures = [var.name]
}
`)

	cfg, err := NewConfig(Config{ConfigPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := NewApp(out, cfg, hcl.NewLoader())
	require.NoError(t, a.Run(context.Background(), cfg))

	assert.Contains(t, out.String(), "pass  accepts_long_name (apply)")
	assert.Contains(t, out.String(), "pass  rejects_short_name (apply)")
	assert.Contains(t, out.String(), "2 passed, 0 failed, 0 errored")
}

func TestAppRun_FailureIsAnError(t *testing.T) {
	dir := writeFixture(t, `
variable "name" {
  type = string

  validation {
    condition     = length(var.name) >= 3
    error_message = "Name must be at least 3 characters."
  }
}
`, `
run "unexpected_rejection" {
  variables {
    name = "ab"
  }
}
`)

	cfg, err := NewConfig(Config{ConfigPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := NewApp(out, cfg, hcl.NewLoader())
	err = a.Run(context.Background(), cfg)

	require.ErrorIs(t, err, ErrRunsFailed)
	assert.Contains(t, out.String(), "fail  unexpected_rejection (apply)")
}
