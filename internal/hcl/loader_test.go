package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/checkrig/internal/config"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestLoad_FullConfiguration(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
variable "region" {
  type    = string
  default = "us-east-1"

  validation {
    condition     = length(var.region) > 0
    error_message = "Region must not be empty."
  }
}

locals {
  cidr = "10.0.0.0/16"
}

resource "vpc" "main" {
  cidr = local.cidr

  precondition {
    condition     = var.region != ""
    error_message = "A region is required."
  }

  postcondition {
    condition     = self.id != ""
    error_message = "Identifier must be set."
  }
}

resource "subnet" "a" {
  depends_on = ["resource.vpc.main"]
  vpc        = resource.vpc.main.id
}

output "vpc_id" {
  value = resource.vpc.main.id
}

check "vpc_present" {
  data "state" "vpc" {
    kind = "vpc"
    name = "main"
  }

  assert {
    condition     = data.state.vpc.id != ""
    error_message = "VPC is missing."
  }
}
`,
		"main.test.hcl": `
variables {
  region = "eu-west-1"
}

run "preview" {
  command = plan

  expect_failures = [check.vpc_present]
}

run "provision" {
  variables {
    region = "us-west-2"
  }
}
`,
	})

	model, suite, err := NewLoader().Load(context.Background(), dir, dir)
	require.NoError(t, err)

	require.Len(t, model.Variables, 1)
	region := model.Variables["region"]
	assert.Equal(t, cty.String, region.Type)
	assert.True(t, region.HasDefault)
	assert.Equal(t, cty.StringVal("us-east-1"), region.Default)
	assert.Len(t, region.Validations, 1)
	assert.Equal(t, []string{"region"}, model.VariableOrder)

	assert.Contains(t, model.Locals, "cidr")

	require.Len(t, model.Resources, 2)
	vpc := model.Resources[0]
	assert.Equal(t, "resource.vpc.main", vpc.Addr())
	assert.Contains(t, vpc.Attributes, "cidr")
	assert.Len(t, vpc.Preconditions, 1)
	assert.Len(t, vpc.Postconditions, 1)
	assert.Equal(t, []string{"resource.vpc.main"}, model.Resources[1].DependsOn)

	require.Len(t, model.Outputs, 1)
	assert.Equal(t, "output.vpc_id", model.Outputs[0].Addr())

	require.Len(t, model.Checks, 1)
	chk := model.Checks[0]
	require.NotNil(t, chk.Data)
	assert.Equal(t, "state", chk.Data.Kind)
	assert.Equal(t, "vpc", chk.Data.Name)
	assert.Len(t, chk.Asserts, 1)

	require.Len(t, suite.Files, 1)
	tf := suite.Files[0]
	assert.Equal(t, "main.test.hcl", tf.Name)
	assert.Contains(t, tf.Variables, "region")

	require.Len(t, tf.Runs, 2)
	assert.Equal(t, config.CommandPlan, tf.Runs[0].Command)
	assert.Equal(t, []string{"check.vpc_present"}, tf.Runs[0].ExpectFailures)
	assert.Equal(t, config.CommandApply, tf.Runs[1].Command)
	assert.Contains(t, tf.Runs[1].Variables, "region")
}

func TestLoad_TestFilesExcludedFromConfiguration(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
variable "name" {
  type = string
}
`,
		"main.test.hcl": `
run "only" {}
`,
	})

	model, suite, err := NewLoader().Load(context.Background(), dir, dir)
	require.NoError(t, err)
	assert.Len(t, model.Variables, 1)
	assert.Len(t, suite.Files, 1)
}

func TestLoad_DuplicateDeclarationsAcrossFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.hcl": `
variable "name" {
  type = string
}
`,
		"b.hcl": `
variable "name" {
  type = string
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate variable "name"`)
}

func TestLoad_ExpectFailuresCanonicalization(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
variable "name" {
  type = string
}
`,
		"main.test.hcl": `
run "all_kinds" {
  expect_failures = [
    var.name,
    check.liveness,
    resource.vpc.main,
    output.vpc_id,
  ]
}
`,
	})

	_, suite, err := NewLoader().Load(context.Background(), dir, dir)
	require.NoError(t, err)
	require.Len(t, suite.Files, 1)
	require.Len(t, suite.Files[0].Runs, 1)
	assert.Equal(t, []string{
		"var.name",
		"check.liveness",
		"resource.vpc.main",
		"output.vpc_id",
	}, suite.Files[0].Runs[0].ExpectFailures)
}

func TestLoad_BareRunDefaultsToApply(t *testing.T) {
	// Absent optional attributes decode as synthetic null expressions, not
	// nil fields; a run with no command and no expect_failures must still
	// load with the apply default.
	dir := writeFiles(t, map[string]string{
		"main.hcl": ``,
		"main.test.hcl": `
run "first" {}

run "second" {
  command = apply
}
`,
	})

	_, suite, err := NewLoader().Load(context.Background(), dir, dir)
	require.NoError(t, err)
	require.Len(t, suite.Files, 1)
	require.Len(t, suite.Files[0].Runs, 2)

	first := suite.Files[0].Runs[0]
	assert.Equal(t, config.CommandApply, first.Command)
	assert.Empty(t, first.ExpectFailures)
	assert.Equal(t, config.CommandApply, suite.Files[0].Runs[1].Command)
}

func TestLoad_InvalidExpectFailuresRoot(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": ``,
		"main.test.hcl": `
run "bad" {
  expect_failures = [local.name]
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must refer to var, check, resource or output")
}

func TestLoad_InvalidCommandKeyword(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": ``,
		"main.test.hcl": `
run "bad" {
  command = refresh
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid command "refresh"`)
}

func TestLoad_CheckShapeValidation(t *testing.T) {
	t.Run("no asserts", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"main.hcl": `
check "empty" {
}
`,
		})
		_, _, err := NewLoader().Load(context.Background(), dir, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one assert block is required")
	})

	t.Run("two data blocks", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"main.hcl": `
check "doubled" {
  data "state" "a" {
    kind = "vpc"
  }

  data "state" "b" {
    kind = "subnet"
  }

  assert {
    condition     = true
    error_message = "unused"
  }
}
`,
		})
		_, _, err := NewLoader().Load(context.Background(), dir, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at most one data block is allowed")
	})
}

func TestLoad_DuplicateRunNames(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": ``,
		"main.test.hcl": `
run "twice" {}

run "twice" {}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate run "twice"`)
}

func TestLoad_VariableDefaultConversion(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
variable "count" {
  type    = number
  default = "3"
}

variable "bad" {
  type    = number
  default = "not-a-number"
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default value does not match type")
}
