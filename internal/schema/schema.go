package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Configuration file structures ---

// ConditionBlock is the shared shape of `validation`, `precondition`,
// `postcondition` and `assert` blocks: a boolean condition plus the error
// message reported when it does not hold.
type ConditionBlock struct {
	Condition    hcl.Expression `hcl:"condition"`
	ErrorMessage hcl.Expression `hcl:"error_message"`
}

// Variable represents a `variable` block: a declared input with a type
// constraint, an optional default and zero or more validation rules.
type Variable struct {
	Name        string            `hcl:"name,label"`
	Type        hcl.Expression    `hcl:"type"`
	Default     hcl.Expression    `hcl:"default,optional"`
	Description string            `hcl:"description,optional"`
	Validations []*ConditionBlock `hcl:"validation,block"`
}

// Locals represents a `locals` block; its attributes are shared lookup
// values referenced as local.<name>.
type Locals struct {
	Body hcl.Body `hcl:",remain"`
}

// Resource represents a `resource` block. Its arbitrary attributes stay in
// the remain body; the condition blocks and depends_on are decoded here.
type Resource struct {
	Kind           string            `hcl:"kind,label"`
	Name           string            `hcl:"instance_name,label"`
	DependsOn      []string          `hcl:"depends_on,optional"`
	Preconditions  []*ConditionBlock `hcl:"precondition,block"`
	Postconditions []*ConditionBlock `hcl:"postcondition,block"`
	Body           hcl.Body          `hcl:",remain"`
}

// Output represents an `output` block exposing a named value after apply.
// Preconditions gate materialization; postconditions observe the resolved
// value through self.
type Output struct {
	Name           string            `hcl:"name,label"`
	Value          hcl.Expression    `hcl:"value"`
	Description    string            `hcl:"description,optional"`
	Preconditions  []*ConditionBlock `hcl:"precondition,block"`
	Postconditions []*ConditionBlock `hcl:"postcondition,block"`
}

// DataBlock represents the read-only lookup embedded in a check block.
type DataBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"instance_name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Check represents a `check` block: an optional data lookup plus one or
// more assert statements, independent of the resource lifecycle.
type Check struct {
	Name    string            `hcl:"name,label"`
	Data    []*DataBlock      `hcl:"data,block"`
	Asserts []*ConditionBlock `hcl:"assert,block"`
}

// ConfigFile is the top-level structure of a configuration document.
type ConfigFile struct {
	Variables []*Variable `hcl:"variable,block"`
	Locals    []*Locals   `hcl:"locals,block"`
	Resources []*Resource `hcl:"resource,block"`
	Outputs   []*Output   `hcl:"output,block"`
	Checks    []*Check    `hcl:"check,block"`
}

// --- Test file structures ---

// VariablesBlock holds variable overrides; every attribute is kept as an
// unevaluated expression so later runs can reference earlier run outputs.
type VariablesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Run represents a `run` block within a test file.
type Run struct {
	Name           string          `hcl:"name,label"`
	Command        hcl.Expression  `hcl:"command,optional"`
	Variables      *VariablesBlock `hcl:"variables,block"`
	ExpectFailures hcl.Expression  `hcl:"expect_failures,optional"`
}

// TestFile is the top-level structure of a test document: optional
// file-level variables plus a sequential list of runs.
type TestFile struct {
	Variables *VariablesBlock `hcl:"variables,block"`
	Runs      []*Run          `hcl:"run,block"`
}
