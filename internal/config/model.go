package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader abstracts the configuration format from the rest of the
// application. The concrete implementation lives in internal/hcl.
type Loader interface {
	// Load reads the configuration tree rooted at configPath and the test
	// files rooted at testsPath (either may be a single file or a
	// directory) and returns the unified model.
	Load(ctx context.Context, configPath, testsPath string) (*Model, *Suite, error)
}

// Model is the loaded configuration: variables, shared locals, resources,
// outputs and check blocks, in declaration order where order matters.
type Model struct {
	Variables     map[string]*Variable
	VariableOrder []string
	Locals        map[string]hcl.Expression
	Resources     []*Resource
	Outputs       []*Output
	Checks        []*Check
}

// Variable is a declared input: a type constraint, an optional default and
// an ordered list of validation rules. A variable is immutable once bound
// for a given run.
type Variable struct {
	Name        string
	Type        cty.Type
	Default     cty.Value // cty.NilVal when no default was declared
	HasDefault  bool
	Validations []*ConditionRule
	DeclRange   hcl.Range
}

// Addr returns the identifier used for failure reconciliation, e.g.
// "var.company_name".
func (v *Variable) Addr() string { return "var." + v.Name }

// ConditionRule is a single condition + error message pair. It backs
// variable validations, resource pre/postconditions, output preconditions
// and check asserts, which all share this shape.
type ConditionRule struct {
	Condition    hcl.Expression
	ErrorMessage hcl.Expression
	DeclRange    hcl.Range
}

// Resource is a declared managed entity. Attribute expressions are kept
// unevaluated; they are resolved against the run's scope by the engine.
type Resource struct {
	Kind           string
	Name           string
	Attributes     map[string]hcl.Expression
	DependsOn      []string
	Preconditions  []*ConditionRule
	Postconditions []*ConditionRule
	DeclRange      hcl.Range
}

// Addr returns the resource's stable identifier, e.g. "resource.vpc.main".
func (r *Resource) Addr() string { return fmt.Sprintf("resource.%s.%s", r.Kind, r.Name) }

// Output is a named value exposed after an apply run, optionally gated by
// preconditions.
type Output struct {
	Name           string
	Value          hcl.Expression
	Preconditions  []*ConditionRule
	Postconditions []*ConditionRule
	DeclRange      hcl.Range
}

// Addr returns the output's identifier, e.g. "output.vpc_id".
func (o *Output) Addr() string { return "output." + o.Name }

// Check is an independent, non-blocking assertion group with an optional
// embedded data lookup.
type Check struct {
	Name      string
	Data      *DataSource
	Asserts   []*ConditionRule
	DeclRange hcl.Range
}

// Addr returns the check's identifier, e.g. "check.subnet_count".
func (c *Check) Addr() string { return "check." + c.Name }

// DataSource is a read-only lookup embedded in a check block. Arguments are
// unevaluated expressions resolved in the check's scope.
type DataSource struct {
	Kind      string
	Name      string
	Arguments map[string]hcl.Expression
}

// Command selects what a test run executes.
type Command int

const (
	// CommandApply performs side effects and then evaluates
	// postconditions and checks. The default when a run names no command.
	CommandApply Command = iota

	// CommandPlan evaluates validations, preconditions and checks without
	// performing any side effect.
	CommandPlan

	// CommandDestroy tears resources down and skips forward-looking checks.
	CommandDestroy
)

func (c Command) String() string {
	switch c {
	case CommandApply:
		return "apply"
	case CommandPlan:
		return "plan"
	case CommandDestroy:
		return "destroy"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Suite is the ordered collection of test files discovered for a run.
type Suite struct {
	Files []*TestFile
}

// TestFile is a sequential list of runs plus file-level variable
// overrides shared by every run in the file.
type TestFile struct {
	Name      string
	Variables map[string]hcl.Expression
	Runs      []*Run
}

// Run is one named test run: a command, variable overrides scoped to this
// run only, and the set of identifiers the run expects to fail.
type Run struct {
	Name           string
	Command        Command
	Variables      map[string]hcl.Expression
	ExpectFailures []string
	DeclRange      hcl.Range
}
