package testrun

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/eval"
)

// ConfigError is a fatal configuration problem: an unresolvable
// expression, a missing required input, a type mismatch. It aborts the
// affected run before any side effect.
type ConfigError struct {
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Detail, e.Err)
	}
	return "configuration error: " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Err }

// resolveVariables merges the run's effective variable set: declared
// defaults overridden by file-level variables overridden by run-level
// variables. Override expressions may reference earlier runs' outputs via
// run.<name>.<output>; any other unresolvable reference is fatal.
func resolveVariables(ctx context.Context, model *config.Model, file *config.TestFile, run *config.Run, outputs map[string]cty.Value) (map[string]cty.Value, error) {
	overrideScope := &eval.Scope{Runs: outputs}
	ectx := overrideScope.EvalContext()

	values := make(map[string]cty.Value, len(model.Variables))
	for _, name := range model.VariableOrder {
		decl := model.Variables[name]

		expr, ok := run.Variables[name]
		if !ok {
			expr, ok = file.Variables[name]
		}

		var v cty.Value
		switch {
		case ok:
			raw, err := eval.Value(expr, ectx)
			if err != nil {
				return nil, &ConfigError{Detail: fmt.Sprintf("override for %s", decl.Addr()), Err: err}
			}
			v, err = convert.Convert(raw, decl.Type)
			if err != nil {
				return nil, &ConfigError{Detail: fmt.Sprintf("override for %s does not match its declared type", decl.Addr()), Err: err}
			}
		case decl.HasDefault:
			v = decl.Default
		default:
			return nil, &ConfigError{Detail: fmt.Sprintf("no value for required variable %s", decl.Addr())}
		}
		values[name] = v
	}
	return values, nil
}

// resolveLocals evaluates the shared lookup table. Locals may reference
// variables and other locals; resolution iterates until it stops making
// progress, so declaration order does not matter but reference cycles are
// fatal.
func resolveLocals(ctx context.Context, model *config.Model, vars map[string]cty.Value) (map[string]cty.Value, error) {
	if len(model.Locals) == 0 {
		return nil, nil
	}

	resolved := make(map[string]cty.Value, len(model.Locals))
	pending := make(map[string]bool, len(model.Locals))
	for name := range model.Locals {
		pending[name] = true
	}

	for len(pending) > 0 {
		progress := false
		var lastErr error

		for name := range pending {
			scope := &eval.Scope{Variables: vars, Locals: resolved}
			v, err := eval.Value(model.Locals[name], scope.EvalContext())
			if err != nil {
				lastErr = fmt.Errorf("local.%s: %w", name, err)
				continue
			}
			resolved[name] = v
			delete(pending, name)
			progress = true
		}

		if !progress {
			return nil, &ConfigError{Detail: "unresolvable local values (reference cycle or unknown symbol)", Err: lastErr}
		}
	}
	return resolved, nil
}
