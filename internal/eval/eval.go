package eval

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Condition evaluates a boolean condition expression in the given context.
// It returns the condition's truth value, ErrUnknown when the result is
// not yet known, or an *EvalError when the expression is unresolvable or
// non-boolean. The context is never mutated.
func Condition(expr hcl.Expression, ctx *hcl.EvalContext) (bool, error) {
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return false, &EvalError{Diags: diags}
	}

	v, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, &EvalError{Diags: hcl.Diagnostics{{
			Severity:   hcl.DiagError,
			Summary:    "Invalid condition result",
			Detail:     "The condition expression must produce a boolean value: " + err.Error(),
			Subject:    expr.Range().Ptr(),
			Expression: expr,
		}}}
	}

	if !v.IsKnown() {
		return false, ErrUnknown
	}
	if v.IsNull() {
		return false, &EvalError{Diags: hcl.Diagnostics{{
			Severity:   hcl.DiagError,
			Summary:    "Invalid condition result",
			Detail:     "The condition expression produced null; a boolean is required.",
			Subject:    expr.Range().Ptr(),
			Expression: expr,
		}}}
	}

	return v.True(), nil
}

// Message evaluates an error_message expression in the given context and
// renders it as a string. A message that itself fails to evaluate falls
// back to placeholder text rather than masking the condition failure.
func Message(expr hcl.Expression, ctx *hcl.EvalContext) string {
	const fallback = "(error message could not be evaluated)"
	if expr == nil {
		return fallback
	}

	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return fallback
	}
	v, err := convert.Convert(v, cty.String)
	if err != nil || v.IsNull() || !v.IsKnown() {
		return fallback
	}
	return v.AsString()
}

// Value evaluates an arbitrary expression in the given context, mapping
// diagnostics to *EvalError. Unknown results are returned as-is; callers
// that need a known value check v.IsWhollyKnown themselves.
func Value(expr hcl.Expression, ctx *hcl.EvalContext) (cty.Value, error) {
	v, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, &EvalError{Diags: diags}
	}
	return v, nil
}
