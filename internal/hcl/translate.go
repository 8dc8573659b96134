// This file contains the logic for translating decoded HCL schema structs
// into the format-agnostic configuration model defined in the config
// package.

package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/schema"
)

// expectableRoots are the reference namespaces allowed inside an
// expect_failures list.
var expectableRoots = map[string]bool{
	"var":      true,
	"check":    true,
	"resource": true,
	"output":   true,
}

// translateVariable resolves the variable's type constraint and converts
// its default to that type.
func (l *Loader) translateVariable(ctx context.Context, v *schema.Variable) (*config.Variable, error) {
	ty, diags := typeexpr.TypeConstraint(v.Type)
	if diags.HasErrors() {
		return nil, fmt.Errorf("variable %q: invalid type constraint: %w", v.Name, diags)
	}

	out := &config.Variable{
		Name:        v.Name,
		Type:        ty,
		Default:     cty.NilVal,
		Validations: translateConditions(v.Validations),
		DeclRange:   v.Type.Range(),
	}

	if v.Default != nil {
		val, diags := v.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("variable %q: invalid default value: %w", v.Name, diags)
		}
		val, err := convert.Convert(val, ty)
		if err != nil {
			return nil, fmt.Errorf("variable %q: default value does not match type: %w", v.Name, err)
		}
		out.Default = val
		out.HasDefault = true
	}

	return out, nil
}

func (l *Loader) translateResource(r *schema.Resource) *config.Resource {
	return &config.Resource{
		Kind:           r.Kind,
		Name:           r.Name,
		Attributes:     extractBodyAttributes(r.Body),
		DependsOn:      r.DependsOn,
		Preconditions:  translateConditions(r.Preconditions),
		Postconditions: translateConditions(r.Postconditions),
	}
}

func (l *Loader) translateOutput(o *schema.Output) *config.Output {
	return &config.Output{
		Name:           o.Name,
		Value:          o.Value,
		Preconditions:  translateConditions(o.Preconditions),
		Postconditions: translateConditions(o.Postconditions),
		DeclRange:      o.Value.Range(),
	}
}

// translateCheck validates the check's shape: at most one embedded data
// lookup and at least one assert.
func (l *Loader) translateCheck(c *schema.Check) (*config.Check, error) {
	if len(c.Data) > 1 {
		return nil, fmt.Errorf("check %q: at most one data block is allowed", c.Name)
	}
	if len(c.Asserts) == 0 {
		return nil, fmt.Errorf("check %q: at least one assert block is required", c.Name)
	}

	out := &config.Check{
		Name:    c.Name,
		Asserts: translateConditions(c.Asserts),
	}
	if len(c.Data) == 1 {
		d := c.Data[0]
		out.Data = &config.DataSource{
			Kind:      d.Kind,
			Name:      d.Name,
			Arguments: extractBodyAttributes(d.Body),
		}
	}
	return out, nil
}

// translateRun decodes the command keyword and canonicalizes the
// expect_failures references into identifier strings.
func (l *Loader) translateRun(ctx context.Context, r *schema.Run) (*config.Run, error) {
	out := &config.Run{
		Name:    r.Name,
		Command: config.CommandApply,
	}

	if !exprAbsent(r.Command) {
		switch kw := hcl.ExprAsKeyword(r.Command); kw {
		case "apply":
		case "plan":
			out.Command = config.CommandPlan
		case "destroy":
			out.Command = config.CommandDestroy
		default:
			return nil, fmt.Errorf("invalid command %q: must be one of plan, apply or destroy", kw)
		}
	}

	if r.Variables != nil {
		out.Variables = extractBodyAttributes(r.Variables.Body)
	}

	if !exprAbsent(r.ExpectFailures) {
		exprs, diags := hcl.ExprList(r.ExpectFailures)
		if diags.HasErrors() {
			return nil, fmt.Errorf("expect_failures must be a list of references: %w", diags)
		}
		for _, expr := range exprs {
			traversal, diags := hcl.AbsTraversalForExpr(expr)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid expect_failures reference: %w", diags)
			}
			id, err := identifierForTraversal(traversal)
			if err != nil {
				return nil, err
			}
			out.ExpectFailures = append(out.ExpectFailures, id)
		}
	}

	return out, nil
}

// exprAbsent reports whether an optional expression attribute was left
// out of the block. gohcl decodes a missing attribute as a synthetic
// expression producing null, never as a nil field.
func exprAbsent(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	v, diags := expr.Value(nil)
	return !diags.HasErrors() && v.IsNull()
}

func translateConditions(blocks []*schema.ConditionBlock) []*config.ConditionRule {
	if len(blocks) == 0 {
		return nil
	}
	rules := make([]*config.ConditionRule, 0, len(blocks))
	for _, b := range blocks {
		rules = append(rules, &config.ConditionRule{
			Condition:    b.Condition,
			ErrorMessage: b.ErrorMessage,
			DeclRange:    b.Condition.Range(),
		})
	}
	return rules
}

// identifierForTraversal renders a reference like check.subnet_count or
// resource.subnet.a into its canonical identifier string.
func identifierForTraversal(traversal hcl.Traversal) (string, error) {
	parts := []string{traversal.RootName()}
	for _, step := range traversal[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			return "", fmt.Errorf("invalid expect_failures reference at %s: only attribute references are allowed", step.SourceRange())
		}
		parts = append(parts, attr.Name)
	}

	if !expectableRoots[parts[0]] {
		return "", fmt.Errorf("invalid expect_failures reference %q: must refer to var, check, resource or output", strings.Join(parts, "."))
	}

	want := 2
	if parts[0] == "resource" {
		want = 3
	}
	if len(parts) != want {
		return "", fmt.Errorf("invalid expect_failures reference %q", strings.Join(parts, "."))
	}

	return strings.Join(parts, "."), nil
}
