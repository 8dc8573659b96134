package lifecycle

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/eval"
)

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func rule(t *testing.T, cond, msg string) *config.ConditionRule {
	return &config.ConditionRule{
		Condition:    expr(t, cond),
		ErrorMessage: expr(t, msg),
	}
}

func TestTransition(t *testing.T) {
	legal := [][2]State{
		{Unplanned, Planned},
		{Planned, Applying},
		{Applying, Applied},
		{Unplanned, Failed},
		{Planned, Failed},
		{Applying, Failed},
	}
	for _, tr := range legal {
		assert.NoError(t, Transition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	illegal := [][2]State{
		{Unplanned, Applied},
		{Applied, Applying},
		{Failed, Planned},
		{Applied, Failed},
	}
	for _, tr := range illegal {
		assert.Error(t, Transition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.True(t, Applied.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Applying.Terminal())
}

func TestEvalConditions(t *testing.T) {
	scope := &eval.Scope{
		Variables: map[string]cty.Value{
			"subnet_count": cty.NumberIntVal(0),
			"region":       cty.StringVal("us-east-1"),
		},
	}

	t.Run("all blocks evaluated, no short-circuit", func(t *testing.T) {
		rules := []*config.ConditionRule{
			rule(t, `var.subnet_count > 0`, `"Need at least one subnet."`),
			rule(t, `var.region == "eu-west-1"`, `"Wrong region ${var.region}."`),
			rule(t, `var.region != ""`, `"Region must be set."`),
		}
		violations := EvalConditions(context.Background(), "resource.vpc.main", Precondition, rules, scope)
		require.Len(t, violations, 2)
		assert.Equal(t, 0, violations[0].Index)
		assert.Equal(t, 1, violations[1].Index)
		assert.Equal(t, "Wrong region us-east-1.", violations[1].Message)
		assert.Equal(t, "resource.vpc.main", violations[0].Entity)
	})

	t.Run("postcondition reads self", func(t *testing.T) {
		withSelf := scope.WithSelf(cty.ObjectVal(map[string]cty.Value{
			"state": cty.StringVal("stopped"),
		}))
		rules := []*config.ConditionRule{
			rule(t, `self.state == "running"`, `"Instance is ${self.state}, expected running."`),
		}
		violations := EvalConditions(context.Background(), "resource.instance.web", Postcondition, rules, withSelf)
		require.Len(t, violations, 1)
		assert.Equal(t, Postcondition, violations[0].Kind)
		assert.Equal(t, "Instance is stopped, expected running.", violations[0].Message)
	})

	t.Run("unevaluable condition is a violation with Err set", func(t *testing.T) {
		rules := []*config.ConditionRule{
			rule(t, `resource.vpc.main.id != ""`, `"VPC must exist."`),
		}
		violations := EvalConditions(context.Background(), "output.vpc_id", Precondition, rules, scope)
		require.Len(t, violations, 1)
		assert.Error(t, violations[0].Err)
	})

	t.Run("satisfied conditions produce nothing", func(t *testing.T) {
		rules := []*config.ConditionRule{
			rule(t, `var.region != ""`, `"Region must be set."`),
		}
		assert.Empty(t, EvalConditions(context.Background(), "resource.vpc.main", Precondition, rules, scope))
	})
}
