package checks

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/eval"
	"github.com/vk/checkrig/internal/provider"
)

// AssertFailure records one false assert within a check.
type AssertFailure struct {
	Index   int
	Message string
}

// Result is the outcome of one check block.
type Result struct {
	Name     string
	Status   Status
	Failures []AssertFailure

	// Reason explains an unknown status.
	Reason string
}

// Run evaluates every check in declaration order against the given scope,
// resolving each check's data lookup through the querier. Checks are fully
// independent: one check's unresolvable lookup or internal evaluation
// error yields unknown for that check only and never aborts the others.
// The returned error is non-nil only for a collaborator failure
// (ExternalError), which is fatal for the run rather than an expectation.
func Run(ctx context.Context, list []*config.Check, scope *eval.Scope, q provider.Querier) ([]Result, error) {
	logger := ctxlog.FromContext(ctx)

	results := make([]Result, 0, len(list))
	for _, chk := range list {
		res, err := runOne(ctx, chk, scope, q)
		if err != nil {
			return results, err
		}
		logger.Debug("Check evaluated.", "check", chk.Addr(), "status", res.Status.String())
		results = append(results, res)
	}
	return results, nil
}

func runOne(ctx context.Context, chk *config.Check, scope *eval.Scope, q provider.Querier) (Result, error) {
	res := Result{Name: chk.Name}
	checkScope := scope

	if chk.Data != nil {
		resolved, err := resolveData(ctx, chk.Data, scope, q)
		switch {
		case err == nil:
			checkScope = scope.WithData(chk.Data.Kind, chk.Data.Name, resolved)
		case provider.IsExternal(err):
			return res, err
		default:
			res.Status = StatusUnknown
			res.Reason = err.Error()
			return res, nil
		}
	}

	ectx := checkScope.EvalContext()
	unknown := false
	for i, assert := range chk.Asserts {
		ok, err := eval.Condition(assert.Condition, ectx)
		switch {
		case err == nil && ok:
			// assert holds
		case err == nil:
			res.Failures = append(res.Failures, AssertFailure{
				Index:   i,
				Message: eval.Message(assert.ErrorMessage, ectx),
			})
		case errors.Is(err, eval.ErrUnknown):
			unknown = true
			if res.Reason == "" {
				res.Reason = fmt.Sprintf("assert %d depends on a value that is not yet known", i)
			}
		default:
			// Internal evaluation error: isolated to this check.
			unknown = true
			if res.Reason == "" {
				res.Reason = err.Error()
			}
		}
	}

	switch {
	case unknown:
		res.Status = StatusUnknown
	case len(res.Failures) > 0:
		res.Status = StatusFail
	default:
		res.Status = StatusPass
	}
	return res, nil
}

// resolveData evaluates the lookup's arguments and queries the
// collaborator. Argument evaluation errors and unresolvable lookups are
// returned as plain errors (mapped to unknown by the caller); collaborator
// failures keep their ExternalError identity.
func resolveData(ctx context.Context, ds *config.DataSource, scope *eval.Scope, q provider.Querier) (cty.Value, error) {
	if q == nil {
		return cty.NilVal, fmt.Errorf("no data source collaborator configured")
	}

	ectx := scope.EvalContext()
	args := make(map[string]cty.Value, len(ds.Arguments))
	for name, expr := range ds.Arguments {
		v, err := eval.Value(expr, ectx)
		if err != nil {
			return cty.NilVal, fmt.Errorf("data.%s.%s: argument %q: %w", ds.Kind, ds.Name, name, err)
		}
		if !v.IsWhollyKnown() {
			return cty.NilVal, fmt.Errorf("data.%s.%s: argument %q is not yet known", ds.Kind, ds.Name, name)
		}
		args[name] = v
	}

	return q.Query(ctx, ds.Kind, args)
}
