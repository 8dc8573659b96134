// Package validate implements the validation block engine: it runs every
// validation rule attached to a variable against a candidate value and
// reports the full set of failing rules at once.
package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/eval"
)

// RuleFailure identifies one failing validation rule on one variable.
type RuleFailure struct {
	// Variable is the canonical identifier, e.g. "var.company_name".
	Variable string

	// RuleIndex is the zero-based position of the rule in declaration
	// order.
	RuleIndex int

	// Message is the rendered error_message of the failing rule.
	Message string

	// Err is non-nil when the rule failed because its condition could not
	// be evaluated rather than evaluating to false.
	Err error
}

func (f RuleFailure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s rule %d: %s (%v)", f.Variable, f.RuleIndex, f.Message, f.Err)
	}
	return fmt.Sprintf("%s rule %d: %s", f.Variable, f.RuleIndex, f.Message)
}

// Variable runs all validation rules for one variable against the scope,
// which must already bind the candidate value under var.<name>. Rules do
// not short-circuit: every rule runs so the full failure set is reported
// at once, in declaration order. A rule whose condition errors is a
// failing rule, not a fatal abort; an unknown condition (possible during
// plan) is treated the same way since acceptance cannot be proven.
func Variable(ctx context.Context, v *config.Variable, scope *eval.Scope) []RuleFailure {
	logger := ctxlog.FromContext(ctx)
	ectx := scope.EvalContext()

	var failures []RuleFailure
	for i, rule := range v.Validations {
		ok, err := eval.Condition(rule.Condition, ectx)
		if err != nil && errors.Is(err, eval.ErrUnknown) {
			err = fmt.Errorf("condition depends on a value that is not yet known")
		}
		if err == nil && ok {
			continue
		}

		failure := RuleFailure{
			Variable:  v.Addr(),
			RuleIndex: i,
			Message:   eval.Message(rule.ErrorMessage, ectx),
			Err:       err,
		}
		failures = append(failures, failure)
		logger.Debug("Validation rule failed.", "variable", v.Addr(), "rule", i, "error", err)
	}
	return failures
}
