package eval

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
)

// ErrUnknown reports that an expression could not produce a known result,
// typically because it references a value that only materializes after an
// apply. Distinct from an EvalError: the expression itself is sound.
var ErrUnknown = errors.New("expression result is not yet known")

// EvalError reports that an expression is unresolvable in the given scope:
// an unbound symbol, an operator applied to an incompatible type, or a
// condition that is not boolean. Distinct from the condition merely
// evaluating to false.
type EvalError struct {
	Diags hcl.Diagnostics
}

func (e *EvalError) Error() string {
	if len(e.Diags) == 0 {
		return "expression evaluation failed"
	}
	return e.Diags.Error()
}

// IsEvalError reports whether err (or anything it wraps) is an EvalError.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}
