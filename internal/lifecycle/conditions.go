package lifecycle

import (
	"context"
	"fmt"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/eval"
)

// Kind distinguishes the two evaluation points of a condition block.
type Kind int

const (
	Precondition Kind = iota
	Postcondition
)

func (k Kind) String() string {
	if k == Precondition {
		return "precondition"
	}
	return "postcondition"
}

// Status is the per-block condition state: Unchecked until evaluated, then
// Satisfied or Violated.
type Status int

const (
	Unchecked Status = iota
	Satisfied
	Violated
)

func (s Status) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Satisfied:
		return "satisfied"
	case Violated:
		return "violated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Violation records one violated or unevaluable condition block on an
// entity.
type Violation struct {
	// Entity is the owning entity's identifier, e.g. "resource.vpc.main".
	Entity string

	// Kind says whether this was a pre- or postcondition.
	Kind Kind

	// Index is the block's position among the entity's blocks of the same
	// kind, in declaration order.
	Index int

	// Message is the rendered configured error message.
	Message string

	// Err is non-nil when the condition could not be evaluated at all.
	Err error
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s %d: %s", v.Entity, v.Kind, v.Index, v.Message)
}

// EvalConditions evaluates every condition block of one kind on an entity,
// without short-circuiting, so all violations surface together. The scope
// must already carry whatever the evaluation point permits: for
// postconditions the caller binds self to the resolved value first. A
// block whose condition errors or stays unknown is Violated; the entity
// cannot be proven sound.
func EvalConditions(ctx context.Context, entity string, kind Kind, rules []*config.ConditionRule, scope *eval.Scope) []Violation {
	logger := ctxlog.FromContext(ctx)
	ectx := scope.EvalContext()

	var violations []Violation
	for i, rule := range rules {
		ok, err := eval.Condition(rule.Condition, ectx)
		if err == nil && ok {
			continue
		}
		violations = append(violations, Violation{
			Entity:  entity,
			Kind:    kind,
			Index:   i,
			Message: eval.Message(rule.ErrorMessage, ectx),
			Err:     err,
		})
		logger.Debug("Condition block violated.", "entity", entity, "kind", kind.String(), "index", i, "error", err)
	}
	return violations
}
