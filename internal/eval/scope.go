package eval

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Scope is the environment a condition expression is evaluated in: an
// immutable mapping from reference namespaces to values. A nil map means
// the namespace is absent; referencing into an absent namespace is an
// EvalError, which is exactly what distinguishes "unresolvable" from
// "false".
type Scope struct {
	// Variables backs var.<name> references.
	Variables map[string]cty.Value

	// Locals backs local.<name> references (shared lookup tables).
	Locals map[string]cty.Value

	// Resources backs resource.<kind>.<name> references, keyed by kind
	// then instance name.
	Resources map[string]map[string]cty.Value

	// Data backs data.<kind>.<name> references inside the owning check.
	Data map[string]map[string]cty.Value

	// Runs backs run.<name>.<output> references in test files.
	Runs map[string]cty.Value

	// Self, when non-nil, backs self.<attr> references inside a
	// postcondition of the owning entity.
	Self *cty.Value
}

// WithSelf returns a copy of the scope with self bound to the given value.
// The receiver is unchanged; the namespace maps are shared, which is safe
// because scopes are read-only during a phase.
func (s *Scope) WithSelf(v cty.Value) *Scope {
	child := *s
	child.Self = &v
	return &child
}

// WithResources returns a copy of the scope with the resource namespace
// replaced by the given snapshot.
func (s *Scope) WithResources(res map[string]map[string]cty.Value) *Scope {
	child := *s
	child.Resources = res
	return &child
}

// WithData returns a copy of the scope exposing a single resolved data
// lookup under data.<kind>.<name>. Check blocks each see only their own
// lookup.
func (s *Scope) WithData(kind, name string, v cty.Value) *Scope {
	child := *s
	child.Data = map[string]map[string]cty.Value{kind: {name: v}}
	return &child
}

// EvalContext assembles the hcl.EvalContext for this scope, including the
// engine's function table. The returned context must be treated as
// read-only.
func (s *Scope) EvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)

	if s.Variables != nil {
		vars["var"] = cty.ObjectVal(s.Variables)
	}
	if s.Locals != nil {
		vars["local"] = cty.ObjectVal(s.Locals)
	}
	if s.Resources != nil {
		vars["resource"] = nestedObjectVal(s.Resources)
	}
	if s.Data != nil {
		vars["data"] = nestedObjectVal(s.Data)
	}
	if s.Runs != nil {
		vars["run"] = cty.ObjectVal(s.Runs)
	}
	if s.Self != nil {
		vars["self"] = *s.Self
	}

	return &hcl.EvalContext{
		Variables: vars,
		Functions: Functions(),
	}
}

func nestedObjectVal(m map[string]map[string]cty.Value) cty.Value {
	outer := make(map[string]cty.Value, len(m))
	for k, inner := range m {
		outer[k] = cty.ObjectVal(inner)
	}
	return cty.ObjectVal(outer)
}
