package testrun

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/checkrig/internal/config"
	"github.com/vk/checkrig/internal/ctxlog"
	"github.com/vk/checkrig/internal/dag"
	"github.com/vk/checkrig/internal/eval"
	"github.com/vk/checkrig/internal/lifecycle"
	"github.com/vk/checkrig/internal/provider"
)

// violationError marks a node that failed its condition blocks. It is not
// fatal for the run; it exists so the graph walk skips dependents of a
// failed entity.
type violationError struct {
	addr string
	kind lifecycle.Kind
}

func (e *violationError) Error() string {
	return fmt.Sprintf("%s: %s violated", e.addr, e.kind)
}

// instanceStore tracks per-resource lifecycle state and resolved values
// within one run. Reads take a snapshot so expression evaluation always
// sees a consistent view.
type instanceStore struct {
	mu     sync.RWMutex
	states map[string]lifecycle.State
	values map[string]map[string]cty.Value
}

func newInstanceStore(resources []*config.Resource) *instanceStore {
	s := &instanceStore{
		states: make(map[string]lifecycle.State, len(resources)),
		values: make(map[string]map[string]cty.Value),
	}
	for _, r := range resources {
		s.states[r.Addr()] = lifecycle.Unplanned
	}
	return s
}

func (s *instanceStore) transition(addr string, to lifecycle.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := lifecycle.Transition(s.states[addr], to); err != nil {
		panic(err) // programmer error in the engine's phase ordering
	}
	s.states[addr] = to
}

func (s *instanceStore) setValue(r *config.Resource, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[r.Kind] == nil {
		s.values[r.Kind] = make(map[string]cty.Value)
	}
	s.values[r.Kind][r.Name] = v
}

// snapshot copies the value namespace for scope building.
func (s *instanceStore) snapshot() map[string]map[string]cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]cty.Value, len(s.values))
	for kind, inner := range s.values {
		cp := make(map[string]cty.Value, len(inner))
		for name, v := range inner {
			cp[name] = v
		}
		out[kind] = cp
	}
	return out
}

// buildGraph wires the dependency graph from explicit depends_on entries
// and implicit resource.<kind>.<name> references in attribute and
// condition expressions. Cycles and dangling references are fatal before
// any side effect.
func (e *Engine) buildGraph() (*dag.Graph, map[string]*config.Resource, error) {
	g := dag.New()
	byAddr := make(map[string]*config.Resource, len(e.model.Resources))
	for _, r := range e.model.Resources {
		g.AddNode(r.Addr())
		byAddr[r.Addr()] = r
	}

	for _, r := range e.model.Resources {
		deps := make(map[string]bool)

		for _, dep := range r.DependsOn {
			deps[dep] = true
		}
		for _, expr := range r.Attributes {
			for _, ref := range resourceRefs(expr) {
				deps[ref] = true
			}
		}
		for _, rule := range r.Preconditions {
			for _, ref := range resourceRefs(rule.Condition) {
				deps[ref] = true
			}
		}
		for _, rule := range r.Postconditions {
			for _, ref := range resourceRefs(rule.Condition) {
				deps[ref] = true
			}
		}

		for dep := range deps {
			if dep == r.Addr() {
				continue
			}
			if _, known := byAddr[dep]; !known {
				return nil, nil, &ConfigError{Detail: fmt.Sprintf("%s depends on undeclared %s", r.Addr(), dep)}
			}
			if err := g.AddEdge(dep, r.Addr()); err != nil {
				return nil, nil, &ConfigError{Detail: "building dependency graph", Err: err}
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, nil, &ConfigError{Detail: "dependency graph", Err: err}
	}
	return g, byAddr, nil
}

// resourceRefs extracts resource.<kind>.<name> references from an
// expression.
func resourceRefs(expr hcl.Expression) []string {
	var refs []string
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "resource" || len(traversal) < 3 {
			continue
		}
		kind, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			continue
		}
		name, ok := traversal[2].(hcl.TraverseAttr)
		if !ok {
			continue
		}
		refs = append(refs, fmt.Sprintf("resource.%s.%s", kind.Name, name.Name))
	}
	return refs
}

// evalAttributes resolves a resource's attribute expressions into a
// single object value.
func evalAttributes(r *config.Resource, scope *eval.Scope) (cty.Value, error) {
	ectx := scope.EvalContext()
	attrs := make(map[string]cty.Value, len(r.Attributes))
	for name, expr := range r.Attributes {
		v, err := eval.Value(expr, ectx)
		if err != nil {
			return cty.NilVal, &ConfigError{Detail: fmt.Sprintf("%s: attribute %q", r.Addr(), name), Err: err}
		}
		attrs[name] = v
	}
	return cty.ObjectVal(attrs), nil
}

// planPhase walks resources in dependency order without side effects:
// attributes are resolved with a placeholder unknown id, and
// preconditions are evaluated where they are decidable. Unknown-valued
// conditions are not violations during plan; they simply cannot be proven
// yet.
func (e *Engine) planPhase(ctx context.Context, base *eval.Scope, failed *collector) (*instanceStore, error) {
	g, byAddr, err := e.buildGraph()
	if err != nil {
		return nil, err
	}
	store := newInstanceStore(e.model.Resources)

	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	for _, addr := range order {
		r := byAddr[addr]
		scope := base.WithResources(store.snapshot())

		attrs, err := evalAttributes(r, scope)
		if err != nil {
			return nil, err
		}
		planned := withAttr(attrs, "id", cty.UnknownVal(cty.String))
		store.transition(addr, lifecycle.Planned)
		store.setValue(r, planned)

		violations := lifecycle.EvalConditions(ctx, addr, lifecycle.Precondition, r.Preconditions, scope.WithResources(store.snapshot()))
		for _, v := range violations {
			if errors.Is(v.Err, eval.ErrUnknown) {
				continue
			}
			failed.add(addr, v.Message)
		}
	}
	return store, nil
}

// applyPhase performs side effects in dependency order with bounded
// concurrency. Per resource: preconditions gate the side effect entirely,
// the side effect happens at most once per run, and postconditions run
// against the resolved value and can only mark the entity failed after
// the fact.
func (e *Engine) applyPhase(ctx context.Context, base *eval.Scope, failed *collector) (*instanceStore, error) {
	logger := ctxlog.FromContext(ctx)

	g, byAddr, err := e.buildGraph()
	if err != nil {
		return nil, err
	}
	store := newInstanceStore(e.model.Resources)

	results := g.Walk(ctx, e.opts.Workers, func(ctx context.Context, addr string) error {
		r := byAddr[addr]
		scope := base.WithResources(store.snapshot())

		attrs, err := evalAttributes(r, scope)
		if err != nil {
			return err
		}
		store.transition(addr, lifecycle.Planned)

		if violations := lifecycle.EvalConditions(ctx, addr, lifecycle.Precondition, r.Preconditions, scope); len(violations) > 0 {
			for _, v := range violations {
				failed.add(addr, v.Message)
			}
			store.transition(addr, lifecycle.Failed)
			logger.Debug("Precondition violated; side effect not attempted.", "resource", addr)
			return &violationError{addr: addr, kind: lifecycle.Precondition}
		}

		store.transition(addr, lifecycle.Applying)
		value, err := e.createOrUpdate(ctx, r, attrs)
		if err != nil {
			store.transition(addr, lifecycle.Failed)
			return err
		}
		store.setValue(r, value)

		if violations := lifecycle.EvalConditions(ctx, addr, lifecycle.Postcondition, r.Postconditions, scope.WithResources(store.snapshot()).WithSelf(value)); len(violations) > 0 {
			for _, v := range violations {
				failed.add(addr, v.Message)
			}
			// The side effect stays: detect after the fact, never unwind.
			store.transition(addr, lifecycle.Failed)
			return &violationError{addr: addr, kind: lifecycle.Postcondition}
		}

		store.transition(addr, lifecycle.Applied)
		return nil
	})

	// Violations and skips are already in the failure set or implied by
	// it; anything else is an infrastructure failure that aborts the run.
	order, _ := g.TopoOrder()
	for _, addr := range order {
		err := results[addr]
		var skip *dag.SkipError
		var violation *violationError
		switch {
		case err == nil, errors.As(err, &skip), errors.As(err, &violation):
		default:
			return nil, err
		}
	}
	return store, nil
}

// createOrUpdate performs the side effect for one resource. The provider
// carries state across the runs of a sequence, so a resource applied by
// an earlier run is updated in place rather than re-created.
func (e *Engine) createOrUpdate(ctx context.Context, r *config.Resource, attrs cty.Value) (cty.Value, error) {
	_, err := e.prov.Read(ctx, r.Kind, r.Name)
	switch {
	case err == nil:
		return e.prov.Update(ctx, r.Kind, r.Name, attrs)
	case errors.Is(err, provider.ErrNotFound):
		return e.prov.Create(ctx, r.Kind, r.Name, attrs)
	default:
		return cty.NilVal, err
	}
}

// destroyPhase tears resources down in reverse dependency order. Missing
// instances are fine (already gone); collaborator failures are fatal.
func (e *Engine) destroyPhase(ctx context.Context) error {
	g, byAddr, err := e.buildGraph()
	if err != nil {
		return err
	}
	order, err := g.TopoOrder()
	if err != nil {
		return err
	}

	for i := len(order) - 1; i >= 0; i-- {
		r := byAddr[order[i]]
		if err := e.prov.Delete(ctx, r.Kind, r.Name); err != nil && !errors.Is(err, provider.ErrNotFound) {
			return err
		}
	}
	return nil
}

// outputsPhase materializes outputs after apply: preconditions gate
// materialization, postconditions observe the resolved value via self. A
// value expression that cannot be evaluated at all is fatal; it is an
// engine-level configuration error, not an expectation.
func (e *Engine) outputsPhase(ctx context.Context, scope *eval.Scope, failed *collector) (map[string]cty.Value, error) {
	values := make(map[string]cty.Value, len(e.model.Outputs))

	for _, o := range e.model.Outputs {
		if violations := lifecycle.EvalConditions(ctx, o.Addr(), lifecycle.Precondition, o.Preconditions, scope); len(violations) > 0 {
			for _, v := range violations {
				failed.add(o.Addr(), v.Message)
			}
			continue
		}

		v, err := eval.Value(o.Value, scope.EvalContext())
		if err != nil {
			return nil, &ConfigError{Detail: o.Addr(), Err: err}
		}
		values[o.Name] = v

		if violations := lifecycle.EvalConditions(ctx, o.Addr(), lifecycle.Postcondition, o.Postconditions, scope.WithSelf(v)); len(violations) > 0 {
			for _, vio := range violations {
				failed.add(o.Addr(), vio.Message)
			}
			// The value already materialized; it stays exposed.
		}
	}
	return values, nil
}

// withAttr returns a copy of an object value with one attribute replaced.
func withAttr(obj cty.Value, name string, v cty.Value) cty.Value {
	attrs := make(map[string]cty.Value)
	if !obj.IsNull() && obj.Type().IsObjectType() {
		for it := obj.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			attrs[k.AsString()] = ev
		}
	}
	attrs[name] = v
	return cty.ObjectVal(attrs)
}
