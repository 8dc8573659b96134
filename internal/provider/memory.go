package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/checkrig/internal/ctxlog"
)

// Memory is the in-memory provider used by tests and offline runs. It
// synthesizes stable ids on Create and exposes live resource state through
// the "state" data source so checks can count and inspect instances.
type Memory struct {
	mu        sync.RWMutex
	instances map[string]map[string]cty.Value
	serial    int
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{instances: make(map[string]map[string]cty.Value)}
}

// Create stores a new instance and returns its resolved value: the given
// attributes plus a synthesized id. Creating over an existing instance is
// a programmer error in the engine, so it fails loudly.
func (m *Memory) Create(ctx context.Context, kind, name string, attrs cty.Value) (cty.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.instances[kind][name]; exists {
		return cty.NilVal, &ExternalError{Op: "create", Kind: kind, Err: fmt.Errorf("instance %q already exists", name)}
	}

	m.serial++
	resolved := withAttr(attrs, "id", cty.StringVal(fmt.Sprintf("%s-%06d", kind, m.serial)))

	if m.instances[kind] == nil {
		m.instances[kind] = make(map[string]cty.Value)
	}
	m.instances[kind][name] = resolved
	ctxlog.FromContext(ctx).Debug("Created in-memory instance.", "kind", kind, "name", name)
	return resolved, nil
}

// Read returns the resolved value of an existing instance.
func (m *Memory) Read(ctx context.Context, kind, name string) (cty.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.instances[kind][name]
	if !ok {
		return cty.NilVal, fmt.Errorf("%s.%s: %w", kind, name, ErrNotFound)
	}
	return v, nil
}

// Update replaces an instance's attributes, preserving its id.
func (m *Memory) Update(ctx context.Context, kind, name string, attrs cty.Value) (cty.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.instances[kind][name]
	if !ok {
		return cty.NilVal, fmt.Errorf("%s.%s: %w", kind, name, ErrNotFound)
	}
	resolved := withAttr(attrs, "id", old.GetAttr("id"))
	m.instances[kind][name] = resolved
	return resolved, nil
}

// Delete removes an instance.
func (m *Memory) Delete(ctx context.Context, kind, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.instances[kind][name]; !ok {
		return fmt.Errorf("%s.%s: %w", kind, name, ErrNotFound)
	}
	delete(m.instances[kind], name)
	ctxlog.FromContext(ctx).Debug("Deleted in-memory instance.", "kind", kind, "name", name)
	return nil
}

// Query implements the "state" data source:
//
//	data "state" "x" { kind = "subnet" }          -> { count, names }
//	data "state" "x" { kind = "vpc", name = "a" } -> the instance's value
//
// A named lookup for a missing instance returns ErrNotFound, which checks
// report as unknown.
func (m *Memory) Query(ctx context.Context, kind string, args map[string]cty.Value) (cty.Value, error) {
	if kind != "state" {
		return cty.NilVal, fmt.Errorf("%q: %w", kind, ErrNoSuchDataSource)
	}

	resourceKind, ok := stringArg(args, "kind")
	if !ok {
		return cty.NilVal, fmt.Errorf(`data source "state" requires a string "kind" argument`)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if name, ok := stringArg(args, "name"); ok {
		v, exists := m.instances[resourceKind][name]
		if !exists {
			return cty.NilVal, fmt.Errorf("%s.%s: %w", resourceKind, name, ErrNotFound)
		}
		return v, nil
	}

	names := make([]string, 0, len(m.instances[resourceKind]))
	for name := range m.instances[resourceKind] {
		names = append(names, name)
	}
	sort.Strings(names)

	nameVals := make([]cty.Value, len(names))
	for i, name := range names {
		nameVals[i] = cty.StringVal(name)
	}
	namesVal := cty.ListValEmpty(cty.String)
	if len(nameVals) > 0 {
		namesVal = cty.ListVal(nameVals)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"count": cty.NumberIntVal(int64(len(names))),
		"names": namesVal,
	}), nil
}

// Len reports the number of live instances of a kind. Test helper.
func (m *Memory) Len(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances[kind])
}

// withAttr returns a copy of an object value with one attribute set.
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

func stringArg(args map[string]cty.Value, name string) (string, bool) {
	v, ok := args[name]
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}
