// Package provider defines the collaborator boundary of the engine: an
// injected capability performing resource lifecycle actions and read-only
// data lookups. The engines only ever see these interfaces, so they can be
// tested against the in-memory implementation and never a live account.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ErrNotFound reports that the referenced resource does not exist this
// run. The check engine maps it to status unknown rather than failure.
var ErrNotFound = errors.New("resource not found")

// ErrNoSuchDataSource reports that no querier is registered for a data
// source kind; for a check this is an unresolvable dependency.
var ErrNoSuchDataSource = errors.New("no such data source")

// Querier performs read-only data lookups for check blocks.
type Querier interface {
	Query(ctx context.Context, kind string, args map[string]cty.Value) (cty.Value, error)
}

// Provider is the full collaborator capability: typed resource lifecycle
// plus data lookups. Implementations bring their own retry policy; a call
// that still fails surfaces as an *ExternalError.
type Provider interface {
	Querier

	Create(ctx context.Context, kind, name string, attrs cty.Value) (cty.Value, error)
	Read(ctx context.Context, kind, name string) (cty.Value, error)
	Update(ctx context.Context, kind, name string, attrs cty.Value) (cty.Value, error)
	Delete(ctx context.Context, kind, name string) error
}

// ExternalError wraps a collaborator failure (including timeouts) so the
// run engine can report it as an infrastructure failure instead of folding
// it into expected-failure semantics.
type ExternalError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// IsExternal reports whether err (or anything it wraps) is an
// ExternalError.
func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}
