package provider

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Mux routes data lookups to the querier registered for each kind while
// delegating the resource lifecycle to a single backing provider. It lets
// checks mix local state lookups with HTTP probes in one configuration.
type Mux struct {
	Provider
	queriers map[string]Querier
}

// NewMux wraps a backing provider. The backing provider also serves any
// query kind no querier is registered for.
func NewMux(backing Provider) *Mux {
	return &Mux{Provider: backing, queriers: make(map[string]Querier)}
}

// Register routes a data source kind to a querier. Registering a kind
// twice is a programmer error.
func (m *Mux) Register(kind string, q Querier) {
	if _, dup := m.queriers[kind]; dup {
		panic(fmt.Sprintf("provider: duplicate querier for kind %q", kind))
	}
	m.queriers[kind] = q
}

// Query dispatches by kind.
func (m *Mux) Query(ctx context.Context, kind string, args map[string]cty.Value) (cty.Value, error) {
	if q, ok := m.queriers[kind]; ok {
		return q.Query(ctx, kind, args)
	}
	return m.Provider.Query(ctx, kind, args)
}
