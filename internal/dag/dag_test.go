package dag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Equal(t, 1, g.Len())

	g.AddNode("a") // Test idempotency
	assert.Equal(t, 1, g.Len())

	g.AddNode("b")
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("acyclic graph", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("direct cycle", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))
		assert.ErrorContains(t, g.DetectCycles(), "dependency cycle")
	})

	t.Run("transitive cycle", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "a"))
		assert.ErrorContains(t, g.DetectCycles(), "dependency cycle")
	})
}

func TestTopoOrder(t *testing.T) {
	g := New()
	for _, id := range []string{"vpc", "subnet_a", "subnet_b", "instance"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("vpc", "subnet_a"))
	require.NoError(t, g.AddEdge("vpc", "subnet_b"))
	require.NoError(t, g.AddEdge("subnet_a", "instance"))

	order, err := g.TopoOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"vpc", "subnet_a", "subnet_b", "instance"}, order)

	t.Run("cycle fails", func(t *testing.T) {
		require.NoError(t, g.AddEdge("instance", "vpc"))
		_, err := g.TopoOrder()
		assert.Error(t, err)
	})
}

func TestWalk(t *testing.T) {
	t.Run("dependencies complete before dependents start", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))

		var mu sync.Mutex
		var trace []string
		results := g.Walk(context.Background(), 4, func(ctx context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			trace = append(trace, id)
			return nil
		})

		assert.Equal(t, []string{"a", "b", "c"}, trace)
		for id, err := range results {
			assert.NoError(t, err, id)
		}
	})

	t.Run("failure skips transitive dependents only", func(t *testing.T) {
		g := New()
		for _, id := range []string{"vpc", "subnet", "instance", "bucket"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("vpc", "subnet"))
		require.NoError(t, g.AddEdge("subnet", "instance"))

		boom := errors.New("boom")
		var mu sync.Mutex
		ran := make(map[string]bool)
		results := g.Walk(context.Background(), 2, func(ctx context.Context, id string) error {
			mu.Lock()
			ran[id] = true
			mu.Unlock()
			if id == "subnet" {
				return boom
			}
			return nil
		})

		assert.ErrorIs(t, results["subnet"], boom)

		var skip *SkipError
		require.ErrorAs(t, results["instance"], &skip)
		assert.Equal(t, "subnet", skip.Dependency)
		assert.False(t, ran["instance"], "skipped node must never run")

		assert.NoError(t, results["vpc"])
		assert.NoError(t, results["bucket"], "independent node unaffected")
		assert.True(t, ran["bucket"])
	})
}
