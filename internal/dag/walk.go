package dag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/checkrig/internal/ctxlog"
)

// SkipError marks a node that never ran because a dependency failed. The
// walk records it as the node's result so callers can tell a skipped side
// effect from an attempted one.
type SkipError struct {
	Dependency string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped due to upstream failure of %q", e.Dependency)
}

// WalkFunc executes one node. A non-nil result fails the node and skips
// its dependents.
type WalkFunc func(ctx context.Context, id string) error

type walkNode struct {
	id         string
	dependents []*walkNode
	depCount   atomic.Int32
	skipOnce   sync.Once
	err        error
}

// Walk executes every node concurrently with the given number of workers,
// respecting dependency order: a node starts only after all of its
// dependencies succeeded. When a node fails, its transitive dependents are
// skipped (recorded with SkipError) without running. The walk always
// drains the whole graph; per-node results are returned keyed by ID, with
// nil entries for successes.
func (g *Graph) Walk(ctx context.Context, workers int, fn WalkFunc) map[string]error {
	logger := ctxlog.FromContext(ctx)
	if workers < 1 {
		workers = 1
	}

	g.mutex.RLock()
	nodes := make(map[string]*walkNode, len(g.nodes))
	for _, id := range g.order {
		nodes[id] = &walkNode{id: id}
	}
	for _, id := range g.order {
		wn := nodes[id]
		wn.depCount.Store(int32(len(g.nodes[id].deps)))
		for depID := range g.nodes[id].dependents {
			wn.dependents = append(wn.dependents, nodes[depID])
		}
	}
	order := g.order
	g.mutex.RUnlock()

	readyChan := make(chan *walkNode, len(nodes))
	var wg sync.WaitGroup
	wg.Add(len(nodes))

	rootCount := 0
	for _, id := range order {
		if nodes[id].depCount.Load() == 0 {
			readyChan <- nodes[id]
			rootCount++
		}
	}
	logger.Debug("Graph walk starting.", "nodes", len(nodes), "roots", rootCount, "workers", workers)

	var skipDependents func(wn *walkNode)
	skipDependents = func(wn *walkNode) {
		for _, dependent := range wn.dependents {
			dependent.skipOnce.Do(func() {
				logger.Debug("Skipping dependent node due to upstream failure.", "node", dependent.id, "dependency", wn.id)
				dependent.err = &SkipError{Dependency: wn.id}
				wg.Done()
				skipDependents(dependent)
			})
		}
	}

	worker := func() {
		for wn := range readyChan {
			wn.err = fn(ctx, wn.id)
			if wn.err != nil {
				logger.Debug("Node execution failed.", "node", wn.id, "error", wn.err)
				skipDependents(wn)
				wg.Done()
				continue
			}
			for _, dependent := range wn.dependents {
				if dependent.depCount.Add(-1) == 0 {
					readyChan <- dependent
				}
			}
			wg.Done()
		}
	}

	for i := 0; i < workers; i++ {
		go worker()
	}
	wg.Wait()
	close(readyChan)

	results := make(map[string]error, len(nodes))
	for id, wn := range nodes {
		results[id] = wn.err
	}
	return results
}
