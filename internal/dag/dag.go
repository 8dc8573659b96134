// Package dag provides the dependency graph used to order resource
// lifecycle actions within a run: explicit depends_on edges plus implicit
// edges from attribute references, cycle detection at build time, and a
// bounded-concurrency walk that skips dependents of failed nodes.
package dag

import (
	"fmt"
	"sync"
)

// Graph is a directed acyclic graph of string-identified nodes. Insertion
// order is preserved so walks and topological orders are deterministic.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []string
}

type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID`
// node, meaning `toID` depends on `fromID`. An error is returned if either
// node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// DetectCycles returns an error naming one member of a dependency cycle,
// or nil when the graph is acyclic.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(n *node) error
	visit = func(n *node) error {
		switch state[n.id] {
		case visiting:
			return fmt.Errorf("dependency cycle detected involving %q", n.id)
		case done:
			return nil
		}
		state[n.id] = visiting
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[n.id] = done
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopoOrder returns node IDs in an order where every node appears after
// all of its dependencies. Ties break on insertion order. Fails if the
// graph has a cycle.
func (g *Graph) TopoOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	var ready []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, id)

		// Preserve insertion order among newly unlocked dependents.
		for _, depID := range g.order {
			if dep, ok := g.nodes[id].dependents[depID]; ok {
				indegree[dep.id]--
				if indegree[dep.id] == 0 {
					ready = append(ready, dep.id)
				}
			}
		}
	}
	return out, nil
}
