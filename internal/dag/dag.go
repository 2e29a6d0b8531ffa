// SPDX-License-Identifier: MPL-2.0

// Package dag builds the requirement graph of a partial set and checks it
// ahead of resolution: dangling requirements, cycles, and the length of the
// longest requirement chain. The resolver does not depend on it; discovery
// and the check command use it to report problems before anything is
// aggregated.
package dag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/graphweave/graphweave/internal/partial"
)

type (
	// CycleError indicates that the requirement graph contains a cycle.
	CycleError struct {
		// Cycle lists the partials that could not be ordered. It always
		// contains at least every partial on one cycle.
		Cycle []string
	}

	// Edge is one unresolved REQUIRES entry.
	Edge struct {
		From string
		To   string
	}

	// Graph is a directed requirement graph. An edge from A to B means
	// "A requires B", so B has to be available whenever A is selected.
	Graph struct {
		// requires maps each node to the nodes it requires, in declaration order.
		requires map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
		// dangling holds edges whose target was never added as a node.
		dangling []Edge
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("requirement cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		requires: make(map[string][]string),
		nodeSet:  make(map[string]bool),
	}
}

// FromPartials builds the graph of the given partials. Nodes are added in
// name order; requirements that name no partial in the set are kept as
// dangling edges instead of nodes.
func FromPartials(partials []*partial.Partial) *Graph {
	sorted := slices.Clone(partials)
	slices.SortFunc(sorted, func(a, b *partial.Partial) int { return strings.Compare(a.Name(), b.Name()) })

	g := New()
	for _, p := range sorted {
		g.AddNode(p.Name())
	}
	for _, p := range sorted {
		for _, req := range p.RequiredNames() {
			if !g.nodeSet[req] {
				g.dangling = append(g.dangling, Edge{From: p.Name(), To: req})
				continue
			}
			g.AddEdge(p.Name(), req)
		}
	}
	return g
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that "from" requires "to". Both nodes are implicitly added.
// Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.requires[from], to) {
		return
	}
	g.requires[from] = append(g.requires[from], to)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.nodes) }

// Requires returns the direct requirements of name.
func (g *Graph) Requires(name string) []string { return slices.Clone(g.requires[name]) }

// Dangling returns the requirement edges whose target is not in the graph.
func (g *Graph) Dangling() []Edge { return slices.Clone(g.dangling) }

// TopologicalSort returns the nodes ordered so that every partial appears
// after all partials it requires, using Kahn's algorithm. Nodes at the same
// level keep insertion order. Returns CycleError if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// A node is ready once every partial it requires has been emitted.
	pending := make(map[string]int, len(g.nodes))
	requiredBy := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		pending[node] = len(g.requires[node])
		for _, req := range g.requires[node] {
			requiredBy[req] = append(requiredBy[req], node)
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if pending[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range requiredBy[node] {
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if pending[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// Depths returns, for every node, the number of levels a resolution starting
// at that node walks through: 1 for a partial without requirements, 1 plus
// the deepest requirement otherwise. Returns CycleError if the graph has a
// cycle.
func (g *Graph) Depths() (map[string]int, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	depths := make(map[string]int, len(order))
	for _, node := range order {
		d := 1
		for _, req := range g.requires[node] {
			d = max(d, depths[req]+1)
		}
		depths[node] = d
	}
	return depths, nil
}
