// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

// Traversal defines a basic interface to perform traversals over a graph with
// nodes of type N.
type Traversal[N comparable] interface {

	// Edges should return the neighbours of node "u".
	Edges(u N) []N

	// Visited should return true if node "u" has already been visited in this
	// traversal. If the same traversal is used multiple times, the state that
	// tracks visited nodes should be reset.
	Visited(u N) bool
}

// DFSPath returns a path from node a to node z found by performing a depth
// first traversal. The path starts with a and ends with z. If no path is
// found, an empty slice is returned.
func DFSPath[N comparable](t Traversal[N], a, z N) []N {
	p := dfsRecursive(t, a, z, []N{})
	for i := len(p)/2 - 1; i >= 0; i-- {
		o := len(p) - i - 1
		p[i], p[o] = p[o], p[i]
	}
	return p
}

func dfsRecursive[N comparable](t Traversal[N], u, z N, path []N) []N {
	if t.Visited(u) {
		return path
	}
	for _, v := range t.Edges(u) {
		if v == z {
			return append(path, z, u)
		}
		if p := dfsRecursive(t, v, z, path); len(p) > 0 {
			return append(p, u)
		}
	}
	return path
}

// Graph is a Traversal over an adjacency map. Visited nodes are remembered
// until Reset is called.
type Graph[N comparable] struct {
	edges   map[N][]N
	visited map[N]struct{}
}

// NewGraph returns a traversal over the adjacency map.
func NewGraph[N comparable](edges map[N][]N) *Graph[N] {
	return &Graph[N]{edges: edges, visited: map[N]struct{}{}}
}

// Edges implements Traversal.
func (g *Graph[N]) Edges(u N) []N {
	return g.edges[u]
}

// Visited implements Traversal. The first call for a node returns false.
func (g *Graph[N]) Visited(u N) bool {
	if _, ok := g.visited[u]; ok {
		return true
	}
	g.visited[u] = struct{}{}
	return false
}

// Reset forgets all visited nodes.
func (g *Graph[N]) Reset() {
	clear(g.visited)
}
