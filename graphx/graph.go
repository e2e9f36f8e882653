// Package graphx implements the C1 graph primitive: a directed,
// weighted graph of domain.Domain nodes with bounded-or-unbounded
// neighbor lists, pruning, and undirected connected-component
// enumeration.
//
// Grounded on graph/core's adjacency-list mutation style and on
// gridgraph's BFS-per-unvisited-node component enumeration, adapted to
// keep an explicit insertion-order index alongside the node map —
// spec/§9's "ordered collections with stable iteration" design note —
// since plain Go maps cannot provide the stable tie-break order that
// clustering and ranking depend on.
package graphx

import (
	"math"
	"sync"

	"github.com/rucd-project/apt-graph/domain"
)

// Neighbor is a (node, similarity) pair. Similarities are symmetric in
// intent but stored directed: an A→B entry is independent of B→A.
type Neighbor struct {
	Node       *domain.Domain
	Similarity float64
}

// NeighborList is an ordered sequence of Neighbors for one node.
type NeighborList []Neighbor

// UnboundedK marks a Graph whose NeighborLists carry no k-NN bound
// (fusion and aggregate graphs per spec/§3).
const UnboundedK = math.MaxInt32

// Graph is a mapping node → NeighborList plus a per-graph neighbor
// bound kMax. Iteration over nodes follows a stable, insertion-defined
// order; the invariant "every node in any NeighborList is also a key
// of the graph" is maintained by Put.
type Graph struct {
	mu    sync.RWMutex
	kMax  int
	order []string
	nodes map[string]*domain.Domain
	adj   map[string]NeighborList
}

// New constructs an empty Graph with the given neighbor-list bound.
func New(kMax int) *Graph {
	return &Graph{
		kMax:  kMax,
		nodes: make(map[string]*domain.Domain),
		adj:   make(map[string]NeighborList),
	}
}

// KMax returns the graph's neighbor-list bound.
func (g *Graph) KMax() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.kMax
}

// Put sets node's NeighborList, registering node as a key if absent
// and registering every neighbor named in nbrs as a key too (possibly
// with an empty NeighborList), preserving the invariant that every
// referenced node is also a key of the graph.
func (g *Graph) Put(node *domain.Domain, nbrs NeighborList) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.addNodeLocked(node)
	g.adj[node.Name] = nbrs
	for _, n := range nbrs {
		g.addNodeLocked(n.Node)
	}
}

// addNodeLocked registers v as a key (and in the insertion-order
// index) if it is not already present. Caller must hold g.mu.
func (g *Graph) addNodeLocked(v *domain.Domain) {
	if _, ok := g.nodes[v.Name]; ok {
		return
	}
	g.nodes[v.Name] = v
	g.order = append(g.order, v.Name)
	if _, ok := g.adj[v.Name]; !ok {
		g.adj[v.Name] = nil
	}
}

// Neighbors returns the NeighborList stored for name, or nil if name
// is absent.
func (g *Graph) Neighbors(name string) NeighborList {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.adj[name]
}

// Contains reports whether name is a key of the graph.
func (g *Graph) Contains(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[name]
	return ok
}

// Node returns the Domain registered under name, if any.
func (g *Graph) Node(name string) (*domain.Domain, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.nodes[name]
	return v, ok
}

// Nodes returns every node in the graph, in stable insertion order.
func (g *Graph) Nodes() []*domain.Domain {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*domain.Domain, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of nodes (keys) in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Prune removes, in place, every neighbor entry with similarity
// strictly below threshold. Nodes left with an empty NeighborList
// remain as keys (isolated nodes become singleton components during
// clustering), per spec/§4.1.
func (g *Graph) Prune(threshold float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, name := range g.order {
		nbrs := g.adj[name]
		if len(nbrs) == 0 {
			continue
		}
		kept := nbrs[:0:0]
		for _, n := range nbrs {
			if n.Similarity >= threshold {
				kept = append(kept, n)
			}
		}
		g.adj[name] = kept
	}
}

// Copy returns a deep clone: nodes are shared by reference to
// domain.Domain (per spec/§4.1), but the neighbor mapping and
// insertion-order index are independently allocated.
func (g *Graph) Copy() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := New(g.kMax)
	clone.order = append([]string(nil), g.order...)
	for name, v := range g.nodes {
		clone.nodes[name] = v
	}
	for name, nbrs := range g.adj {
		clone.adj[name] = append(NeighborList(nil), nbrs...)
	}
	return clone
}

// ConnectedComponents partitions the node set into maximal
// undirected-reachability subsets (an A→B or B→A edge suffices to
// connect A and B). Components are emitted in the order their
// first-discovered node appears in the parent graph's node iteration
// order; within a component, nodes retain BFS-traversal order.
//
// Each returned component is an independent *Graph carrying only the
// edges between its own members (an edge to a node outside the
// component cannot exist, since reachability is symmetric), with
// kMax == UnboundedK.
func (g *Graph) ConnectedComponents() []*Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	undirected := g.undirectedAdjacencyLocked()

	visited := make(map[string]bool, len(g.order))
	var components []*Graph

	for _, start := range g.order {
		if visited[start] {
			continue
		}
		queue := []string{start}
		visited[start] = true
		var memberOrder []string

		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			memberOrder = append(memberOrder, u)
			for _, v := range undirected[u] {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}

		components = append(components, g.buildComponentLocked(memberOrder))
	}

	return components
}

// undirectedAdjacencyLocked returns, for each node, the set of
// neighbor names reachable via an outgoing OR incoming edge. Caller
// must hold g.mu (read lock suffices).
func (g *Graph) undirectedAdjacencyLocked() map[string][]string {
	adj := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		adj[name] = nil
	}
	for _, from := range g.order {
		for _, n := range g.adj[from] {
			adj[from] = append(adj[from], n.Node.Name)
			adj[n.Node.Name] = append(adj[n.Node.Name], from)
		}
	}
	return adj
}

// buildComponentLocked constructs the *Graph for one component given
// its members in BFS-traversal order. Caller must hold g.mu.
func (g *Graph) buildComponentLocked(members []string) *Graph {
	comp := New(UnboundedK)
	memberSet := make(map[string]bool, len(members))
	for _, name := range members {
		memberSet[name] = true
	}
	// Register every member first so Put's neighbor registration cannot
	// move a member ahead of its BFS position.
	for _, name := range members {
		comp.Put(g.nodes[name], nil)
	}
	for _, name := range members {
		var kept NeighborList
		for _, n := range g.adj[name] {
			if memberSet[n.Node.Name] {
				kept = append(kept, n)
			}
		}
		comp.Put(g.nodes[name], kept)
	}
	return comp
}
