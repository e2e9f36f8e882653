package graphx

import (
	"testing"

	"github.com/rucd-project/apt-graph/domain"
)

func TestPutMaintainsNodeInvariant(t *testing.T) {
	g := New(UnboundedK)
	a := domain.NewDomain("A")
	b := domain.NewDomain("B")
	g.Put(a, NeighborList{{Node: b, Similarity: 0.5}})

	if !g.Contains("B") {
		t.Error("expected neighbor B to be registered as a key")
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.Len())
	}
}

func TestPruneRemovesBelowThresholdKeepsIsolated(t *testing.T) {
	g := New(UnboundedK)
	a, b, c := domain.NewDomain("A"), domain.NewDomain("B"), domain.NewDomain("C")
	g.Put(a, NeighborList{{Node: b, Similarity: 0.8}, {Node: c, Similarity: 0.2}})
	g.Put(c, nil)

	g.Prune(0.5)

	nbrs := g.Neighbors("A")
	if len(nbrs) != 1 || nbrs[0].Node.Name != "B" {
		t.Errorf("expected only B to survive pruning, got %+v", nbrs)
	}
	if !g.Contains("C") {
		t.Error("expected C to remain as a key after pruning to empty neighbor list")
	}
}

func TestPruneMonotonicity(t *testing.T) {
	build := func() *Graph {
		g := New(UnboundedK)
		a, b := domain.NewDomain("A"), domain.NewDomain("B")
		g.Put(a, NeighborList{{Node: b, Similarity: 0.4}})
		return g
	}

	low := build()
	low.Prune(0.3)
	high := build()
	high.Prune(0.5)

	if len(high.Neighbors("A")) > len(low.Neighbors("A")) {
		t.Error("pruning at a higher threshold must not keep more edges than a lower threshold")
	}
}

func TestConnectedComponentsPartition(t *testing.T) {
	g := New(UnboundedK)
	a, b, c := domain.NewDomain("A"), domain.NewDomain("B"), domain.NewDomain("C")
	g.Put(a, NeighborList{{Node: b, Similarity: 1}})
	g.Put(c, nil)

	comps := g.ConnectedComponents()
	if len(comps) != 2 {
		t.Fatalf("expected 2 components ({A,B} and {C}), got %d", len(comps))
	}

	total := 0
	for _, c := range comps {
		total += c.Len()
	}
	if total != g.Len() {
		t.Errorf("sum of component sizes %d must equal node count %d", total, g.Len())
	}
}

func TestConnectedComponentsUndirectedReachability(t *testing.T) {
	g := New(UnboundedK)
	a, b := domain.NewDomain("A"), domain.NewDomain("B")
	// Only a B→A edge exists; A and B must still be in the same component.
	g.Put(b, NeighborList{{Node: a, Similarity: 1}})

	comps := g.ConnectedComponents()
	if len(comps) != 1 {
		t.Fatalf("expected 1 component, got %d", len(comps))
	}
}

func TestCopyIsIndependent(t *testing.T) {
	g := New(UnboundedK)
	a, b := domain.NewDomain("A"), domain.NewDomain("B")
	g.Put(a, NeighborList{{Node: b, Similarity: 0.9}})

	clone := g.Copy()
	clone.Prune(1.0)

	if len(g.Neighbors("A")) != 1 {
		t.Error("pruning the clone must not affect the original graph")
	}
}
