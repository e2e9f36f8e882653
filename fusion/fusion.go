// Package fusion implements the C4 fusion engine: weighted combination
// of feature graphs into one per-user graph (Mode ByUsers), and
// weighted combination of per-user graphs into one aggregate graph
// (Mode All) — spec/§4.4.
//
// Cancellation follows the teacher's flow.Dinic idiom: a
// context.Context is normalized once by the caller and ctx.Err() is
// polled once per outer node, never per edge, keeping poll overhead
// sub-linear in the inner loop while still honoring spec/§5's
// per-outer-domain cancellation point.
package fusion

import (
	"context"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/graphx"
)

// Mode selects which universe Fuse iterates over.
type Mode int

const (
	// ByUsers fuses F feature graphs belonging to a single user.
	ByUsers Mode = iota
	// All fuses per-user graphs into the cross-user aggregate.
	All
)

// Fuse combines graphs under weights (one weight per input graph) into
// a single output *graphx.Graph with kMax == graphx.UnboundedK.
//
// orderedWeights is accepted, validated by the caller, and otherwise
// unused — spec/§9's open question notes that ordered weights are
// "validated and stored but not observed to influence output in the
// source pipeline"; this implementation preserves that exact
// observable behavior rather than inventing semantics for it.
//
// target is used only for log/metric attribution by callers; Fuse
// itself does not need it structurally since each element of graphs
// already belongs to exactly the scope (one user, or one per-user
// fused graph) the caller selected.
//
// Returns (nil, ctx.Err()) if cancelled before completion.
func Fuse(ctx context.Context, graphs []*graphx.Graph, target string, weights []float64, orderedWeights []float64, mode Mode) (*graphx.Graph, error) {
	_ = target         // attribution only, see doc comment
	_ = orderedWeights // TODO(spec/§9): wire real semantics once the source behavior is clarified

	out := graphx.New(graphx.UnboundedK)

	canonical := make(map[string]*domain.Domain)
	var universeOrder []string
	neighborOrder := make(map[string][]string)
	accum := make(map[string]map[string]float64)

	canon := func(d *domain.Domain) *domain.Domain {
		existing, ok := canonical[d.Name]
		if !ok {
			existing = d.Clone()
			canonical[d.Name] = existing
			universeOrder = append(universeOrder, d.Name)
			return existing
		}
		existing.Merge(d)
		return existing
	}

	for i, g := range graphs {
		if g == nil {
			continue
		}
		w := weights[i]
		for _, node := range g.Nodes() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			from := canon(node)
			if _, ok := accum[from.Name]; !ok {
				accum[from.Name] = make(map[string]float64)
			}

			for _, nbr := range g.Neighbors(node.Name) {
				to := canon(nbr.Node)
				if _, seen := accum[from.Name][to.Name]; !seen {
					neighborOrder[from.Name] = append(neighborOrder[from.Name], to.Name)
				}
				accum[from.Name][to.Name] += w * nbr.Similarity
			}
		}
	}

	for _, fromName := range universeOrder {
		var nbrs graphx.NeighborList
		for _, toName := range neighborOrder[fromName] {
			s := accum[fromName][toName]
			if s == 0 {
				continue
			}
			nbrs = append(nbrs, graphx.Neighbor{Node: canonical[toName], Similarity: s})
		}
		out.Put(canonical[fromName], nbrs)
	}

	return out, nil
}
