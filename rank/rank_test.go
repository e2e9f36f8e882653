package rank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/graphx"
)

// buildS1Clusters reproduces spec/§8 scenario S1 post-prune/components:
// component {A,B} with A->B(0.4), singleton component {C}.
func buildS1Clusters() []*graphx.Graph {
	a, b, c := domain.NewDomain("A"), domain.NewDomain("B"), domain.NewDomain("C")

	ab := graphx.New(graphx.UnboundedK)
	ab.Put(a, graphx.NeighborList{{Node: b, Similarity: 0.4}})
	ab.Put(b, nil)

	cc := graphx.New(graphx.UnboundedK)
	cc.Put(c, nil)

	return []*graphx.Graph{ab, cc}
}

func TestRunS1ChildrenOnlyRanking(t *testing.T) {
	result, err := Run(context.Background(), buildS1Clusters(), Weights{Parents: 0, Children: 1, Requests: 0}, false)
	require.NoError(t, err)

	require.Len(t, result.Ranking, 2)
	assert.Equal(t, 0.4, result.Ranking[0].Index)
	assert.Equal(t, []string{"A"}, result.Ranking[0].Names)
	assert.Equal(t, 0.0, result.Ranking[1].Index)
	assert.ElementsMatch(t, []string{"B", "C"}, result.Ranking[1].Names)
}

func TestFlattenSumsDuplicateNeighborEntries(t *testing.T) {
	a, b := domain.NewDomain("A"), domain.NewDomain("B")

	g1 := graphx.New(graphx.UnboundedK)
	g1.Put(a, graphx.NeighborList{{Node: b, Similarity: 0.3}})

	g2 := graphx.New(graphx.UnboundedK)
	g2.Put(a, graphx.NeighborList{{Node: b, Similarity: 0.2}})

	flat, err := Flatten(context.Background(), []*graphx.Graph{g1, g2})
	require.NoError(t, err)
	nbrs := flat.Neighbors("A")
	require.Len(t, nbrs, 2, "duplicate entries are summed via concatenation, not deduplicated (spec/§9 open question)")

	var total float64
	for _, n := range nbrs {
		total += n.Similarity
	}
	assert.InDelta(t, 0.5, total, 1e-12)
}

func TestSortByIndexTieBreakIsStable(t *testing.T) {
	a, b := domain.NewDomain("B"), domain.NewDomain("A")
	g := graphx.New(graphx.UnboundedK)
	g.Put(a, nil)
	g.Put(b, nil)

	sorted, _ := Rank(g, Weights{})
	assert.Equal(t, []string{"B", "A"}, sorted, "equal indices must preserve graph insertion order")
}

// TestBuildReportS4 matches spec/§8 scenario S4: evil.apt at position 7
// of 100 ⇒ TOP percentile formatted to two decimals as "7.00%".
func TestBuildReportS4(t *testing.T) {
	sorted := make([]string, 100)
	idx := make(map[string]float64, 100)
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("d%d", i)
		if i == 6 {
			name = "evil.apt"
		}
		sorted[i] = name
		idx[name] = float64(100 - i)
	}

	report := BuildReport(sorted, idx)
	require.Len(t, report.Domains, 1)
	assert.Equal(t, "evil.apt", report.Domains[0].Name)
	assert.InDelta(t, 7.0, report.TopPercentile, 1e-9)

	summary := Summary(Bucketize(sorted, idx), report)
	assert.Contains(t, summary, "TOP for first APT: 7.00%")
}

func TestFlattenRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Flatten(ctx, buildS1Clusters())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndicesParentsChildrenRequests(t *testing.T) {
	a := domain.NewDomain("A")
	a.AddRequest(domain.Request{Timestamp: 1})
	a.AddRequest(domain.Request{Timestamp: 2})
	b := domain.NewDomain("B")

	g := graphx.New(graphx.UnboundedK)
	g.Put(a, graphx.NeighborList{{Node: b, Similarity: 0.7}})
	g.Put(b, nil)

	parents, children, requests := Indices(g)
	assert.Equal(t, 0.0, parents["A"])
	assert.Equal(t, 0.7, parents["B"])
	assert.Equal(t, 0.7, children["A"])
	assert.Equal(t, 0.0, children["B"])
	assert.Equal(t, 2.0, requests["A"])
	assert.Equal(t, 0.0, requests["B"])
}
