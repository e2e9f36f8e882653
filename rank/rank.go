// Package rank implements the C7 ranker: flattening filtered and
// whitelisted clusters into one aggregate graph, computing the
// parents/children/requests indices per domain, combining them into a
// single ranking index, and producing the bucketed ranking output plus
// an HTML-fragment summary (spec/§4.7).
package rank

import (
	"context"
	"fmt"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/rucd-project/apt-graph/graphx"
	"github.com/rucd-project/apt-graph/stats"
)

// Weights are the three ranking weights r0, r1, r2 from spec/§3:
// r0, r1 are non-negative; r2 may be negative (it multiplies request
// count and is allowed to penalize). Their sum must be 1 within 1e-10
// — validated by the query package, not here.
type Weights struct {
	Parents  float64
	Children float64
	Requests float64
}

// Bucket is one entry of the ranking output: an index value and the
// (insertion-ordered) list of domain names sharing it.
type Bucket struct {
	Index float64
	Names []string
}

// AptEntry records one `.apt`-suffixed domain's position in the
// ranking for the optional APT report.
type AptEntry struct {
	Name  string
	Index float64
}

// Report is the optional APT-position analysis (spec/§4.7), populated
// only when apt_search is requested.
type Report struct {
	// TopPercentile is the worst-ranked .apt domain's TOP percentile,
	// i.e. count(entries ranked at least as high) / total * 100.
	TopPercentile float64
	Domains       []AptEntry
}

// Result is the ranker's full output: the bucketed ranking, its
// HTML-fragment summary, and the optional APT report.
type Result struct {
	Ranking []Bucket
	Summary string
	Apt     *Report
}

// Flatten merges filtered+whitelisted clusters into one aggregate
// graph G+ by unioning neighbor lists; duplicate neighbor entries for
// the same (from, to) pair are summed rather than deduplicated,
// matching the observed behavior spec/§9 documents as an open
// question — this repo preserves it rather than inventing
// deduplication semantics (see DESIGN.md).
// ctx is polled once per cluster (spec/§5: "the ranking flatten (per
// cluster)"), never per domain, matching the granularity of the
// whitelist cancellation point.
func Flatten(ctx context.Context, clusters []*graphx.Graph) (*graphx.Graph, error) {
	out := graphx.New(graphx.UnboundedK)

	for _, c := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, d := range c.Nodes() {
			existing := out.Neighbors(d.Name)
			merged := append(graphx.NeighborList(nil), existing...)
			merged = append(merged, c.Neighbors(d.Name)...)
			out.Put(d, merged)
		}
	}

	return out, nil
}

// Indices computes, for every node of g, its parents (sum of incoming
// similarity), children (sum of outgoing similarity), and requests
// (request count) per spec/§4.7.
func Indices(g *graphx.Graph) (parents, children, requests map[string]float64) {
	nodes := g.Nodes()
	parents = make(map[string]float64, len(nodes))
	children = make(map[string]float64, len(nodes))
	requests = make(map[string]float64, len(nodes))

	for _, d := range nodes {
		requests[d.Name] = float64(len(d.Requests()))
		if _, ok := parents[d.Name]; !ok {
			parents[d.Name] = 0
		}
		if _, ok := children[d.Name]; !ok {
			children[d.Name] = 0
		}
	}

	for _, d := range nodes {
		for _, n := range g.Neighbors(d.Name) {
			children[d.Name] += n.Similarity
			parents[n.Node.Name] += n.Similarity
		}
	}

	return parents, children, requests
}

// Rank computes the combined index for every node of g and returns it
// sorted descending, ties broken by g's stable insertion order
// (spec/§8 property 7).
func Rank(g *graphx.Graph, w Weights) ([]string, map[string]float64) {
	parents, children, requests := Indices(g)

	names := make([]string, 0, len(g.Nodes()))
	idx := make(map[string]float64, len(names))
	for _, d := range g.Nodes() {
		names = append(names, d.Name)
		idx[d.Name] = w.Parents*parents[d.Name] + w.Children*children[d.Name] + w.Requests*requests[d.Name]
	}

	return stats.SortByIndex(names, idx), idx
}

// Bucketize groups sorted (descending) names by shared index value
// into ranking buckets, preserving insertion order within a bucket.
func Bucketize(sorted []string, idx map[string]float64) []Bucket {
	var out []Bucket
	for _, name := range sorted {
		v := idx[name]
		if len(out) > 0 && out[len(out)-1].Index == v {
			out[len(out)-1].Names = append(out[len(out)-1].Names, name)
			continue
		}
		out = append(out, Bucket{Index: v, Names: []string{name}})
	}
	return out
}

// BuildReport computes the optional APT-position analysis (spec/§4.7):
// for each `.apt`-suffixed domain in sorted order, its TOP percentile
// is the count of entries ranked at least as high divided by the total
// entry count, times 100. The reported TopPercentile is the worst
// (largest, i.e. latest-ranked) of these.
func BuildReport(sorted []string, idx map[string]float64) *Report {
	total := len(sorted)
	r := &Report{}

	for pos, name := range sorted {
		if !strings.HasSuffix(name, ".apt") {
			continue
		}
		top := float64(pos+1) / float64(total) * 100
		r.Domains = append(r.Domains, AptEntry{Name: name, Index: roundTo(idx[name], 2)})
		if top > r.TopPercentile {
			r.TopPercentile = top
		}
	}

	return r
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int(v*scale+0.5)) / scale
}

// Summary renders an HTML-fragment ranking summary into a pooled
// bytebufferpool.Buffer (grounded on AkashKesav-Whitepaper's use of
// bytebufferpool for hot-path buffer reuse), returning the
// materialized string once the buffer is released back to the pool.
func Summary(buckets []Bucket, aptReport *Report) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("<ul>")
	for _, b := range buckets {
		fmt.Fprintf(buf, "<li>%.4f: %s</li>", b.Index, strings.Join(b.Names, ", "))
	}
	buf.WriteString("</ul>")

	if aptReport != nil {
		fmt.Fprintf(buf, "<p>TOP for first APT: %.2f%%</p>", aptReport.TopPercentile)
	}

	return buf.String()
}

// Run performs the full C7 ranker pipeline: flatten, rank, bucketize,
// optionally build the APT report, and render the summary.
func Run(ctx context.Context, clusters []*graphx.Graph, w Weights, aptSearch bool) (Result, error) {
	g, err := Flatten(ctx, clusters)
	if err != nil {
		return Result{}, err
	}

	sorted, idx := Rank(g, w)
	buckets := Bucketize(sorted, idx)

	var report *Report
	if aptSearch {
		report = BuildReport(sorted, idx)
	}

	return Result{
		Ranking: buckets,
		Summary: Summary(buckets, report),
		Apt:     report,
	}, nil
}
