// Package filter implements the C6 filter & whitelist stage: dropping
// clusters above a size threshold, then suppressing whitelisted or
// low-traffic domains within the surviving clusters — spec/§4.6.
package filter

import "github.com/rucd-project/apt-graph/graphx"

// BySize drops every cluster whose node count strictly exceeds
// maxSize. A cluster with size exactly maxSize is kept (spec/§4.6
// boundary rule).
func BySize(clusters []*graphx.Graph, maxSize int) []*graphx.Graph {
	out := make([]*graphx.Graph, 0, len(clusters))
	for _, c := range clusters {
		if c.Len() > maxSize {
			continue
		}
		out = append(out, c)
	}
	return out
}
