package filter

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/graphx"
	"github.com/rucd-project/apt-graph/xlog"
)

// BuildWhitelist returns the union of the persistent whitelist file at
// persistentPath (one domain per line) and the ad-hoc ongoing string
// (split on newlines). A missing or unreadable persistentPath is
// logged at Warn and treated as an empty persistent whitelist, per
// spec/§7's IOError policy for whitelist reads ("logged and treated as
// an empty whitelist; the query proceeds").
func BuildWhitelist(fs afero.Fs, persistentPath, ongoing string) map[string]struct{} {
	set := make(map[string]struct{})

	if persistentPath != "" {
		b, err := afero.ReadFile(fs, persistentPath)
		if err != nil {
			xlog.Get().Warn().Err(err).Str("path", persistentPath).Msg("whitelist file unreadable, proceeding with empty persistent whitelist")
		} else {
			for _, line := range strings.Split(string(b), "\n") {
				line = strings.TrimRight(line, "\r")
				if line != "" {
					set[line] = struct{}{}
				}
			}
		}
	}

	for _, line := range strings.Split(ongoing, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			set[line] = struct{}{}
		}
	}

	return set
}

// Apply suppresses whitelisted and low-traffic domains within each
// cluster. A domain D in cluster G' is whitelisted if:
//   - D.Name is in whitelist, or
//   - for any user u in activeUsers, the count of D's requests with
//     ClientID == u is strictly below minRequests.
//
// Whitelisted nodes and their incident edges are removed from the
// cluster. The per-component loop polls ctx for cancellation per
// spec/§4.6/§5.
func Apply(ctx context.Context, clusters []*graphx.Graph, whitelist map[string]struct{}, activeUsers []string, minRequests int) ([]*graphx.Graph, error) {
	out := make([]*graphx.Graph, 0, len(clusters))

	for _, cluster := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		suppressed := make(map[string]bool)
		for _, d := range cluster.Nodes() {
			if _, ok := whitelist[d.Name]; ok {
				suppressed[d.Name] = true
				continue
			}
			if belowThresholdForAnyUser(d, activeUsers, minRequests) {
				suppressed[d.Name] = true
			}
		}

		if len(suppressed) == 0 {
			out = append(out, cluster)
			continue
		}

		survivor := removeNodes(cluster, suppressed)
		if survivor.Len() > 0 {
			out = append(out, survivor)
		}
	}

	return out, nil
}

func belowThresholdForAnyUser(d *domain.Domain, activeUsers []string, minRequests int) bool {
	for _, u := range activeUsers {
		n := 0
		for _, r := range d.Requests() {
			if r.ClientID == u {
				n++
			}
		}
		if n < minRequests {
			return true
		}
	}
	return false
}

// removeNodes rebuilds a cluster without the named nodes and any edge
// incident to them.
func removeNodes(cluster *graphx.Graph, remove map[string]bool) *graphx.Graph {
	out := graphx.New(cluster.KMax())
	for _, d := range cluster.Nodes() {
		if remove[d.Name] {
			continue
		}
		var kept graphx.NeighborList
		for _, n := range cluster.Neighbors(d.Name) {
			if !remove[n.Node.Name] {
				kept = append(kept, n)
			}
		}
		out.Put(d, kept)
	}
	return out
}
