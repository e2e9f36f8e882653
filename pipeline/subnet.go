package pipeline

import (
	"context"
	"net"

	"github.com/rucd-project/apt-graph/store"
)

// resolveTargets expands target into the set of users a query should
// run over, per spec/§4.5's subnet-expansion rule: when target is a
// valid CIDR-style subnet, substitute every known user whose address
// lies inside it (bitwise IPv4 prefix match); the sentinel "0.0.0.0"
// expands to the full user list. Any other target is returned as a
// single-element user list unchanged.
//
// net.ParseCIDR/net.IP are stdlib — no pack member ships an IP-address
// library, and CIDR containment is a one-call stdlib operation with no
// third-party equivalent in the examples (see DESIGN.md).
func resolveTargets(ctx context.Context, st store.Store, inputDir, target string) ([]string, error) {
	if target == "0.0.0.0" {
		return st.GetAllUsers(ctx, inputDir)
	}

	_, ipnet, err := net.ParseCIDR(target)
	if err != nil {
		return []string{target}, nil
	}

	users, err := st.GetAllUsers(ctx, inputDir)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, u := range users {
		ip := net.ParseIP(u)
		if ip == nil {
			continue
		}
		if ipnet.Contains(ip) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}
