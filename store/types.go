package store

// The on-disk layout (spec/§6) is a directory of goccy/go-json-encoded
// files: users.json, subnets.json, k.json, and one
// "<user>_<feature-index>.json" file per (user, feature) pair. The
// wire format is declared opaque by spec/§6 ("implementations must
// supply a reader that yields the data model of §3"); JSON is this
// repo's concrete choice — see DESIGN.md.

type serializedUsers struct {
	Users []string `json:"users"`
}

type serializedSubnets struct {
	Subnets []string `json:"subnets"`
}

type serializedK struct {
	K int `json:"k"`
}

type serializedRequest struct {
	Timestamp int64  `json:"timestamp"`
	Method    string `json:"method"`
	Target    string `json:"target"`
	Status    int    `json:"status"`
	BytesIn   int64  `json:"bytes_in"`
	BytesOut  int64  `json:"bytes_out"`
	ClientID  string `json:"client_id"`
}

type serializedNeighbor struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

type serializedNode struct {
	Name      string               `json:"name"`
	Requests  []serializedRequest  `json:"requests"`
	Neighbors []serializedNeighbor `json:"neighbors"`
}

type serializedGraph struct {
	KMax  int              `json:"k_max"`
	Nodes []serializedNode `json:"nodes"`
}
