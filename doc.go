// Package aptgraph is an Advanced Persistent Threat candidate
// detection engine: it turns precomputed per-user, per-feature k-NN
// domain-similarity graphs into a ranked list of domains worth
// investigating.
//
// The pipeline, per query, is:
//
//	per-feature k-NN graphs --fuse (weighted)--> per-user graph
//	per-user graphs         --fuse (weighted)--> aggregate graph
//	aggregate graph         --prune (threshold or z-score)--> pruned graph
//	pruned graph            --connected components--> clusters
//	clusters                --size filter--> candidate clusters
//	candidate clusters      --whitelist/min-requests--> filtered clusters
//	filtered clusters       --rank (parents/children/requests)--> ranking
//
// Package layout:
//
//	domain/    — the Request/Domain data model shared by every stage
//	graphx/    — the directed weighted graph primitive (C1)
//	store/     — loads the on-disk per-user/per-feature layout (C2)
//	stats/     — mean/variance, z-score conversion, histogram binning (C3)
//	fusion/    — weighted feature and per-user graph fusion (C4)
//	filter/    — component size filter, whitelist, min-requests (C6)
//	rank/      — multi-criterion ranking and reporting (C7)
//	roc/       — ROC-curve point generation for labeled evaluation (C8)
//	params/    — the query parameter vector and its stage fingerprints
//	pipeline/  — the eight-stage controller and its session cache (C5, C9)
//	metrics/   — Prometheus instrumentation (C13)
//	xlog/      — the process-wide structured logger
//	query/     — validation and the external Analyze/GetUsers/GetRequests interface (C11)
//
// See SPEC_FULL.md for the full specification and DESIGN.md for the
// grounding ledger and the open-question decisions made while building it.
package aptgraph
