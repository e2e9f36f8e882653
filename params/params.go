// Package params defines Parameters, the full query vector that drives
// one pipeline run, and its per-stage fingerprinting used by the
// pipeline controller's cache-invalidation rule (spec/§4.5).
package params

import (
	"hash/fnv"
	"math"
)

// Stage identifies one of the eight pipeline stages (spec/§4.5).
type Stage int

const (
	StageUsers Stage = iota
	StageFusion
	StageSimilarityStats
	StagePrune
	StageClusterStats
	StageSizeFilter
	StageWhitelist
	StageRanking
	stageCount
)

// Parameters is a full query: the target, the feature/ordered weight
// vectors, the prune and cluster-size inputs (raw-or-z, selected by
// their *ZBool flags), the whitelist inputs, the minimum-requests
// threshold, the ranking weight vector, and the APT-search flag.
//
// Validation tags are consumed by the query package's validator — see
// DESIGN.md for why validation lives at that boundary rather than here.
type Parameters struct {
	TargetID string `validate:"required"`

	FeatureWeights []float64 `validate:"required,dive,gte=0"`
	OrderedWeights []float64 `validate:"required,dive,gte=0"`

	PruneThresholdTemp float64
	PruneZBool         bool

	MaxClusterSizeTemp float64
	ClusterZBool       bool

	WhitelistEnabled bool
	WhitelistOngoing string
	MinRequests      int `validate:"gte=0"`

	// RankingWeights holds r0 (parent-weight), r1 (child-weight), r2
	// (request-count; may be negative — it is allowed to penalize).
	RankingWeights [3]float64

	APTSearch bool
}

// Fingerprint returns one FNV-1a hash per dependency group named in
// spec/§4.5's stage table. Floats are hashed over their IEEE-754 bit
// pattern (math.Float64bits) rather than compared by value, per §3's
// "canonicalize floating-point fingerprints" design note — this keeps
// NaN and signed-zero from producing spurious equality or inequality.
func (p Parameters) Fingerprint() [int(stageCount)]uint64 {
	var fp [int(stageCount)]uint64

	h := fnv.New64a()

	writeString := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	writeFloat := func(f float64) {
		var buf [8]byte
		bits := math.Float64bits(f)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	writeBool := func(b bool) {
		if b {
			_, _ = h.Write([]byte{1})
		} else {
			_, _ = h.Write([]byte{0})
		}
	}
	writeInt := func(i int) {
		writeFloat(float64(i))
	}
	sum := func() uint64 {
		v := h.Sum64()
		h.Reset()
		return v
	}

	// Stage 0: user/subnet selection.
	writeString(p.TargetID)
	fp[StageUsers] = sum()

	// Stage 1: stage 0 OR feature weights OR ordered weights.
	fp[StageFusion] = fp[StageUsers]
	for _, w := range p.FeatureWeights {
		writeFloat(w)
	}
	for _, w := range p.OrderedWeights {
		writeFloat(w)
	}
	fp[StageFusion] ^= sum()

	// Stage 2: stage 1 OR prune_z_bool.
	fp[StageSimilarityStats] = fp[StageFusion]
	writeBool(p.PruneZBool)
	fp[StageSimilarityStats] ^= sum()

	// Stage 3: stage 2 OR prune_threshold_temp.
	fp[StagePrune] = fp[StageSimilarityStats]
	writeFloat(p.PruneThresholdTemp)
	fp[StagePrune] ^= sum()

	// Stage 4: stage 3 OR cluster_z_bool.
	fp[StageClusterStats] = fp[StagePrune]
	writeBool(p.ClusterZBool)
	fp[StageClusterStats] ^= sum()

	// Stage 5: stage 4 OR max_cluster_size_temp.
	fp[StageSizeFilter] = fp[StageClusterStats]
	writeFloat(p.MaxClusterSizeTemp)
	fp[StageSizeFilter] ^= sum()

	// Stage 6: stage 5 OR whitelist flag/content/min-requests.
	fp[StageWhitelist] = fp[StageSizeFilter]
	writeBool(p.WhitelistEnabled)
	writeString(p.WhitelistOngoing)
	writeInt(p.MinRequests)
	fp[StageWhitelist] ^= sum()

	// Stage 7: stage 6 OR ranking weights OR APT-search flag.
	fp[StageRanking] = fp[StageWhitelist]
	for _, w := range p.RankingWeights {
		writeFloat(w)
	}
	writeBool(p.APTSearch)
	fp[StageRanking] ^= sum()

	return fp
}
