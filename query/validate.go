package query

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/rucd-project/apt-graph/params"
)

const weightTolerance = 1e-10

// newValidator builds the *validator.Validate that each Engine uses in
// Analyze, registering a struct-level "sumToOne" validation on top of
// params.Parameters' field tags (spec/§8 property 1's weight
// normalization guard), grounded on activecm/rita's and AleutianLocal's
// use of go-playground/validator/v10 at the service boundary.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateParameters, params.Parameters{})
	return v
}

func validateParameters(sl validator.StructLevel) {
	p := sl.Current().Interface().(params.Parameters)

	if !sumsToOne(p.FeatureWeights) {
		sl.ReportError(p.FeatureWeights, "FeatureWeights", "FeatureWeights", "sumToOne", "")
	}
	if !sumsToOne(p.OrderedWeights) {
		sl.ReportError(p.OrderedWeights, "OrderedWeights", "OrderedWeights", "sumToOne", "")
	}

	// RankingWeights[0] and [1] must be non-negative; [2] may be
	// negative (spec/§3: "position 2 may be negative — it multiplies
	// request count and is allowed to penalize").
	if p.RankingWeights[0] < 0 {
		sl.ReportError(p.RankingWeights[0], "RankingWeights[0]", "RankingWeights[0]", "gte", "")
	}
	if p.RankingWeights[1] < 0 {
		sl.ReportError(p.RankingWeights[1], "RankingWeights[1]", "RankingWeights[1]", "gte", "")
	}
	rwSum := p.RankingWeights[0] + p.RankingWeights[1] + p.RankingWeights[2]
	if math.Abs(rwSum-1) > weightTolerance {
		sl.ReportError(p.RankingWeights, "RankingWeights", "RankingWeights", "sumToOne", "")
	}

	// Negative thresholds are only permitted in z-mode (spec/§7).
	if !p.PruneZBool && p.PruneThresholdTemp < 0 {
		sl.ReportError(p.PruneThresholdTemp, "PruneThresholdTemp", "PruneThresholdTemp", "gte", "")
	}
	if !p.ClusterZBool && p.MaxClusterSizeTemp < 0 {
		sl.ReportError(p.MaxClusterSizeTemp, "MaxClusterSizeTemp", "MaxClusterSizeTemp", "gte", "")
	}
}

func sumsToOne(ws []float64) bool {
	var sum float64
	for _, w := range ws {
		if w < 0 {
			return false
		}
		sum += w
	}
	return math.Abs(sum-1) <= weightTolerance
}
