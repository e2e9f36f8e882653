package pipeline

import (
	"github.com/rucd-project/apt-graph/graphx"
	"github.com/rucd-project/apt-graph/rank"
	"github.com/rucd-project/apt-graph/stats"
	"github.com/rucd-project/apt-graph/store"
)

// stageCount mirrors params.Stage's eight slots (spec/§4.5).
const stageCount = 8

// stage0Output is stage 0: the resolved user set and their retained
// per-feature bundles (spec/§3's "feature graphs are loaded lazily...
// and retained until the target user changes").
type stage0Output struct {
	users   []string
	bundles map[string]*store.FeatureGraphBundle
}

// stage1Output is stage 1: per-user fused graphs and the cross-user
// aggregate graph.
type stage1Output struct {
	perUser   map[string]*graphx.Graph
	aggregate *graphx.Graph
}

// stage2Output is stage 2: the aggregate graph's similarity sample and
// its statistics.
type stage2Output struct {
	similarities []float64
	mean         float64
	variance     float64
	hist         stats.Histogram
}

// stage3Output is stage 3: the resolved prune threshold, the pruned
// graph, and its connected components.
type stage3Output struct {
	threshold  float64
	pruned     *graphx.Graph
	components []*graphx.Graph
}

// stage4Output is stage 4: the component-size sample and its
// statistics.
type stage4Output struct {
	sizes    []float64
	mean     float64
	variance float64
	hist     stats.Histogram
}

// stage5Output is stage 5: the size-filtered cluster list.
type stage5Output struct {
	filtered []*graphx.Graph
}

// stage6Output is stage 6: the whitelisted cluster list.
type stage6Output struct {
	whitelisted []*graphx.Graph
}

// stage7Output is stage 7: the ranking result.
type stage7Output struct {
	result rank.Result
}

// stageSlot is one tagged cache slot (spec/§9's "replace the deeply
// nested parameter comparison with a vector of tagged cache slots,
// each carrying its input fingerprint").
type stageSlot struct {
	valid bool
	fp    uint64
	value any
}

// SessionState is the C9 component: one owned state per active target
// (user or subnet), holding the eight tagged cache slots. The
// Controller is its sole writer, per spec/§9's "do not expose mutators
// individually" design note — SessionState itself exposes no mutation
// method at all.
type SessionState struct {
	target string
	slots  [stageCount]stageSlot
}

func newSessionState(target string) *SessionState {
	return &SessionState{target: target}
}

// firstInvalid returns the index of the first stage whose cached
// fingerprint does not match fp, or stageCount if every slot is valid
// and matches — spec/§4.5's "on the first mismatch, that stage and all
// later stages are recomputed; earlier stages reuse cache."
func (s *SessionState) firstInvalid(fp [stageCount]uint64) int {
	for i := 0; i < stageCount; i++ {
		if !s.slots[i].valid || s.slots[i].fp != fp[i] {
			return i
		}
	}
	return stageCount
}

func (s *SessionState) get(stage int) any {
	return s.slots[stage].value
}

func (s *SessionState) set(stage int, fp uint64, value any) {
	s.slots[stage] = stageSlot{valid: true, fp: fp, value: value}
}
