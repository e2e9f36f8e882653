package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rucd-project/apt-graph/params"
	"github.com/rucd-project/apt-graph/store"
)

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
}

// newS1Fixture builds the store layout for spec/§8 scenario S1: a
// single user "u1" with feature graphs F0: A->B(0.8), F1: A->C(0.6).
func newS1Fixture(t *testing.T) (afero.Fs, *store.FileStore) {
	t.Helper()
	fs := afero.NewMemMapFs()

	writeFile(t, fs, "/in/users.json", `{"users":["u1"]}`)
	writeFile(t, fs, "/in/subnets.json", `{"subnets":[]}`)
	writeFile(t, fs, "/in/k.json", `{"k":5}`)
	writeFile(t, fs, "/in/u1_0.json", `{
		"k_max": 5,
		"nodes": [
			{"name":"A","requests":[],"neighbors":[{"name":"B","similarity":0.8}]},
			{"name":"B","requests":[],"neighbors":[]}
		]
	}`)
	writeFile(t, fs, "/in/u1_1.json", `{
		"k_max": 5,
		"nodes": [
			{"name":"A","requests":[],"neighbors":[{"name":"C","similarity":0.6}]},
			{"name":"C","requests":[],"neighbors":[]}
		]
	}`)

	return fs, store.NewFileStore(fs)
}

func s1Params() params.Parameters {
	return params.Parameters{
		TargetID:           "u1",
		FeatureWeights:     []float64{0.5, 0.5},
		OrderedWeights:     []float64{0.5, 0.5},
		PruneThresholdTemp: 0.35,
		PruneZBool:         false,
		MaxClusterSizeTemp: 2,
		ClusterZBool:       false,
		WhitelistEnabled:   false,
		MinRequests:        0,
		RankingWeights:     [3]float64{0, 1, 0},
		APTSearch:          false,
	}
}

// TestAnalyzeS1 matches spec/§8 scenario S1 end-to-end: fused edges
// A->B(0.4)/A->C(0.3), pruned at 0.35 to only A->B, components
// {A,B}/{C} both kept at max_cluster_size=2, ranking weights (0,1,0)
// puts A on top with B and C tied at 0.
func TestAnalyzeS1(t *testing.T) {
	_, st := newS1Fixture(t)
	c := NewController(st, afero.NewMemMapFs(), nil)

	out, err := c.Analyze(context.Background(), "/in", s1Params())
	require.NoError(t, err)
	require.Len(t, out.Ranking, 2)

	assert.InDelta(t, 0.4, out.Ranking[0].Index, 1e-12)
	assert.Equal(t, []string{"A"}, out.Ranking[0].Names)
	assert.InDelta(t, 0.0, out.Ranking[1].Index, 1e-12)
	assert.ElementsMatch(t, []string{"B", "C"}, out.Ranking[1].Names)
}

func TestAnalyzeS3CancelThenResumeFromCache(t *testing.T) {
	_, st := newS1Fixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	rec := &RecordingSink{}
	c := NewController(st, afero.NewMemMapFs(), nil).WithSink(func(uuid.UUID) ProgressSink {
		return &hookSink{rec: rec, hookStage: int(params.StageSimilarityStats), hook: cancel}
	})

	_, err := c.Analyze(ctx, "/in", s1Params())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Only stages 0..2 completed and were cached before cancellation
	// fired at the end of stage 2.
	for _, ev := range rec.Events {
		assert.LessOrEqual(t, ev.Stage, int(params.StageSimilarityStats))
	}

	rec2 := &RecordingSink{}
	c.WithSink(func(uuid.UUID) ProgressSink { return rec2 })

	out, err := c.Analyze(context.Background(), "/in", s1Params())
	require.NoError(t, err)
	require.NotNil(t, out)

	// Reissuing with identical parameters must recompute only from
	// stage 3 onward — stages 0..2 are served from cache and never
	// re-emit a progress event.
	for _, ev := range rec2.Events {
		assert.GreaterOrEqual(t, ev.Stage, int(params.StagePrune))
	}
}

// hookSink records events and invokes hook once stage reaches
// hookStage, simulating a cancellation flag flipped right after that
// stage completes.
type hookSink struct {
	rec       *RecordingSink
	hookStage int
	hook      context.CancelFunc
}

func (s *hookSink) Emit(stage int, elapsed time.Duration, message string) {
	s.rec.Emit(stage, elapsed, message)
	if stage >= s.hookStage {
		s.hook()
	}
}

func TestAnalyzeReusesCacheWhenOnlyRankingWeightsChange(t *testing.T) {
	_, st := newS1Fixture(t)
	c := NewController(st, afero.NewMemMapFs(), nil)

	rec1 := &RecordingSink{}
	c.WithSink(func(uuid.UUID) ProgressSink { return rec1 })
	_, err := c.Analyze(context.Background(), "/in", s1Params())
	require.NoError(t, err)

	p2 := s1Params()
	p2.RankingWeights = [3]float64{1, 0, 0}

	rec2 := &RecordingSink{}
	c.WithSink(func(uuid.UUID) ProgressSink { return rec2 })
	_, err = c.Analyze(context.Background(), "/in", p2)
	require.NoError(t, err)

	require.Len(t, rec2.Events, 1, "only the ranking stage should recompute")
	assert.Equal(t, int(params.StageRanking), rec2.Events[0].Stage)
}
