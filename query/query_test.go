package query

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rucd-project/apt-graph/params"
	"github.com/rucd-project/apt-graph/pipeline"
	"github.com/rucd-project/apt-graph/store"
)

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
}

// newFixtureEngine builds spec/§8 scenario S1's single-user fixture
// (F0: A->B(0.8), F1: A->C(0.6)), with one recorded request on A so
// GetRequests has something to return, and wires it into a fresh
// Engine.
func newFixtureEngine(t *testing.T) *Engine {
	t.Helper()
	fs := afero.NewMemMapFs()

	writeFile(t, fs, "/in/users.json", `{"users":["u1"]}`)
	writeFile(t, fs, "/in/subnets.json", `{"subnets":["10.0.0.0/24"]}`)
	writeFile(t, fs, "/in/k.json", `{"k":5}`)
	writeFile(t, fs, "/in/u1_0.json", `{
		"k_max": 5,
		"nodes": [
			{"name":"A","requests":[{"timestamp":1,"method":"GET","target":"/x","status":200,"bytes_in":10,"bytes_out":20,"client_id":"c1"}],"neighbors":[{"name":"B","similarity":0.8}]},
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

	st := store.NewFileStore(fs)
	c := pipeline.NewController(st, afero.NewMemMapFs(), nil)
	return NewEngine(c, st, "/in")
}

func validParams() params.Parameters {
	return params.Parameters{
		TargetID:           "u1",
		FeatureWeights:      []float64{0.5, 0.5},
		OrderedWeights:      []float64{0.5, 0.5},
		PruneThresholdTemp: 0.35,
		MaxClusterSizeTemp: 2,
		RankingWeights:     [3]float64{0, 1, 0},
	}
}

func TestAnalyzeRejectsWeightsNotSummingToOne(t *testing.T) {
	e := newFixtureEngine(t)
	p := validParams()
	p.FeatureWeights = []float64{0.3, 0.3}

	out, err := e.Analyze(context.Background(), p)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalyzeRejectsNegativeThresholdOutsideZMode(t *testing.T) {
	e := newFixtureEngine(t)
	p := validParams()
	p.PruneThresholdTemp = -1
	p.PruneZBool = false

	out, err := e.Analyze(context.Background(), p)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalyzeSucceedsAndPopulatesRanking(t *testing.T) {
	e := newFixtureEngine(t)

	out, err := e.Analyze(context.Background(), validParams())
	require.NoError(t, err)
	require.Len(t, out.Ranking, 2)
	assert.Equal(t, []string{"A"}, out.Ranking[0].Names)
}

func TestAnalyzeCancelledContextIsErrCancelled(t *testing.T) {
	e := newFixtureEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := e.Analyze(ctx, validParams())
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestGetUsersOrdersSubnetsBeforeUsers(t *testing.T) {
	e := newFixtureEngine(t)

	list, err := e.GetUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24", "u1"}, list)
}

func TestGetRequestsBeforeAnalyzeIsValidationError(t *testing.T) {
	e := newFixtureEngine(t)

	_, err := e.GetRequests(context.Background(), "A")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetRequestsReturnsAggregateHistory(t *testing.T) {
	e := newFixtureEngine(t)
	_, err := e.Analyze(context.Background(), validParams())
	require.NoError(t, err)

	reqs, err := e.GetRequests(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "/x", reqs[0].Target)
}

func TestGetRequestsUnknownDomainIsValidationError(t *testing.T) {
	e := newFixtureEngine(t)
	_, err := e.Analyze(context.Background(), validParams())
	require.NoError(t, err)

	_, err = e.GetRequests(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrValidation)
}
