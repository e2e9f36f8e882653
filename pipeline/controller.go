// Package pipeline implements the C5 pipeline controller and the C9
// session-state cache: the eight-stage fusion/prune/cluster/filter/
// rank computation, its parameter-fingerprint invalidation rule, and
// cooperative cancellation — spec/§4.5, §9.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/filter"
	"github.com/rucd-project/apt-graph/fusion"
	"github.com/rucd-project/apt-graph/graphx"
	"github.com/rucd-project/apt-graph/metrics"
	"github.com/rucd-project/apt-graph/params"
	"github.com/rucd-project/apt-graph/rank"
	"github.com/rucd-project/apt-graph/stats"
	"github.com/rucd-project/apt-graph/store"
	"github.com/rucd-project/apt-graph/xlog"
)

// Histogram binning constants. spec/§4.3 leaves bin bounds/step to the
// caller; these are this repo's concrete, documented choice rather
// than a configurable knob spec.md never asks for.
const (
	similarityHistMin  = 0.0
	similarityHistMax  = 1.0
	similarityHistStep = 0.1

	clusterHistMin  = 0.0
	clusterHistMax  = 20.0
	clusterHistStep = 1.0
)

// whitelistFilename is the persistent whitelist file's fixed name
// under inputDir (spec/§6 names the contract but not a filename; this
// repo's concrete choice: unlike the rest of C2's "<name>.json"
// on-disk layout, it is a plain text file per the whitelist file
// contract of spec/§6).
const whitelistFilename = "whitelist.txt"

// Output is the result of one Analyze call. It carries every field
// named by spec/§6's two output shapes (UI-mode and study-mode), all
// populated on every call; Apt is nil unless APTSearch was set. query
// copies every field into its own Output.
type Output struct {
	Stdout string

	FilteredClusters []*graphx.Graph
	HistSimilarities stats.Histogram
	HistClusters     stats.Histogram

	Ranking        []rank.Bucket
	RankingSummary string
	Apt            *rank.Report
}

// Controller owns every active SessionState (keyed by target) and
// drives the eight-stage computation over the injected Store and
// whitelist filesystem. A target change naturally starts a fresh
// SessionState (old ones remain map entries until a caller wants to
// evict them), satisfying spec/§3's "retained until the target user
// changes" lifecycle rule without extra bookkeeping.
type Controller struct {
	store   store.Store
	fs      afero.Fs
	metrics *metrics.Collector
	sinkFor func(uuid.UUID) ProgressSink

	mu       sync.Mutex
	sessions map[string]*SessionState
}

// NewController constructs a Controller. A nil fs defaults to the real
// OS filesystem (matching store.NewFileStore's convention); a nil
// metrics Collector disables metric observation.
func NewController(st store.Store, fs afero.Fs, m *metrics.Collector) *Controller {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Controller{
		store:   st,
		fs:      fs,
		metrics: m,
		sinkFor: func(id uuid.UUID) ProgressSink { return ZerologSink{QueryID: id} },
	}
}

// WithSink overrides the ProgressSink constructor, e.g. to inject a
// *RecordingSink in tests.
func (c *Controller) WithSink(f func(uuid.UUID) ProgressSink) *Controller {
	c.sinkFor = f
	return c
}

func (c *Controller) session(target string) *SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions == nil {
		c.sessions = make(map[string]*SessionState)
	}
	s, ok := c.sessions[target]
	if !ok {
		s = newSessionState(target)
		c.sessions[target] = s
	}
	return s
}

// Analyze runs the full pipeline for p against inputDir, reusing
// cached stage output up to the first stage whose fingerprint changed
// (spec/§4.5). Returns ctx.Err() on cancellation (spec/§7's
// "Cancelled" kind; never logged as an error) with the session's cache
// left at the last fully completed stage.
func (c *Controller) Analyze(ctx context.Context, inputDir string, p params.Parameters) (*Output, error) {
	queryID := uuid.New()
	sink := c.sinkFor(queryID)
	log := xlog.Get().With().Str("query_id", queryID.String()).Logger()

	if c.metrics != nil {
		c.metrics.QueriesTotal.Inc()
	}

	sess := c.session(p.TargetID)
	fp := p.Fingerprint()
	start := sess.firstInvalid(fp)

	var stdout strings.Builder

	run := func(stage int, msg string, fn func() (any, error)) (any, error) {
		if err := ctx.Err(); err != nil {
			log.Debug().Msg("cancelled before stage")
			return nil, err
		}

		if stage < start {
			if c.metrics != nil {
				c.metrics.ObserveStage(stage, 0, true)
			}
			return sess.get(stage), nil
		}

		t0 := time.Now()
		v, err := fn()
		elapsed := time.Since(t0)
		if err != nil {
			return nil, err
		}

		sess.set(stage, fp[stage], v)
		sink.Emit(stage, elapsed, msg)
		if c.metrics != nil {
			c.metrics.ObserveStage(stage, elapsed, false)
		}
		fmt.Fprintf(&stdout, "[stage %d] %s (%s)\n", stage, msg, elapsed)
		return v, nil
	}

	v0, err := run(int(params.StageUsers), "resolved user set", func() (any, error) {
		return c.runStage0(ctx, inputDir, p.TargetID)
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s0 := v0.(stage0Output)

	v1, err := run(int(params.StageFusion), "fused per-user and aggregate graphs", func() (any, error) {
		return c.runStage1(ctx, s0, p)
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s1 := v1.(stage1Output)

	v2, err := run(int(params.StageSimilarityStats), "similarity statistics", func() (any, error) {
		return c.runStage2(s1), nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s2 := v2.(stage2Output)

	v3, err := run(int(params.StagePrune), "pruned graph and components", func() (any, error) {
		return c.runStage3(s1, s2, p), nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s3 := v3.(stage3Output)

	v4, err := run(int(params.StageClusterStats), "cluster-size statistics", func() (any, error) {
		return c.runStage4(s3), nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s4 := v4.(stage4Output)

	v5, err := run(int(params.StageSizeFilter), "size-filtered clusters", func() (any, error) {
		return c.runStage5(s3, s4, p), nil
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s5 := v5.(stage5Output)

	v6, err := run(int(params.StageWhitelist), "whitelisted clusters", func() (any, error) {
		return c.runStage6(ctx, inputDir, s0, s5, p)
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s6 := v6.(stage6Output)

	v7, err := run(int(params.StageRanking), "ranking", func() (any, error) {
		return c.runStage7(ctx, s6, p)
	})
	if err != nil {
		return nil, fail(log, err)
	}
	s7 := v7.(stage7Output)

	return &Output{
		Stdout:           stdout.String(),
		FilteredClusters: s6.whitelisted,
		HistSimilarities: s2.hist,
		HistClusters:     s4.hist,
		Ranking:          s7.result.Ranking,
		RankingSummary:   s7.result.Summary,
		Apt:              s7.result.Apt,
	}, nil
}

// GetRequests returns the request history recorded for domainName in
// target's cached aggregate graph (stage 1's output), per spec/§6's
// "the UI can ask for one domain's raw request list without rerunning
// the pipeline." The bool is false if target has no session yet, or
// its stage-1 slot hasn't been populated, or domainName is absent from
// the aggregate graph.
func (c *Controller) GetRequests(target, domainName string) ([]domain.Request, bool) {
	c.mu.Lock()
	sess, ok := c.sessions[target]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	v := sess.get(int(params.StageFusion))
	s1, ok := v.(stage1Output)
	if !ok || s1.aggregate == nil {
		return nil, false
	}

	d, ok := s1.aggregate.Node(domainName)
	if !ok {
		return nil, false
	}
	return d.Requests(), true
}

// fail logs err at the level spec/§7 assigns to its kind: Cancelled
// stays at Debug (never Error, per spec/§7's "never logged as an
// error"), everything else surfacing from a pipeline stage is logged
// at Error — store/IOError and InternalError failures both reach here
// as stage errors, and the query package is the one place that knows
// how to further classify them into its sentinel error types.
func fail(log zerolog.Logger, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug().Err(err).Msg("query cancelled")
		return err
	}
	log.Error().Err(err).Msg("pipeline stage failed")
	return err
}

func (c *Controller) runStage0(ctx context.Context, inputDir, target string) (stage0Output, error) {
	users, err := resolveTargets(ctx, c.store, inputDir, target)
	if err != nil {
		return stage0Output{}, err
	}

	bundles := make(map[string]*store.FeatureGraphBundle, len(users))
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return stage0Output{}, err
		}
		b, err := c.store.GetUserGraphs(ctx, inputDir, u)
		if err != nil {
			return stage0Output{}, err
		}
		bundles[u] = b
	}

	return stage0Output{users: users, bundles: bundles}, nil
}

func (c *Controller) runStage1(ctx context.Context, s0 stage0Output, p params.Parameters) (stage1Output, error) {
	perUser := make(map[string]*graphx.Graph, len(s0.users))
	for _, u := range s0.users {
		fused, err := fusion.Fuse(ctx, s0.bundles[u].Graphs, u, p.FeatureWeights, p.OrderedWeights, fusion.ByUsers)
		if err != nil {
			return stage1Output{}, err
		}
		perUser[u] = fused
	}

	userGraphs := make([]*graphx.Graph, 0, len(s0.users))
	uniformWeights := make([]float64, 0, len(s0.users))
	for _, u := range s0.users {
		userGraphs = append(userGraphs, perUser[u])
		uniformWeights = append(uniformWeights, 1.0)
	}

	aggregate, err := fusion.Fuse(ctx, userGraphs, p.TargetID, uniformWeights, nil, fusion.All)
	if err != nil {
		return stage1Output{}, err
	}

	return stage1Output{perUser: perUser, aggregate: aggregate}, nil
}

func (c *Controller) runStage2(s1 stage1Output) stage2Output {
	var sims []float64
	for _, d := range s1.aggregate.Nodes() {
		for _, n := range s1.aggregate.Neighbors(d.Name) {
			sims = append(sims, n.Similarity)
		}
	}
	mean, variance := stats.MeanVariance(sims)
	hist := stats.BuildHistogram(sims, similarityHistMin, similarityHistMax, similarityHistStep)

	return stage2Output{similarities: sims, mean: mean, variance: variance, hist: stats.CleanHistogram(hist)}
}

func (c *Controller) runStage3(s1 stage1Output, s2 stage2Output, p params.Parameters) stage3Output {
	threshold := p.PruneThresholdTemp
	if p.PruneZBool {
		threshold = stats.FromZ(s2.mean, s2.variance, p.PruneThresholdTemp)
	}

	pruned := s1.aggregate.Copy()
	pruned.Prune(threshold)
	components := pruned.ConnectedComponents()

	return stage3Output{threshold: threshold, pruned: pruned, components: components}
}

func (c *Controller) runStage4(s3 stage3Output) stage4Output {
	sizes := make([]float64, len(s3.components))
	for i, comp := range s3.components {
		sizes[i] = float64(comp.Len())
	}
	mean, variance := stats.MeanVariance(sizes)
	hist := stats.BuildHistogram(sizes, clusterHistMin, clusterHistMax, clusterHistStep)

	return stage4Output{sizes: sizes, mean: mean, variance: variance, hist: stats.CleanHistogram(hist)}
}

func (c *Controller) runStage5(s3 stage3Output, s4 stage4Output, p params.Parameters) stage5Output {
	maxSize := p.MaxClusterSizeTemp
	if p.ClusterZBool {
		maxSize = stats.FromZ(s4.mean, s4.variance, p.MaxClusterSizeTemp)
	}
	rounded := int(math.Round(maxSize))

	return stage5Output{filtered: filter.BySize(s3.components, rounded)}
}

func (c *Controller) runStage6(ctx context.Context, inputDir string, s0 stage0Output, s5 stage5Output, p params.Parameters) (stage6Output, error) {
	if !p.WhitelistEnabled {
		return stage6Output{whitelisted: s5.filtered}, nil
	}

	whitelist := filter.BuildWhitelist(c.fs, path.Join(inputDir, whitelistFilename), p.WhitelistOngoing)
	out, err := filter.Apply(ctx, s5.filtered, whitelist, s0.users, p.MinRequests)
	if err != nil {
		return stage6Output{}, err
	}
	return stage6Output{whitelisted: out}, nil
}

func (c *Controller) runStage7(ctx context.Context, s6 stage6Output, p params.Parameters) (stage7Output, error) {
	result, err := rank.Run(ctx, s6.whitelisted, rank.Weights{
		Parents:  p.RankingWeights[0],
		Children: p.RankingWeights[1],
		Requests: p.RankingWeights[2],
	}, p.APTSearch)
	if err != nil {
		return stage7Output{}, err
	}
	return stage7Output{result: result}, nil
}
