// Package query implements the C11 validation boundary and the
// external interface spec/§6 describes: Analyze, GetUsers, and
// GetRequests. It is the only package permitted to classify a failure
// into one of the four sentinel kinds in errors.go — everything below
// it (pipeline, store, filter) returns plain wrapped errors.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/graphx"
	"github.com/rucd-project/apt-graph/params"
	"github.com/rucd-project/apt-graph/pipeline"
	"github.com/rucd-project/apt-graph/rank"
	"github.com/rucd-project/apt-graph/stats"
	"github.com/rucd-project/apt-graph/store"
)

// Output is the query-level result. UI-mode fields (FilteredClusters,
// HistSimilarities, HistClusters) and study-mode fields (Ranking,
// RankingSummary, Apt) coexist on one struct and are all filled on
// every call; APTSearch only decides whether Apt is computed (it is nil
// otherwise).
type Output struct {
	Stdout string

	FilteredClusters []*graphx.Graph
	HistSimilarities stats.Histogram
	HistClusters     stats.Histogram

	Ranking        []rank.Bucket
	RankingSummary string
	Apt            *rank.Report
}

// Engine wraps a *pipeline.Controller with the validation and
// error-classification boundary spec/§7 assigns to the external
// interface.
type Engine struct {
	controller *pipeline.Controller
	store      store.Store
	inputDir   string
	validate   *validator.Validate

	mu         sync.Mutex
	lastTarget string
}

// NewEngine constructs an Engine over an already-configured
// *pipeline.Controller, the same Store the controller was built with
// (used for GetUsers), and the directory holding the batch-stage's
// input layout.
func NewEngine(c *pipeline.Controller, st store.Store, inputDir string) *Engine {
	return &Engine{
		controller: c,
		store:      st,
		inputDir:   inputDir,
		validate:   newValidator(),
	}
}

// Analyze validates p, runs the pipeline, and classifies any failure
// into this package's sentinel kinds per spec/§7:
//   - a validation failure never reaches the pipeline — ErrValidation,
//     wrapping the underlying validator.ValidationErrors;
//   - a cancelled context — ErrCancelled;
//   - an invariant violation surfaced from the pipeline — ErrInternal;
//   - anything else (every remaining pipeline failure originates from
//     a store read) — ErrIO.
func (e *Engine) Analyze(ctx context.Context, p params.Parameters) (*Output, error) {
	if err := e.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out, err := e.controller.Analyze(ctx, e.inputDir, p)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		case errors.Is(err, pipeline.ErrInvariant):
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
	}

	e.mu.Lock()
	e.lastTarget = p.TargetID
	e.mu.Unlock()

	return &Output{
		Stdout:           out.Stdout,
		FilteredClusters: out.FilteredClusters,
		HistSimilarities: out.HistSimilarities,
		HistClusters:     out.HistClusters,
		Ranking:          out.Ranking,
		RankingSummary:   out.RankingSummary,
		Apt:              out.Apt,
	}, nil
}

// GetUsers returns every selectable target, subnets first and then
// users, per spec/§6's enumeration order for the target-picker UI.
func (e *Engine) GetUsers(ctx context.Context) ([]string, error) {
	subnets, err := e.store.GetAllSubnets(ctx, e.inputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	users, err := e.store.GetAllUsers(ctx, e.inputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	out := make([]string, 0, len(subnets)+len(users))
	out = append(out, subnets...)
	out = append(out, users...)
	return out, nil
}

// GetRequests returns the request history recorded for domainName
// against the most recently analyzed target, per spec/§6's "inspect
// one domain's raw requests" affordance. ErrValidation marks an
// unknown domain or a call made before any Analyze has succeeded.
func (e *Engine) GetRequests(ctx context.Context, domainName string) ([]domain.Request, error) {
	e.mu.Lock()
	target := e.lastTarget
	e.mu.Unlock()

	if target == "" {
		return nil, fmt.Errorf("%w: no prior analyze for this engine", ErrValidation)
	}

	reqs, ok := e.controller.GetRequests(target, domainName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown domain %q", ErrValidation, domainName)
	}
	return reqs, nil
}
