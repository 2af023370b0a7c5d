// Package pipeline runs one session analysis end to end:
// collect, evaluate in parallel, score goals, merge and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roleplay-insights-go/internal/evaluator"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/scoring"
	"roleplay-insights-go/internal/types"
)

type Collector interface {
	Collect(ctx context.Context, req types.AnalysisRequest, executionRef string) (types.AnalysisContext, error)
}

type Evaluators interface {
	Run(ctx context.Context, actx types.AnalysisContext) evaluator.Results
}

type Persister interface {
	Persist(ctx context.Context, rec *types.AnalysisRecord) error
}

// Finisher moves a processing run into its terminal state.
type Finisher interface {
	Complete(ctx context.Context, sessionID, executionRef string) error
	Fail(ctx context.Context, sessionID, executionRef, msg string) error
	Timeout(ctx context.Context, sessionID, executionRef, msg string) error
}

type Merge func(actx types.AnalysisContext, res evaluator.Results, goals types.GoalResults) types.AnalysisRecord

type Pipeline struct {
	collector  Collector
	evaluators Evaluators
	merge      Merge
	persister  Persister
	status     Finisher
	now        func() time.Time
	log        *logger.Logger
}

type Deps struct {
	Collector  Collector
	Evaluators Evaluators
	Merge      Merge
	Persister  Persister
	Status     Finisher
}

func New(d Deps, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		collector:  d.Collector,
		evaluators: d.Evaluators,
		merge:      d.Merge,
		persister:  d.Persister,
		status:     d.Status,
		now:        time.Now,
		log:        log.Component("pipeline"),
	}
}

type outcome struct {
	rec types.AnalysisRecord
	err error
}

// Run executes one workflow with an overall timeout. When the timeout
// fires the run is marked timeout; evaluators already in flight are not
// interrupted, but their result is no longer persisted.
func (p *Pipeline) Run(ctx context.Context, req types.AnalysisRequest, executionRef string, timeout time.Duration) (types.AnalysisRecord, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		rec, err := p.execute(runCtx, req, executionRef)
		done <- outcome{rec, err}
	}()

	select {
	case <-runCtx.Done():
		select {
		case out := <-done:
			return out.rec, out.err
		default:
		}
		msg := fmt.Sprintf("analysis did not finish within %s", timeout)
		// status writes must outlive the expired run context
		if err := p.status.Timeout(context.WithoutCancel(ctx), req.SessionID, executionRef, msg); err != nil {
			p.log.WithError(err).WithField("session_id", req.SessionID).Warn("could not record timeout")
		}
		return types.AnalysisRecord{}, fmt.Errorf("session %s: %w", req.SessionID, runCtx.Err())
	case out := <-done:
		return out.rec, out.err
	}
}

func (p *Pipeline) execute(runCtx context.Context, req types.AnalysisRequest, executionRef string) (types.AnalysisRecord, error) {
	log := p.log.WithSession(req.SessionID, req.UserID)
	start := p.now()

	actx, err := p.collector.Collect(runCtx, req, executionRef)
	if err != nil {
		return types.AnalysisRecord{}, err
	}

	// evaluators are not cancelled by the workflow timeout
	work := context.WithoutCancel(runCtx)
	res := p.evaluators.Run(work, actx)

	goals := scoring.Score(actx.Goals, &res.Feedback.Record, actx.FinalMetrics.GoalStatuses, p.now())
	rec := p.merge(actx, res, goals)

	if runCtx.Err() != nil {
		return types.AnalysisRecord{}, runCtx.Err()
	}
	if err := p.persister.Persist(work, &rec); err != nil {
		p.finish(work, log, func(ctx context.Context) error {
			return p.status.Fail(ctx, req.SessionID, executionRef, err.Error())
		})
		return types.AnalysisRecord{}, err
	}
	p.finish(work, log, func(ctx context.Context) error {
		return p.status.Complete(ctx, req.SessionID, executionRef)
	})

	log.WithField("duration_ms", p.now().Sub(start).Milliseconds()).
		WithField("overall", rec.OverallScore).
		WithField("goal_score", goals.GoalScore).
		WithField("feedback_generated", rec.FeedbackGenerated).
		Info("analysis completed")
	return rec, nil
}

func (p *Pipeline) finish(ctx context.Context, log *logger.Logger, write func(context.Context) error) {
	if err := write(ctx); err != nil {
		if errors.Is(err, types.ErrInvalidTransition) {
			log.WithError(err).Warn("run already finished elsewhere")
			return
		}
		log.WithError(err).Error("could not record final status")
	}
}
