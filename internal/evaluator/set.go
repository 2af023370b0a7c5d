// Package evaluator runs the independent session evaluations: skill
// feedback, non-verbal video analysis and the reference fact check.
package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"
	"roleplay-insights-go/internal/types"
)

type Results struct {
	Feedback  FeedbackResult
	Video     VideoResult
	Reference ReferenceResult
}

type Set struct {
	Feedback  *FeedbackEvaluator
	Video     *VideoEvaluator
	Reference *ReferenceEvaluator
}

// Run executes the three evaluations concurrently and waits for all of
// them. Each evaluator records its own failure, so Run never fails.
func (s *Set) Run(ctx context.Context, actx types.AnalysisContext) Results {
	var res Results
	var g errgroup.Group

	g.Go(func() error {
		res.Feedback = s.Feedback.Evaluate(ctx, actx)
		return nil
	})
	g.Go(func() error {
		if s.Video == nil {
			res.Video = VideoResult{SkipReason: types.SkipNoVideo}
			return nil
		}
		res.Video = s.Video.Evaluate(ctx, actx)
		return nil
	})
	g.Go(func() error {
		if s.Reference == nil {
			res.Reference = ReferenceResult{SkipReason: types.SkipNoKnowledgeBase}
			return nil
		}
		res.Reference = s.Reference.Evaluate(ctx, actx)
		return nil
	})
	_ = g.Wait()
	return res
}
