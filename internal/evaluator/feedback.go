package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"roleplay-insights-go/internal/inference"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/retry"
	"roleplay-insights-go/internal/types"
)

type FeedbackResult struct {
	Record    types.FeedbackRecord
	Generated bool
	Error     string
}

// FeedbackEvaluator produces the skill feedback for a session. It always
// returns a record: the default one when generation fails.
type FeedbackEvaluator struct {
	gen    inference.Generator
	Policy retry.Policy
	log    *logger.Logger
}

func NewFeedbackEvaluator(gen inference.Generator, log *logger.Logger) *FeedbackEvaluator {
	if log == nil {
		log = logger.Discard()
	}
	return &FeedbackEvaluator{gen: gen, Policy: retry.RateLimit(), log: log.Component("feedback")}
}

func (e *FeedbackEvaluator) Evaluate(ctx context.Context, actx types.AnalysisContext) FeedbackResult {
	log := e.log.WithSession(actx.SessionID, actx.UserID)
	req := inference.JSONRequest{
		System:     feedbackSystemPrompt(actx.Language),
		User:       feedbackUserPrompt(actx),
		SchemaName: "session_feedback",
		Schema:     feedbackSchema(),
	}

	fb, err := retry.Do(ctx, e.Policy, log, func(ctx context.Context) (types.FeedbackRecord, error) {
		reply, err := e.gen.GenerateJSON(ctx, req)
		if err != nil {
			return types.FeedbackRecord{}, err
		}
		return parseFeedback(reply)
	})
	if err != nil {
		log.WithError(err).Warn("feedback generation failed, using default feedback")
		return FeedbackResult{Record: DefaultFeedback(actx.Language), Error: err.Error()}
	}

	log.WithField("overall", fb.Scores.Overall).Info("feedback generated")
	return FeedbackResult{Record: fb, Generated: true}
}

func parseFeedback(reply string) (types.FeedbackRecord, error) {
	raw := inference.ExtractJSON(reply)
	if raw == "" {
		raw = inference.SalvageJSON(reply)
	}
	if raw == "" || !gjson.Valid(raw) {
		return types.FeedbackRecord{}, fmt.Errorf("%w: no JSON object in feedback reply", types.ErrMalformedResponse)
	}
	scores := gjson.Get(raw, "scores")
	if !scores.IsObject() || !scores.Get("overall").Exists() {
		return types.FeedbackRecord{}, fmt.Errorf("%w: feedback scores missing", types.ErrMalformedResponse)
	}

	var fb types.FeedbackRecord
	if err := json.Unmarshal([]byte(raw), &fb); err != nil {
		return types.FeedbackRecord{}, fmt.Errorf("%w: %v", types.ErrMalformedResponse, err)
	}
	normalizeFeedback(&fb)
	return fb, nil
}

func normalizeFeedback(fb *types.FeedbackRecord) {
	fb.Scores.Overall = clamp(fb.Scores.Overall, 0, 100)
	for _, s := range fb.Scores.SubSkills() {
		*s.Value = clamp(*s.Value, 1, 10)
	}
	fb.Strengths = nonNil(fb.Strengths)
	fb.Improvements = nonNil(fb.Improvements)
	fb.KeyInsights = nonNil(fb.KeyInsights)
	fb.GoalFeedback.AchievedGoals = nonNil(fb.GoalFeedback.AchievedGoals)
	fb.GoalFeedback.PartiallyAchievedGoals = nonNil(fb.GoalFeedback.PartiallyAchievedGoals)
	fb.GoalFeedback.MissedGoals = nonNil(fb.GoalFeedback.MissedGoals)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
