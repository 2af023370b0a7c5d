package evaluator

import (
	"context"
	"math"
	"strings"

	"github.com/tidwall/gjson"
	"roleplay-insights-go/internal/inference"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/retry"
	"roleplay-insights-go/internal/types"
)

type VideoResult struct {
	Analysis   *types.VideoAnalysisRecord
	Analyzed   bool
	SkipReason string
	Error      string
	VideoURL   string
}

type VideoEvaluator struct {
	analyzer inference.VideoAnalyzer
	Policy   retry.Policy
	log      *logger.Logger
}

func NewVideoEvaluator(analyzer inference.VideoAnalyzer, log *logger.Logger) *VideoEvaluator {
	if log == nil {
		log = logger.Discard()
	}
	return &VideoEvaluator{analyzer: analyzer, Policy: retry.RateLimit(), log: log.Component("video")}
}

func (e *VideoEvaluator) Evaluate(ctx context.Context, actx types.AnalysisContext) VideoResult {
	if !actx.HasVideo || actx.VideoURL == "" {
		return VideoResult{SkipReason: types.SkipNoVideo}
	}
	log := &logger.Logger{Entry: e.log.WithSession(actx.SessionID, actx.UserID).WithField("video_key", actx.VideoKey)}

	reply, err := retry.Do(ctx, e.Policy, log, func(ctx context.Context) (string, error) {
		return e.analyzer.AnalyzeVideo(ctx, videoSystemPrompt(actx.Language), videoPrompt(actx.Language), actx.VideoURL)
	})
	if err != nil {
		log.WithError(err).Warn("video analysis failed")
		return VideoResult{
			SkipReason: types.SkipAnalysisFailed,
			Error:      err.Error(),
			VideoURL:   actx.VideoURL,
		}
	}

	analysis, ok := ParseVideoAnalysis(reply)
	if !ok {
		log.Warn("video analysis reply unusable, using default analysis")
		analysis = DefaultVideoAnalysis(actx.Language)
	}
	log.WithField("overall", analysis.OverallScore).Info("video analyzed")
	return VideoResult{Analysis: &analysis, Analyzed: true, VideoURL: actx.VideoURL}
}

// NormalizeVideoScore maps a raw score onto 1..10. Values above 10 are
// taken to be on a 0..100 scale.
func NormalizeVideoScore(v float64) int {
	if math.IsNaN(v) {
		return 1
	}
	if v > 10 {
		v = v / 10
	}
	return clamp(int(math.Round(v)), 1, 10)
}

// ParseVideoAnalysis reads the flat 1..10 reply format and the older
// "categories" format with 0..100 scores.
func ParseVideoAnalysis(reply string) (types.VideoAnalysisRecord, bool) {
	raw := inference.SalvageJSON(reply)
	if raw == "" || !gjson.Valid(raw) {
		raw = inference.ExtractJSON(reply)
	}
	if raw == "" || !gjson.Valid(raw) {
		return types.VideoAnalysisRecord{}, false
	}
	obj := gjson.Parse(raw)
	if !obj.IsObject() {
		return types.VideoAnalysisRecord{}, false
	}

	eye := obj.Get("eyeContact")
	if eye.Exists() && eye.Type == gjson.Number {
		return parseFlat(obj), true
	}
	if obj.Get("categories").IsObject() {
		return parseCategories(obj), true
	}
	return types.VideoAnalysisRecord{}, false
}

func parseFlat(obj gjson.Result) types.VideoAnalysisRecord {
	score := func(path string) int {
		v := obj.Get(path)
		if v.Type != gjson.Number {
			return defaultVideoScore
		}
		return NormalizeVideoScore(v.Float())
	}
	analysis := obj.Get("analysis").String()
	if !obj.Get("analysis").Exists() {
		analysis = obj.Get("overallComment").String()
	}
	return types.VideoAnalysisRecord{
		OverallScore:     score("overallScore"),
		EyeContact:       score("eyeContact"),
		FacialExpression: score("facialExpression"),
		Gesture:          score("gesture"),
		Emotion:          score("emotion"),
		Strengths:        stringList(obj.Get("strengths")),
		Improvements:     stringList(obj.Get("improvements")),
		Analysis:         analysis,
	}
}

func parseCategories(obj gjson.Result) types.VideoAnalysisRecord {
	cats := obj.Get("categories")
	score := func(v gjson.Result) int {
		if v.Type != gjson.Number {
			return NormalizeVideoScore(50)
		}
		return NormalizeVideoScore(v.Float())
	}

	analysis := obj.Get("overallComment").String()
	if analysis == "" {
		var feedbacks []string
		cats.ForEach(func(_, cat gjson.Result) bool {
			if fb := cat.Get("feedback"); cat.IsObject() && fb.Exists() {
				feedbacks = append(feedbacks, fb.String())
			}
			return true
		})
		analysis = strings.Join(feedbacks, " ")
	}

	return types.VideoAnalysisRecord{
		OverallScore:     score(obj.Get("overallScore")),
		EyeContact:       score(cats.Get("eyeContact.score")),
		FacialExpression: score(cats.Get("facialExpression.score")),
		Gesture:          score(cats.Get("bodyLanguage.score")),
		Emotion:          score(cats.Get("emotionalPresence.score")),
		Strengths:        stringList(obj.Get("strengths")),
		Improvements:     stringList(obj.Get("improvements")),
		Analysis:         analysis,
	}
}

func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
