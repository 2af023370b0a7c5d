package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"roleplay-insights-go/internal/scoring"
	"roleplay-insights-go/internal/types"
)

func feedbackRecord(mutate func(*types.FeedbackScores)) types.AnalysisRecord {
	fb := &types.FeedbackRecord{}
	for _, s := range fb.Scores.SubSkills() {
		*s.Value = 8
	}
	mutate(&fb.Scores)
	return types.AnalysisRecord{FeedbackGenerated: true, FeedbackData: fb}
}

func TestForRecord(t *testing.T) {
	t.Run("weak reference backing wins", func(t *testing.T) {
		rec := feedbackRecord(func(s *types.FeedbackScores) { s.ClosingSkill = 2 })
		rec.ReferenceChecked = true
		rec.ReferenceCheck = &types.ReferenceCheckRecord{Summary: types.ReferenceCheckSummary{CheckedMessages: 4, RelatedCount: 1}}
		card := ForRecord(rec)
		assert.Contains(t, card.Insight, "25%")
		assert.Equal(t, skillActions["productKnowledge"], card.Action)
	})
	t.Run("weakest skill", func(t *testing.T) {
		card := ForRecord(feedbackRecord(func(s *types.FeedbackScores) { s.ClosingSkill = 3 }))
		assert.Equal(t, "Weakest skill: closingSkill (3/10)", card.Insight)
		assert.Equal(t, skillActions["closingSkill"], card.Action)
	})
	t.Run("default feedback is ignored", func(t *testing.T) {
		rec := feedbackRecord(func(s *types.FeedbackScores) { s.ClosingSkill = 1 })
		rec.FeedbackGenerated = false
		assert.Equal(t, "No strong weakness detected", ForRecord(rec).Insight)
	})
	t.Run("low goal score", func(t *testing.T) {
		rec := feedbackRecord(func(*types.FeedbackScores) {})
		rec.GoalResults = &types.GoalResults{ScenarioGoals: []types.Goal{{ID: "g1"}}, GoalScore: 30}
		assert.Equal(t, "Goal score 30/100", ForRecord(rec).Insight)
	})
}

func TestForSummary(t *testing.T) {
	assert.Equal(t, "No analysed sessions", ForSummary(scoring.Summary{}).Insight)

	sum := scoring.Summary{
		Sessions:      2,
		SkillAverages: map[string]float64{"listeningSkill": 4.5},
		WeakestSkill:  "listeningSkill",
	}
	card := ForSummary(sum)
	assert.Equal(t, skillActions["listeningSkill"], card.Action)

	sum.SkillAverages["listeningSkill"] = 7
	sum.AvgOverall = 71
	assert.Equal(t, "Average score 71 across 2 sessions", ForSummary(sum).Insight)
}
