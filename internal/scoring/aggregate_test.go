package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"roleplay-insights-go/internal/types"
)

func TestAggregate(t *testing.T) {
	assert.Equal(t, 0, Aggregate(nil).Sessions)

	recs := []types.AnalysisRecord{
		{
			OverallScore:      80,
			FeedbackGenerated: true,
			FeedbackData:      &types.FeedbackRecord{Scores: types.FeedbackScores{Communication: 8, ClosingSkill: 4}},
			GoalResults:       &types.GoalResults{GoalScore: 100},
			VideoAnalyzed:     true,
			ReferenceChecked:  true,
			ReferenceCheck:    &types.ReferenceCheckRecord{Summary: types.ReferenceCheckSummary{CheckedMessages: 4, RelatedCount: 3}},
		},
		{
			OverallScore:        50,
			FeedbackData:        &types.FeedbackRecord{Scores: types.FeedbackScores{Communication: 6, ClosingSkill: 2}},
			VideoSkipReason:     types.SkipNoVideo,
			ReferenceSkipReason: types.SkipNoKnowledgeBase,
		},
	}
	sum := Aggregate(recs)
	assert.Equal(t, 2, sum.Sessions)
	assert.InDelta(t, 65.0, sum.AvgOverall, 1e-9)
	assert.InDelta(t, 50.0, sum.AvgGoalScore, 1e-9)
	assert.InDelta(t, 7.0, sum.SkillAverages["communication"], 1e-9)
	assert.Equal(t, 1, sum.DefaultFeedback)
	assert.Equal(t, 1, sum.VideoAnalyzed)
	assert.InDelta(t, 0.75, sum.ReferenceRelated, 1e-9)
	assert.Equal(t, 1, sum.SkipReasonCounts[types.SkipNoVideo])
	assert.Equal(t, 1, sum.SkipReasonCounts[types.SkipNoKnowledgeBase])
}
