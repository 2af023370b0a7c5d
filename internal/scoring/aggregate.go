package scoring

import (
	"sort"

	"roleplay-insights-go/internal/types"
)

// Summary aggregates the final records of many sessions.
type Summary struct {
	Sessions         int                `json:"sessions"`
	AvgOverall       float64            `json:"avg_overall"`
	AvgGoalScore     float64            `json:"avg_goal_score"`
	SkillAverages    map[string]float64 `json:"skill_averages"`
	WeakestSkill     string             `json:"weakest_skill,omitempty"`
	DefaultFeedback  int                `json:"default_feedback"`
	VideoAnalyzed    int                `json:"video_analyzed"`
	ReferenceChecked int                `json:"reference_checked"`
	ReferenceRelated float64            `json:"reference_related_rate"`
	SkipReasonCounts map[string]int     `json:"skip_reason_counts"`
}

func Aggregate(records []types.AnalysisRecord) Summary {
	sum := Summary{
		SkillAverages:    map[string]float64{},
		SkipReasonCounts: map[string]int{},
	}
	if len(records) == 0 {
		return sum
	}

	skillTotals := map[string]int{}
	overall, goal := 0, 0
	checked, related := 0, 0
	for _, r := range records {
		sum.Sessions++
		overall += r.OverallScore
		if r.GoalResults != nil {
			goal += r.GoalResults.GoalScore
		}
		if !r.FeedbackGenerated {
			sum.DefaultFeedback++
		}
		if r.FeedbackData != nil {
			scores := r.FeedbackData.Scores
			for _, s := range scores.SubSkills() {
				skillTotals[s.Name] += *s.Value
			}
		}
		if r.VideoAnalyzed {
			sum.VideoAnalyzed++
		}
		if r.ReferenceChecked && r.ReferenceCheck != nil {
			sum.ReferenceChecked++
			checked += r.ReferenceCheck.Summary.CheckedMessages
			related += r.ReferenceCheck.Summary.RelatedCount
		}
		for _, reason := range []string{r.VideoSkipReason, r.ReferenceSkipReason} {
			if reason != "" {
				sum.SkipReasonCounts[reason]++
			}
		}
	}

	n := float64(sum.Sessions)
	sum.AvgOverall = float64(overall) / n
	sum.AvgGoalScore = float64(goal) / n
	if checked > 0 {
		sum.ReferenceRelated = float64(related) / float64(checked)
	}

	names := make([]string, 0, len(skillTotals))
	for name, total := range skillTotals {
		sum.SkillAverages[name] = float64(total) / n
		names = append(names, name)
	}
	sort.Strings(names)
	lowest := 0.0
	for _, name := range names {
		if avg := sum.SkillAverages[name]; sum.WeakestSkill == "" || avg < lowest {
			sum.WeakestSkill, lowest = name, avg
		}
	}
	return sum
}
