// Package scoring turns feedback into goal statuses and aggregates
// analysis records into summaries.
package scoring

import (
	"strings"
	"time"

	"roleplay-insights-go/internal/types"
)

const (
	progressAchieved  = 100
	progressPartial   = 65
	progressMissed    = 0
	achievedThreshold = 80
)

// Score maps each scenario goal onto the feedback's goal lists.
//
// Matching is a plain substring test of the goal description against the
// model's free-form sentences. It over- and under-matches; treat it as a
// placeholder for a similarity matcher. Goals that match nothing fall back
// to goalAchievement*10, and count as achieved at 80 or more.
//
// prior carries statuses already reached during the session; an achieved
// goal stays achieved.
func Score(goals []types.Goal, fb *types.FeedbackRecord, prior []types.GoalStatus, now time.Time) types.GoalResults {
	res := types.GoalResults{
		ScenarioGoals: goals,
		GoalStatuses:  []types.GoalStatus{},
	}
	if res.ScenarioGoals == nil {
		res.ScenarioGoals = []types.Goal{}
	}
	if len(goals) == 0 {
		return res
	}

	var gf types.GoalFeedback
	goalAchievement := 5
	if fb != nil {
		gf = fb.GoalFeedback
		goalAchievement = fb.Scores.GoalAchievement
	}

	before := make(map[string]types.GoalStatus, len(prior))
	for _, p := range prior {
		before[p.GoalID] = p
	}
	nowMs := now.UnixMilli()

	total := 0
	for _, g := range goals {
		st := types.GoalStatus{GoalID: g.ID}
		switch {
		case mentions(gf.AchievedGoals, g.Description):
			st.Progress, st.Achieved = progressAchieved, true
		case mentions(gf.PartiallyAchievedGoals, g.Description):
			st.Progress = progressPartial
		case mentions(gf.MissedGoals, g.Description):
			st.Progress = progressMissed
		default:
			st.Progress = clamp(goalAchievement*10, 0, 100)
			if st.Progress >= achievedThreshold {
				st.Progress, st.Achieved = progressAchieved, true
			}
		}

		if p, ok := before[g.ID]; ok && p.Achieved {
			st.Progress, st.Achieved = progressAchieved, true
			st.AchievedAt = p.AchievedAt
		}
		if st.Achieved && st.AchievedAt == nil {
			at := nowMs
			st.AchievedAt = &at
		}

		res.GoalStatuses = append(res.GoalStatuses, st)
		total += st.Progress
	}
	res.GoalScore = total / len(goals)
	return res
}

// mentions reports whether any entry contains the description.
// An empty description matches nothing.
func mentions(entries []string, description string) bool {
	if strings.TrimSpace(description) == "" {
		return false
	}
	for _, e := range entries {
		if strings.Contains(e, description) {
			return true
		}
	}
	return false
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
