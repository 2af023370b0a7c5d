// Package actionable turns analysis results into one coaching card.
package actionable

import (
	"fmt"

	"roleplay-insights-go/internal/scoring"
	"roleplay-insights-go/internal/types"
)

const (
	weakSkillThreshold  = 5
	weakRelatedRate     = 0.5
	weakGoalScore       = 50
	minReferenceChecked = 3
)

var skillActions = map[string]string{
	"communication":     "Rehearse a two-sentence opening that states purpose and agenda",
	"needsAnalysis":     "Ask at least three open questions before presenting",
	"proposalQuality":   "Tie every feature you mention to a need the customer stated",
	"flexibility":       "Offer an alternative when the customer pushes back instead of repeating the pitch",
	"trustBuilding":     "Acknowledge the customer's concern before answering it",
	"objectionHandling": "Use the clarify, acknowledge, respond pattern on each objection",
	"closingSkill":      "End with a concrete next step and a date",
	"listeningSkill":    "Summarise what the customer said before moving on",
	"productKnowledge":  "Review the scenario reference material before the next session",
	"customerFocus":     "Phrase benefits in the customer's terms, not the product's",
	"goalAchievement":   "Re-read the scenario goals and plan one question per goal",
}

// ForRecord picks the most useful next action for a single session.
func ForRecord(rec types.AnalysisRecord) types.ActionCard {
	if rec.ReferenceChecked && rec.ReferenceCheck != nil {
		s := rec.ReferenceCheck.Summary
		if s.CheckedMessages >= minReferenceChecked {
			rate := float64(s.RelatedCount) / float64(s.CheckedMessages)
			if rate < weakRelatedRate {
				return types.ActionCard{
					Insight: fmt.Sprintf("Only %.0f%% of statements were backed by reference material", rate*100),
					Action:  skillActions["productKnowledge"],
					Impact:  "Fewer unsupported claims in front of customers",
				}
			}
		}
	}

	if rec.FeedbackGenerated && rec.FeedbackData != nil {
		scores := rec.FeedbackData.Scores
		weakest, low := "", 0
		for _, s := range scores.SubSkills() {
			if weakest == "" || *s.Value < low {
				weakest, low = s.Name, *s.Value
			}
		}
		if low <= weakSkillThreshold {
			return types.ActionCard{
				Insight: fmt.Sprintf("Weakest skill: %s (%d/10)", weakest, low),
				Action:  skillActions[weakest],
				Impact:  "Raise the lowest-rated skill in the next roleplay",
			}
		}
	}

	if rec.GoalResults != nil && len(rec.GoalResults.ScenarioGoals) > 0 && rec.GoalResults.GoalScore < weakGoalScore {
		return types.ActionCard{
			Insight: fmt.Sprintf("Goal score %d/100", rec.GoalResults.GoalScore),
			Action:  skillActions["goalAchievement"],
			Impact:  "Cover more scenario goals per session",
		}
	}

	return types.ActionCard{
		Insight: "No strong weakness detected",
		Action:  "Try a harder scenario",
		Impact:  "Keep progressing",
	}
}

// ForSummary is the team-level card for a batch of sessions.
func ForSummary(sum scoring.Summary) types.ActionCard {
	if sum.Sessions == 0 {
		return types.ActionCard{
			Insight: "No analysed sessions",
			Action:  "Run more roleplay sessions",
			Impact:  "No immediate intervention",
		}
	}
	if sum.WeakestSkill != "" && sum.SkillAverages[sum.WeakestSkill] <= weakSkillThreshold {
		return types.ActionCard{
			Insight: fmt.Sprintf("Team weakest skill: %s (avg %.1f/10)", sum.WeakestSkill, sum.SkillAverages[sum.WeakestSkill]),
			Action:  skillActions[sum.WeakestSkill],
			Impact:  "Lift the skill most sessions struggle with",
		}
	}
	if sum.ReferenceChecked > 0 && sum.ReferenceRelated < weakRelatedRate {
		return types.ActionCard{
			Insight: fmt.Sprintf("Reference backing rate %.0f%%", sum.ReferenceRelated*100),
			Action:  skillActions["productKnowledge"],
			Impact:  "Fewer unsupported claims across the team",
		}
	}
	return types.ActionCard{
		Insight: fmt.Sprintf("Average score %.0f across %d sessions", sum.AvgOverall, sum.Sessions),
		Action:  "Monitor and collect more sessions",
		Impact:  "Low immediate intervention",
	}
}
