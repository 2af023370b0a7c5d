package evaluator

import "roleplay-insights-go/internal/types"

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func intRange(lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "minimum": lo, "maximum": hi}
}

// feedbackSchema is the strict response schema for feedback generation.
// Strict mode needs every property listed as required.
func feedbackSchema() map[string]any {
	scoreProps := map[string]any{"overall": intRange(0, 100)}
	scoreNames := []string{"overall"}
	for _, name := range skillNames {
		scoreProps[name] = intRange(1, 10)
		scoreNames = append(scoreNames, name)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scores": map[string]any{
				"type":                 "object",
				"properties":           scoreProps,
				"required":             scoreNames,
				"additionalProperties": false,
			},
			"strengths":    stringArray(),
			"improvements": stringArray(),
			"keyInsights":  stringArray(),
			"goalFeedback": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"achievedGoals":          stringArray(),
					"partiallyAchievedGoals": stringArray(),
					"missedGoals":            stringArray(),
				},
				"required":             []string{"achievedGoals", "partiallyAchievedGoals", "missedGoals"},
				"additionalProperties": false,
			},
			"overallComment": map[string]any{"type": "string"},
			"nextSteps":      map[string]any{"type": "string"},
		},
		"required": []string{
			"scores", "strengths", "improvements", "keyInsights",
			"goalFeedback", "overallComment", "nextSteps",
		},
		"additionalProperties": false,
	}
}

var skillNames = func() []string {
	var scores types.FeedbackScores
	refs := scores.SubSkills()
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}()
