package evaluator

import "roleplay-insights-go/internal/types"

const (
	defaultSubSkill     = 5
	defaultOverall      = 50
	defaultVideoScore   = 5
	maxReferenceRunes   = 500
	referenceTopK       = 3
	referenceDocsJoined = 2
)

func placeholder(language string) string {
	if isEnglish(language) {
		return "Analysis in progress"
	}
	return "分析中"
}

// DefaultFeedback is the record stored when feedback generation gives up.
func DefaultFeedback(language string) types.FeedbackRecord {
	p := placeholder(language)
	comment := "フィードバック生成中に問題が発生しました。"
	if isEnglish(language) {
		comment = "Feedback generation encountered an issue."
	}

	fb := types.FeedbackRecord{
		Strengths:    []string{p},
		Improvements: []string{p},
		KeyInsights:  []string{p},
		GoalFeedback: types.GoalFeedback{
			AchievedGoals:          []string{},
			PartiallyAchievedGoals: []string{},
			MissedGoals:            []string{},
		},
		OverallComment: comment,
	}
	fb.Scores.Overall = defaultOverall
	for _, s := range fb.Scores.SubSkills() {
		*s.Value = defaultSubSkill
	}
	return fb
}

// DefaultVideoAnalysis is returned when the model replied but the reply was unusable.
func DefaultVideoAnalysis(language string) types.VideoAnalysisRecord {
	p := placeholder(language)
	analysis := "動画分析中に問題が発生しました。"
	if isEnglish(language) {
		analysis = "Video analysis encountered an issue."
	}
	return types.VideoAnalysisRecord{
		OverallScore:     defaultVideoScore,
		EyeContact:       defaultVideoScore,
		FacialExpression: defaultVideoScore,
		Gesture:          defaultVideoScore,
		Emotion:          defaultVideoScore,
		Strengths:        []string{p},
		Improvements:     []string{p},
		Analysis:         analysis,
	}
}

func noReferenceComment(language string) string {
	if isEnglish(language) {
		return "No related reference documents found"
	}
	return "関連する参照資料が見つかりませんでした"
}

func judgeParseComment(language string) string {
	if isEnglish(language) {
		return "Error during evaluation"
	}
	return "評価中にエラーが発生しました"
}

func judgeErrorComment(language string, err error) string {
	if isEnglish(language) {
		return "Error during evaluation: " + err.Error()
	}
	return "評価中にエラーが発生: " + err.Error()
}
