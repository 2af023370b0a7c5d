package evaluator

import (
	"fmt"
	"strings"

	"roleplay-insights-go/internal/types"
)

func isEnglish(language string) bool {
	return strings.EqualFold(language, "en")
}

func speakerLabels(language string) (user, npc string) {
	if isEnglish(language) {
		return "User", "NPC"
	}
	return "ユーザー", "NPC"
}

func conversationText(msgs []types.ConversationMessage, language string, quoted bool) string {
	user, npc := speakerLabels(language)
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		label := npc
		if m.Sender == types.SenderUser {
			label = user
		}
		if quoted {
			lines = append(lines, fmt.Sprintf("%s: %q", label, m.Content))
		} else {
			lines = append(lines, label+": "+m.Content)
		}
	}
	if quoted {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines, "\n\n")
}

func feedbackSystemPrompt(language string) string {
	if isEnglish(language) {
		return `Generate a feedback object with:
1. scores: overall 0-100; communication, needsAnalysis, proposalQuality, flexibility, trustBuilding,
   objectionHandling, closingSkill, listeningSkill, productKnowledge, customerFocus, goalAchievement 1-10 each
2. strengths: 2-4 specific strengths observed in the conversation
3. improvements: 2-4 specific areas for improvement
4. keyInsights: 1-2 key insights about the conversation
5. goalFeedback: achievedGoals, partiallyAchievedGoals, missedGoals (quote the goal descriptions)
6. overallComment: a summary of the performance
7. nextSteps: recommended next steps`
	}
	return `以下の内容でフィードバックオブジェクトを生成してください：
1. scores: overall は0-100、communication, needsAnalysis, proposalQuality, flexibility, trustBuilding,
   objectionHandling, closingSkill, listeningSkill, productKnowledge, customerFocus, goalAchievement は各1-10
2. strengths: 会話で観察された2-4個の具体的な強み
3. improvements: 2-4個の具体的な改善点
4. keyInsights: 会話に関する1-2個の重要な洞察
5. goalFeedback: achievedGoals, partiallyAchievedGoals, missedGoals（ゴールの説明文を引用）
6. overallComment: パフォーマンスの総評
7. nextSteps: 次に取り組むべきこと`
}

func feedbackUserPrompt(actx types.AnalysisContext) string {
	m := actx.FinalMetrics
	conv := conversationText(actx.Messages, actx.Language, false)

	var goals strings.Builder
	for _, g := range actx.Goals {
		goals.WriteString("- " + g.Description + "\n")
	}

	if isEnglish(actx.Language) {
		goalSection := ""
		if goals.Len() > 0 {
			goalSection = "\n## Scenario Goals\n" + goals.String()
		}
		return fmt.Sprintf(`You are an expert sales trainer analyzing a sales roleplay session.

## Session Metrics
- Anger Level: %d/10
- Trust Level: %d/10
- Progress Level: %d/10

## Conversation (the complete and only conversation that occurred)
%s
%s
Rules:
1. Base the analysis only on what the salesperson (User) actually said above.
2. Do not invent actions, intentions or behaviours that are not shown.
3. Do not give credit for actions that did not occur.
4. An empty or short strengths list is acceptable.`, m.AngerLevel, m.TrustLevel, m.ProgressLevel, conv, goalSection)
	}

	goalSection := ""
	if goals.Len() > 0 {
		goalSection = "\n## シナリオのゴール\n" + goals.String()
	}
	return fmt.Sprintf(`あなたは営業トレーニングの専門家として、営業ロールプレイセッションを分析します。

## セッションメトリクス
- 怒りレベル: %d/10
- 信頼レベル: %d/10
- 進捗レベル: %d/10

## 会話内容（これが発生した完全かつ唯一の会話です）
%s
%s
ルール:
1. 営業担当者（ユーザー）が実際に言ったことのみに基づいて分析してください。
2. 示されていない行動や意図を創作しないでください。
3. 発生していない行動を評価しないでください。
4. 強みリストが空または最小限でも構いません。`, m.AngerLevel, m.TrustLevel, m.ProgressLevel, conv, goalSection)
}

func videoSystemPrompt(language string) string {
	if isEnglish(language) {
		return "You evaluate the non-verbal communication of salespeople from roleplay recordings."
	}
	return "あなたはロールプレイ録画から営業担当者の非言語コミュニケーションを評価します。"
}

func videoPrompt(language string) string {
	if isEnglish(language) {
		return `Analyze this sales roleplay recording and evaluate the salesperson.
Focus on eye contact, facial expressions, body language and gestures, and overall confidence.
Answer with only this JSON object (scores are 1-10):
{"overallScore": 0, "eyeContact": 0, "facialExpression": 0, "gesture": 0, "emotion": 0,
 "strengths": [], "improvements": [], "analysis": ""}`
	}
	return `この営業ロールプレイの録画を分析し、営業担当者を評価してください。
アイコンタクト、表情、ボディランゲージとジェスチャー、全体的な自信に注目してください。
次のJSONオブジェクトのみで回答してください（スコアは1-10）：
{"overallScore": 0, "eyeContact": 0, "facialExpression": 0, "gesture": 0, "emotion": 0,
 "strengths": [], "improvements": [], "analysis": ""}`
}

func referenceSystemPrompt(language string) string {
	if isEnglish(language) {
		return "You check whether a salesperson's statements are grounded in reference documents. Answer in JSON."
	}
	return "あなたは営業担当者の発言が参照資料に基づいているかを確認します。JSONで回答してください。"
}

func referencePrompt(message, document, context, language string) string {
	if isEnglish(language) {
		return fmt.Sprintf(`Evaluate whether the user's statement is based on the reference document.

User's statement: %q

Reference document:
%s

Conversation context:
%s

Respond in JSON format:
{"related": true/false, "comment": "Brief evaluation comment"}`, message, document, context)
	}
	return fmt.Sprintf(`ユーザーの発言が参照資料に基づいているか評価してください。

ユーザーの発言: %q

参照資料:
%s

会話コンテキスト:
%s

JSON形式で回答してください:
{"related": true/false, "comment": "簡潔な評価コメント"}`, message, document, context)
}
