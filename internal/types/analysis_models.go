// internal/types/analysis_models.go
package types

// --------------------------------------------
// Skills feedback (structured model output)
// --------------------------------------------
type FeedbackScores struct {
	Overall           int `json:"overall"` // 0–100
	Communication     int `json:"communication"`
	NeedsAnalysis     int `json:"needsAnalysis"`
	ProposalQuality   int `json:"proposalQuality"`
	Flexibility       int `json:"flexibility"`
	TrustBuilding     int `json:"trustBuilding"`
	ObjectionHandling int `json:"objectionHandling"`
	ClosingSkill      int `json:"closingSkill"`
	ListeningSkill    int `json:"listeningSkill"`
	ProductKnowledge  int `json:"productKnowledge"`
	CustomerFocus     int `json:"customerFocus"`
	GoalAchievement   int `json:"goalAchievement"`
}

// SubSkills lists the 1–10 rated skills with their JSON names, in schema order.
func (s *FeedbackScores) SubSkills() []SkillRef {
	return []SkillRef{
		{"communication", &s.Communication},
		{"needsAnalysis", &s.NeedsAnalysis},
		{"proposalQuality", &s.ProposalQuality},
		{"flexibility", &s.Flexibility},
		{"trustBuilding", &s.TrustBuilding},
		{"objectionHandling", &s.ObjectionHandling},
		{"closingSkill", &s.ClosingSkill},
		{"listeningSkill", &s.ListeningSkill},
		{"productKnowledge", &s.ProductKnowledge},
		{"customerFocus", &s.CustomerFocus},
		{"goalAchievement", &s.GoalAchievement},
	}
}

type SkillRef struct {
	Name  string
	Value *int
}

type GoalFeedback struct {
	AchievedGoals          []string `json:"achievedGoals"`
	PartiallyAchievedGoals []string `json:"partiallyAchievedGoals"`
	MissedGoals            []string `json:"missedGoals"`
}

type FeedbackRecord struct {
	Scores         FeedbackScores `json:"scores"`
	Strengths      []string       `json:"strengths"`
	Improvements   []string       `json:"improvements"`
	KeyInsights    []string       `json:"keyInsights"`
	GoalFeedback   GoalFeedback   `json:"goalFeedback"`
	OverallComment string         `json:"overallComment"`
	NextSteps      string         `json:"nextSteps,omitempty"`
}

// --------------------------------------------
// Non-verbal (video) analysis
// --------------------------------------------
type VideoAnalysisRecord struct {
	OverallScore     int      `json:"overallScore"`
	EyeContact       int      `json:"eyeContact"`
	FacialExpression int      `json:"facialExpression"`
	Gesture          int      `json:"gesture"`
	Emotion          int      `json:"emotion"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	Analysis         string   `json:"analysis"`
}

// --------------------------------------------
// Reference document fact-check
// --------------------------------------------
type ReferenceCheckItem struct {
	Message         string `json:"message"`
	RelatedDocument string `json:"relatedDocument"`
	ReviewComment   string `json:"reviewComment"`
	Related         bool   `json:"related"`
}

type ReferenceCheckSummary struct {
	TotalMessages   int `json:"totalMessages"`
	CheckedMessages int `json:"checkedMessages"`
	RelatedCount    int `json:"relatedCount"`
}

type ReferenceCheckRecord struct {
	Messages []ReferenceCheckItem  `json:"messages"`
	Summary  ReferenceCheckSummary `json:"summary"`
}

// --------------------------------------------
// Persisted analysis record
// --------------------------------------------
const (
	DataTypeFinalFeedback   = "final-feedback"
	DataTypeRealtimeMetrics = "realtime-metrics"
)

// Skip reasons recorded on sections that did not run.
const (
	SkipNoVideo         = "no_video"
	SkipAnalysisFailed  = "analysis_failed"
	SkipNoKnowledgeBase = "no_knowledge_base"
	SkipNoUserMessages  = "no_user_messages"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

type AnalysisRecord struct {
	SessionID  string `json:"sessionId"`
	CreatedAt  string `json:"createdAt"`
	DataType   string `json:"dataType"`
	ScenarioID string `json:"scenarioId,omitempty"`
	Language   string `json:"language,omitempty"`

	FeedbackData      *FeedbackRecord `json:"feedbackData,omitempty"`
	FeedbackGenerated bool            `json:"feedbackGenerated"`
	FeedbackError     string          `json:"feedbackError,omitempty"`
	OverallScore      int             `json:"overallScore"`

	FinalMetrics *MetricSnapshot `json:"finalMetrics,omitempty"`
	GoalResults  *GoalResults    `json:"goalResults,omitempty"`

	VideoAnalysis   *VideoAnalysisRecord `json:"videoAnalysis,omitempty"`
	VideoAnalyzed   bool                 `json:"videoAnalyzed"`
	VideoSkipReason string               `json:"videoSkipReason,omitempty"`
	VideoError      string               `json:"videoError,omitempty"`
	VideoURL        string               `json:"videoUrl,omitempty"`

	ReferenceCheck      *ReferenceCheckRecord `json:"referenceCheck,omitempty"`
	ReferenceChecked    bool                  `json:"referenceChecked"`
	ReferenceSkipReason string                `json:"referenceSkipReason,omitempty"`
	ReferenceError      string                `json:"referenceError,omitempty"`

	ActionCard *ActionCard `json:"actionCard,omitempty"`
	ExpireAt   int64       `json:"expireAt,omitempty"`
}

// Stamp sets the storage key and expiry assigned at append time.
func (r *AnalysisRecord) Stamp(createdAt string, expireAt int64) {
	r.CreatedAt = createdAt
	r.ExpireAt = expireAt
}
