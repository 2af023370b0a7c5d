package types

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderNPC  Sender = "npc"
)

// ConversationMessage is one decoded turn of a roleplay session.
// Timestamp is kept as a string so that transcripts sort lexically.
type ConversationMessage struct {
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type Session struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId"`
	ScenarioID string    `json:"scenarioId,omitempty"`
	Language   string    `json:"language,omitempty"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Goal struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Criteria    []string `json:"criteria,omitempty" yaml:"criteria"`
	IsRequired  bool     `json:"isRequired" yaml:"isRequired"`
	Priority    int      `json:"priority" yaml:"priority"`
}

// ReferenceDocument is a knowledge-base source attached to a scenario.
type ReferenceDocument struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path,omitempty" yaml:"path"`
	Text  string `json:"text,omitempty" yaml:"text"`
}

type Scenario struct {
	ScenarioID string              `json:"scenarioId" yaml:"scenarioId"`
	Title      string              `json:"title" yaml:"title"`
	Goals      []Goal              `json:"goals" yaml:"goals"`
	References []ReferenceDocument `json:"references,omitempty" yaml:"references"`
}

func (s *Scenario) HasKnowledgeBase() bool {
	return s != nil && len(s.References) > 0
}

type MetricSnapshot struct {
	AngerLevel    int          `json:"angerLevel"`
	TrustLevel    int          `json:"trustLevel"`
	ProgressLevel int          `json:"progressLevel"`
	Analysis      string       `json:"analysis"`
	MessageNumber int          `json:"messageNumber,omitempty"`
	GoalStatuses  []GoalStatus `json:"goalStatuses,omitempty"`
	CreatedAt     string       `json:"createdAt,omitempty"`
}

// DefaultMetrics is used when a session produced no metric snapshots.
func DefaultMetrics() MetricSnapshot {
	return MetricSnapshot{AngerLevel: 1, TrustLevel: 5, ProgressLevel: 5}
}

type GoalStatus struct {
	GoalID     string `json:"goalId"`
	Progress   int    `json:"progress"`
	Achieved   bool   `json:"achieved"`
	AchievedAt *int64 `json:"achievedAt"`
}

type GoalResults struct {
	ScenarioGoals []Goal       `json:"scenarioGoals"`
	GoalStatuses  []GoalStatus `json:"goalStatuses"`
	GoalScore     int          `json:"goalScore"`
}

// AnalysisRequest is the inbound trigger of a pipeline run.
type AnalysisRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Language  string `json:"language"`
}

// AnalysisContext is everything the evaluators need for one run.
type AnalysisContext struct {
	SessionID        string                `json:"sessionId"`
	UserID           string                `json:"userId"`
	Language         string                `json:"language"`
	ExecutionRef     string                `json:"executionRef,omitempty"`
	Session          Session               `json:"sessionInfo"`
	ScenarioID       string                `json:"scenarioId,omitempty"`
	Scenario         *Scenario             `json:"scenarioInfo,omitempty"`
	Goals            []Goal                `json:"scenarioGoals"`
	Messages         []ConversationMessage `json:"messages"`
	MetricHistory    []MetricSnapshot      `json:"realtimeMetrics"`
	FinalMetrics     MetricSnapshot        `json:"finalMetrics"`
	HasVideo         bool                  `json:"hasVideo"`
	VideoKey         string                `json:"videoKey,omitempty"`
	VideoURL         string                `json:"videoUrl,omitempty"`
	HasKnowledgeBase bool                  `json:"hasKnowledgeBase"`
	StartedAt        time.Time             `json:"startTime"`
}

// UserMessages returns the non-empty user-authored turns in transcript order.
func (c AnalysisContext) UserMessages() []ConversationMessage {
	var out []ConversationMessage
	for _, m := range c.Messages {
		if m.Sender == SenderUser && m.Content != "" {
			out = append(out, m)
		}
	}
	return out
}
