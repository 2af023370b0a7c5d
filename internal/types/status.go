package types

type PipelineState string

const (
	StateNotStarted PipelineState = "not_started"
	StateProcessing PipelineState = "processing"
	StateCompleted  PipelineState = "completed"
	StateFailed     PipelineState = "failed"
	StateTimeout    PipelineState = "timeout"
)

func (s PipelineState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimeout
}

// CanTransition reports whether the state machine allows from -> to
// within a single execution.
func CanTransition(from, to PipelineState) bool {
	switch from {
	case StateNotStarted:
		return to == StateProcessing
	case StateProcessing:
		return to.Terminal()
	default:
		return false
	}
}

type PipelineStatus struct {
	SessionID    string        `json:"sessionId"`
	State        PipelineState `json:"status"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
	ExecutionRef string        `json:"executionRef,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	ExpireAt     int64         `json:"expireAt,omitempty"`
}
