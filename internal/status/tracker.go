// Package status tracks the lifecycle of analysis runs:
// not_started -> processing -> completed | failed | timeout.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// DefaultTTL is the retention of status records.
const DefaultTTL = 24 * time.Hour

// Backend persists one status record per session with a retention window.
type Backend interface {
	GetStatus(ctx context.Context, sessionID string) (types.PipelineStatus, bool, error)
	PutStatus(ctx context.Context, st types.PipelineStatus, ttl time.Duration) error
}

type Tracker struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger

	// mu serialises read-modify-write within this process. Writers in
	// other processes can still interleave between the read and the write.
	mu sync.Mutex
}

func NewTracker(backend Backend, ttl time.Duration, log *logger.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Tracker{backend: backend, ttl: ttl, now: time.Now, log: log.Component("status")}
}

// Get returns the current status; sessions never analysed report not_started.
func (t *Tracker) Get(ctx context.Context, sessionID string) (types.PipelineStatus, error) {
	st, ok, err := t.backend.GetStatus(ctx, sessionID)
	if err != nil {
		return types.PipelineStatus{}, fmt.Errorf("get status: %w", err)
	}
	if !ok {
		return types.PipelineStatus{SessionID: sessionID, State: types.StateNotStarted}, nil
	}
	return st, nil
}

// Begin moves the session to processing under executionRef. A fresh
// execution may follow a terminal state. Calling Begin again for the live
// execution is a no-op; any other live execution yields ErrAlreadyProcessing.
func (t *Tracker) Begin(ctx context.Context, sessionID, executionRef string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, err := t.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if cur.State == types.StateProcessing {
		if cur.ExecutionRef == executionRef {
			return nil
		}
		return fmt.Errorf("session %s execution %s: %w", sessionID, cur.ExecutionRef, types.ErrAlreadyProcessing)
	}
	return t.put(ctx, types.PipelineStatus{
		SessionID:    sessionID,
		State:        types.StateProcessing,
		ExecutionRef: executionRef,
	})
}

func (t *Tracker) Complete(ctx context.Context, sessionID, executionRef string) error {
	return t.finish(ctx, sessionID, executionRef, types.StateCompleted, "")
}

func (t *Tracker) Fail(ctx context.Context, sessionID, executionRef, msg string) error {
	return t.finish(ctx, sessionID, executionRef, types.StateFailed, msg)
}

func (t *Tracker) Timeout(ctx context.Context, sessionID, executionRef, msg string) error {
	return t.finish(ctx, sessionID, executionRef, types.StateTimeout, msg)
}

func (t *Tracker) finish(ctx context.Context, sessionID, executionRef string, to types.PipelineState, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, err := t.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if cur.ExecutionRef != executionRef || !types.CanTransition(cur.State, to) {
		t.log.WithField("session_id", sessionID).
			WithField("from", cur.State).
			WithField("to", to).
			WithField("execution_ref", executionRef).
			Warn("rejected status transition")
		return fmt.Errorf("%s -> %s for execution %s: %w", cur.State, to, executionRef, types.ErrInvalidTransition)
	}
	return t.put(ctx, types.PipelineStatus{
		SessionID:    sessionID,
		State:        to,
		ExecutionRef: executionRef,
		ErrorMessage: msg,
	})
}

func (t *Tracker) put(ctx context.Context, st types.PipelineStatus) error {
	st.UpdatedAt = t.now().UTC().Format(time.RFC3339Nano)
	st.ExpireAt = t.now().Add(t.ttl).Unix()
	if err := t.backend.PutStatus(ctx, st, t.ttl); err != nil {
		return fmt.Errorf("put status: %w", err)
	}
	t.log.WithField("session_id", st.SessionID).
		WithField("status", st.State).
		WithField("execution_ref", st.ExecutionRef).
		Info("status updated")
	return nil
}
