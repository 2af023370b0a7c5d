// Package processor starts analysis runs in the background and answers
// status and result queries about them.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

type Runner interface {
	Run(ctx context.Context, req types.AnalysisRequest, executionRef string, timeout time.Duration) (types.AnalysisRecord, error)
}

type StatusTracker interface {
	Get(ctx context.Context, sessionID string) (types.PipelineStatus, error)
	Begin(ctx context.Context, sessionID, executionRef string) error
	Timeout(ctx context.Context, sessionID, executionRef, msg string) error
}

type ResultReader interface {
	Latest(ctx context.Context, sessionID string) (types.AnalysisRecord, bool, error)
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID      string              `json:"sessionId"`
	ExecutionRef   string              `json:"executionRef"`
	Status         types.PipelineState `json:"status"`
	AlreadyRunning bool                `json:"alreadyRunning"`
}

type Processor struct {
	runner  Runner
	status  StatusTracker
	results ResultReader
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger

	mu   sync.Mutex
	live map[string]string // session id -> execution ref
	wg   sync.WaitGroup
}

func New(runner Runner, status StatusTracker, results ResultReader, timeout time.Duration, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &Processor{
		runner:  runner,
		status:  status,
		results: results,
		timeout: timeout,
		now:     time.Now,
		log:     log.Component("processor"),
		live:    map[string]string{},
	}
}

// Start launches an analysis unless one is already processing for the
// session, in which case the running execution is reported instead.
func (p *Processor) Start(ctx context.Context, req types.AnalysisRequest) (StartResult, error) {
	if req.SessionID == "" || req.UserID == "" {
		return StartResult{}, fmt.Errorf("sessionId and userId are required")
	}
	ref := uuid.NewString()
	log := p.log.WithSession(req.SessionID, req.UserID).Entry.WithField("execution_ref", ref)

	if err := p.status.Begin(ctx, req.SessionID, ref); err != nil {
		if errors.Is(err, types.ErrAlreadyProcessing) {
			cur, gerr := p.status.Get(ctx, req.SessionID)
			if gerr != nil {
				return StartResult{}, gerr
			}
			log.WithField("running_ref", cur.ExecutionRef).Info("analysis already running")
			return StartResult{
				SessionID:      req.SessionID,
				ExecutionRef:   cur.ExecutionRef,
				Status:         cur.State,
				AlreadyRunning: true,
			}, nil
		}
		return StartResult{}, err
	}

	p.mu.Lock()
	p.live[req.SessionID] = ref
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.forget(req.SessionID, ref)
		// the run outlives the request that started it
		if _, err := p.runner.Run(context.WithoutCancel(ctx), req, ref, p.timeout); err != nil {
			log.WithError(err).Warn("analysis run ended with error")
		}
	}()

	log.Info("analysis started")
	return StartResult{SessionID: req.SessionID, ExecutionRef: ref, Status: types.StateProcessing}, nil
}

// RunSync runs an analysis in the caller's goroutine.
func (p *Processor) RunSync(ctx context.Context, req types.AnalysisRequest) (types.AnalysisRecord, error) {
	ref := uuid.NewString()
	if err := p.status.Begin(ctx, req.SessionID, ref); err != nil {
		return types.AnalysisRecord{}, err
	}
	p.mu.Lock()
	p.live[req.SessionID] = ref
	p.mu.Unlock()
	defer p.forget(req.SessionID, ref)
	return p.runner.Run(ctx, req, ref, p.timeout)
}

func (p *Processor) forget(sessionID, ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live[sessionID] == ref {
		delete(p.live, sessionID)
	}
}

// Status returns the session's status. A processing status whose
// execution is not running here and has outlived the workflow timeout is
// settled as timeout.
func (p *Processor) Status(ctx context.Context, sessionID string) (types.PipelineStatus, error) {
	st, err := p.status.Get(ctx, sessionID)
	if err != nil || st.State != types.StateProcessing {
		return st, err
	}

	p.mu.Lock()
	running := p.live[sessionID] == st.ExecutionRef
	p.mu.Unlock()
	if running {
		return st, nil
	}

	updated, perr := time.Parse(time.RFC3339Nano, st.UpdatedAt)
	if perr != nil || p.now().Sub(updated) < p.timeout {
		return st, nil
	}
	msg := fmt.Sprintf("execution %s is no longer running", st.ExecutionRef)
	if err := p.status.Timeout(ctx, sessionID, st.ExecutionRef, msg); err != nil && !errors.Is(err, types.ErrInvalidTransition) {
		return st, err
	}
	return p.status.Get(ctx, sessionID)
}

// Results returns the authoritative analysis record of a session.
func (p *Processor) Results(ctx context.Context, sessionID string) (types.AnalysisRecord, bool, error) {
	return p.results.Latest(ctx, sessionID)
}

// Wait blocks until every run started by Start has returned.
func (p *Processor) Wait() {
	p.wg.Wait()
}
