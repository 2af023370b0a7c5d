// Package collector gathers everything one analysis run needs about a session.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/memory"
	"roleplay-insights-go/internal/recording"
	"roleplay-insights-go/internal/types"
)

const defaultLanguage = "ja"

type SessionStore interface {
	GetSession(ctx context.Context, sessionID, userID string) (types.Session, error)
	ListMetrics(ctx context.Context, sessionID string) ([]types.MetricSnapshot, error)
}

type Scenarios interface {
	Get(id string) (*types.Scenario, error)
}

type Transcripts interface {
	Load(ctx context.Context, sessionID, actorID string) memory.Transcript
}

type Indexer interface {
	EnsureIndexed(ctx context.Context, sc *types.Scenario) error
}

// StatusWriter is the part of the status tracker the collector drives.
type StatusWriter interface {
	Begin(ctx context.Context, sessionID, executionRef string) error
	Fail(ctx context.Context, sessionID, executionRef, msg string) error
}

type Collector struct {
	sessions    SessionStore
	scenarios   Scenarios
	transcripts Transcripts
	recordings  recording.Locator
	indexer     Indexer
	status      StatusWriter
	now         func() time.Time
	log         *logger.Logger
}

type Deps struct {
	Sessions    SessionStore
	Scenarios   Scenarios
	Transcripts Transcripts
	Recordings  recording.Locator
	Indexer     Indexer
	Status      StatusWriter
}

func New(d Deps, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Discard()
	}
	rec := d.Recordings
	if rec == nil {
		rec = recording.None{}
	}
	return &Collector{
		sessions:    d.Sessions,
		scenarios:   d.Scenarios,
		transcripts: d.Transcripts,
		recordings:  rec,
		indexer:     d.Indexer,
		status:      d.Status,
		now:         time.Now,
		log:         log.Component("collector"),
	}
}

// Collect marks the run processing and builds its AnalysisContext.
// Only a missing session is fatal; it is recorded as a failed run.
func (c *Collector) Collect(ctx context.Context, req types.AnalysisRequest, executionRef string) (types.AnalysisContext, error) {
	log := c.log.WithSession(req.SessionID, req.UserID)

	if err := c.status.Begin(ctx, req.SessionID, executionRef); err != nil {
		return types.AnalysisContext{}, fmt.Errorf("begin analysis: %w", err)
	}

	sess, err := c.sessions.GetSession(ctx, req.SessionID, req.UserID)
	if err != nil {
		msg := fmt.Sprintf("session lookup failed: %v", err)
		if errors.Is(err, types.ErrSessionNotFound) {
			msg = fmt.Sprintf("session %s not found for user %s", req.SessionID, req.UserID)
		}
		if ferr := c.status.Fail(ctx, req.SessionID, executionRef, msg); ferr != nil {
			log.WithError(ferr).Warn("could not record failed status")
		}
		return types.AnalysisContext{}, fmt.Errorf("collect session %s: %w", req.SessionID, err)
	}

	actx := types.AnalysisContext{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		Language:     pickLanguage(req.Language, sess.Language),
		ExecutionRef: executionRef,
		Session:      sess,
		ScenarioID:   sess.ScenarioID,
		Goals:        []types.Goal{},
		StartedAt:    c.now().UTC(),
	}

	if sess.ScenarioID != "" && c.scenarios != nil {
		sc, err := c.scenarios.Get(sess.ScenarioID)
		if err != nil {
			log.WithError(err).WithField("scenario_id", sess.ScenarioID).Warn("scenario not found, goals unavailable")
		} else {
			actx.Scenario = sc
			if len(sc.Goals) > 0 {
				actx.Goals = sc.Goals
			}
		}
	}

	transcript := c.transcripts.Load(ctx, req.SessionID, req.UserID)
	actx.Messages = transcript.Messages

	actx.MetricHistory = c.metricHistory(ctx, log, req.SessionID, transcript.Metrics)
	if latest, ok := memory.LatestMetrics(actx.MetricHistory); ok {
		actx.FinalMetrics = latest
	} else {
		actx.FinalMetrics = types.DefaultMetrics()
	}

	rec, found, err := c.recordings.Find(ctx, req.SessionID)
	switch {
	case err != nil:
		log.WithError(err).Warn("recording lookup failed")
	case found:
		actx.HasVideo = true
		actx.VideoKey = rec.Key
		actx.VideoURL = rec.URL
	}

	actx.HasKnowledgeBase = actx.Scenario.HasKnowledgeBase()
	if actx.HasKnowledgeBase && c.indexer != nil {
		if err := c.indexer.EnsureIndexed(ctx, actx.Scenario); err != nil {
			log.WithError(err).Warn("reference indexing failed")
		}
	}

	log.WithField("messages", len(actx.Messages)).
		WithField("transcript_source", transcript.Source).
		WithField("has_video", actx.HasVideo).
		WithField("has_knowledge_base", actx.HasKnowledgeBase).
		Info("analysis context collected")
	return actx, nil
}

// metricHistory prefers the realtime-metrics records in the store and falls
// back to the snapshots carried in the memory events.
func (c *Collector) metricHistory(ctx context.Context, log *logger.Logger, sessionID string, fromMemory []types.MetricSnapshot) []types.MetricSnapshot {
	stored, err := c.sessions.ListMetrics(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("metric lookup failed")
	}
	if len(stored) > 0 {
		return stored
	}
	if len(fromMemory) > 0 {
		return fromMemory
	}
	return []types.MetricSnapshot{}
}

func pickLanguage(requested, session string) string {
	switch {
	case requested != "":
		return requested
	case session != "":
		return session
	}
	return defaultLanguage
}
