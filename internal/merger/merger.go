// Package merger combines evaluator outputs into the persisted analysis
// record and implements the read rule for picking the current one.
package merger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"roleplay-insights-go/internal/actionable"
	"roleplay-insights-go/internal/evaluator"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/store"
	"roleplay-insights-go/internal/types"
)

// DefaultTTL is how long analysis records are kept.
const DefaultTTL = 180 * 24 * time.Hour

type RecordStore interface {
	AppendRecord(ctx context.Context, sessionID, dataType string, payload any, ttl time.Duration) (store.Record, error)
	ListRecords(ctx context.Context, sessionID string) ([]store.Record, error)
}

type Merger struct {
	records RecordStore
	ttl     time.Duration
	log     *logger.Logger
}

func New(records RecordStore, ttl time.Duration, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Discard()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Merger{records: records, ttl: ttl, log: log.Component("merger")}
}

// Merge builds the final record. It does not assign CreatedAt; that
// happens when the record is appended.
func Merge(actx types.AnalysisContext, res evaluator.Results, goals types.GoalResults) types.AnalysisRecord {
	fb := res.Feedback.Record
	metrics := actx.FinalMetrics
	g := goals

	rec := types.AnalysisRecord{
		SessionID:         actx.SessionID,
		DataType:          types.DataTypeFinalFeedback,
		ScenarioID:        actx.ScenarioID,
		Language:          actx.Language,
		FeedbackData:      &fb,
		FeedbackGenerated: res.Feedback.Generated,
		FeedbackError:     res.Feedback.Error,
		OverallScore:      fb.Scores.Overall,
		FinalMetrics:      &metrics,
		GoalResults:       &g,

		VideoAnalysis:   res.Video.Analysis,
		VideoAnalyzed:   res.Video.Analyzed,
		VideoSkipReason: res.Video.SkipReason,
		VideoError:      res.Video.Error,
		VideoURL:        res.Video.VideoURL,

		ReferenceCheck:      res.Reference.Check,
		ReferenceChecked:    res.Reference.Checked,
		ReferenceSkipReason: res.Reference.SkipReason,
		ReferenceError:      res.Reference.Error,
	}
	card := actionable.ForRecord(rec)
	rec.ActionCard = &card
	return rec
}

// Persist appends rec with a fresh creation timestamp. Earlier records of
// the session are left untouched.
func (m *Merger) Persist(ctx context.Context, rec *types.AnalysisRecord) error {
	stored, err := m.records.AppendRecord(ctx, rec.SessionID, types.DataTypeFinalFeedback, rec, m.ttl)
	if err != nil {
		return fmt.Errorf("persist analysis record: %w", err)
	}
	m.log.WithField("session_id", rec.SessionID).
		WithField("created_at", stored.CreatedAt).
		WithField("overall", rec.OverallScore).
		Info("analysis record stored")
	return nil
}

// Latest returns the authoritative final record of a session.
func (m *Merger) Latest(ctx context.Context, sessionID string) (types.AnalysisRecord, bool, error) {
	recs, err := m.records.ListRecords(ctx, sessionID)
	if err != nil {
		return types.AnalysisRecord{}, false, err
	}
	rec, ok := SelectLatestFinal(recs)
	return rec, ok, nil
}

// createdAtTime parses a creation key, ignoring any suffix after the zone
// designator ("...Z-feedback"). Unparseable keys sort as oldest.
func createdAtTime(key string) time.Time {
	if i := strings.IndexByte(key, 'Z'); i >= 0 {
		key = key[:i+1]
	}
	t, err := time.Parse(time.RFC3339Nano, key)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SelectLatestFinal orders records by creation time, newest first, and
// returns the first decodable final-feedback record. The input order does
// not matter.
func SelectLatestFinal(records []store.Record) (types.AnalysisRecord, bool) {
	finals := make([]store.Record, 0, len(records))
	for _, r := range records {
		if r.DataType == types.DataTypeFinalFeedback {
			finals = append(finals, r)
		}
	}
	sort.SliceStable(finals, func(i, j int) bool {
		ti, tj := createdAtTime(finals[i].CreatedAt), createdAtTime(finals[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return finals[i].CreatedAt > finals[j].CreatedAt
	})

	for _, r := range finals {
		var rec types.AnalysisRecord
		if err := json.Unmarshal(r.Payload, &rec); err != nil {
			continue
		}
		rec.SessionID = r.SessionID
		rec.CreatedAt = r.CreatedAt
		rec.DataType = r.DataType
		return rec, true
	}
	return types.AnalysisRecord{}, false
}
