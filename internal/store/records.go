package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roleplay-insights-go/internal/types"
)

// Record is one row of the session_feedback table.
type Record struct {
	SessionID string
	CreatedAt string
	DataType  string
	Payload   json.RawMessage
	ExpireAt  int64
}

// PutRecord inserts a record under its own key. Existing rows are never
// overwritten; a key collision is an error.
func (s *Store) PutRecord(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_feedback (session_id, created_at, data_type, payload, expire_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.SessionID, r.CreatedAt, r.DataType, string(r.Payload), r.ExpireAt)
	if err != nil {
		return fmt.Errorf("put record %s/%s: %w", r.SessionID, r.CreatedAt, err)
	}
	return nil
}

// AppendRecord stores payload with a fresh creation timestamp and returns it.
// A payload implementing stamper receives the timestamp and expiry first.
func (s *Store) AppendRecord(ctx context.Context, sessionID, dataType string, payload any, ttl time.Duration) (Record, error) {
	rec := Record{
		SessionID: sessionID,
		CreatedAt: s.nextCreatedAt(),
		DataType:  dataType,
		ExpireAt:  s.expiry(ttl),
	}
	if st, ok := payload.(stamper); ok {
		st.Stamp(rec.CreatedAt, rec.ExpireAt)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}
	rec.Payload = b
	return rec, s.PutRecord(ctx, rec)
}

type stamper interface {
	Stamp(createdAt string, expireAt int64)
}

// ListRecords returns every unexpired record of a session in storage order.
// Callers must not rely on that order.
func (s *Store) ListRecords(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, created_at, data_type, payload, expire_at
		FROM session_feedback
		WHERE session_id = ? AND (expire_at = 0 OR expire_at > ?)
	`, sessionID, s.now().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload string
		if err := rows.Scan(&r.SessionID, &r.CreatedAt, &r.DataType, &payload, &r.ExpireAt); err != nil {
			return nil, err
		}
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendMetrics stores one realtime metric snapshot.
func (s *Store) AppendMetrics(ctx context.Context, sessionID string, snap types.MetricSnapshot, ttl time.Duration) error {
	if snap.CreatedAt == "" {
		snap.CreatedAt = s.now().UTC().Format(CreatedAtLayout)
	}
	_, err := s.AppendRecord(ctx, sessionID, types.DataTypeRealtimeMetrics, snap, ttl)
	return err
}

// ListMetrics decodes the realtime-metrics records of a session.
func (s *Store) ListMetrics(ctx context.Context, sessionID string) ([]types.MetricSnapshot, error) {
	recs, err := s.ListRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var out []types.MetricSnapshot
	for _, r := range recs {
		if r.DataType != types.DataTypeRealtimeMetrics {
			continue
		}
		var snap types.MetricSnapshot
		if err := json.Unmarshal(r.Payload, &snap); err != nil {
			continue
		}
		if snap.CreatedAt == "" {
			snap.CreatedAt = r.CreatedAt
		}
		out = append(out, snap)
	}
	return out, nil
}

// PurgeExpired deletes records and statuses whose expiry has passed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().Unix()
	var total int64
	for _, q := range []string{
		`DELETE FROM session_feedback WHERE expire_at > 0 AND expire_at <= ?`,
		`DELETE FROM analysis_status WHERE expire_at > 0 AND expire_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, q, now)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
